package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pixelfold/atlasforge/pkg/config"
	"github.com/pixelfold/atlasforge/pkg/pipeline"
	"github.com/pixelfold/atlasforge/pkg/server"
)

// serveCommand creates the serve command for previewing built atlases.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		dir        string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve built atlases over HTTP for preview",
		Long: `Serve starts a read-only HTTP server over the output directory.
Manifests are available under /api/atlases and images under
/api/atlases/<name>/image.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = project.OutputDir
			}
			if dir == "" {
				dir = pipeline.DefaultOutputDir
			}

			printInfo("Serving atlases from %s", dir)
			printDetail("Listing: %s", StyleLink.Render(fmt.Sprintf("http://%s/api/atlases", addr)))

			srv := server.New(dir, c.Logger)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:8642", "listen address")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "output directory to serve (default \"atlases\")")
	cmd.Flags().StringVar(&configPath, "config", "", "path to atlasforge.toml")

	return cmd
}
