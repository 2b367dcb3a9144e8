package cli

import (
	"github.com/spf13/cobra"
)

// validateCommand creates the validate command: the full pipeline without
// composition or output files.
func (c *CLI) validateCommand() *cobra.Command {
	var opts buildOpts

	cmd := &cobra.Command{
		Use:   "validate [folder...]",
		Short: "Validate sprite folders without writing outputs",
		Long: `Validate runs config resolution, layout validation, and slot
resolution for every folder, reporting problems the same way build
would, but composes nothing and writes nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), &opts, args, true)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "source directory of atlas folders")
	cmd.Flags().StringVar(&opts.fit, "fit", "", "fitting policy for oversized sprites: none (default), cover")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "number of folders validated concurrently")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to atlasforge.toml")

	return cmd
}
