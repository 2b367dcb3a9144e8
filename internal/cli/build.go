package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pixelfold/atlasforge/pkg/atlas"
	"github.com/pixelfold/atlasforge/pkg/config"
	"github.com/pixelfold/atlasforge/pkg/errors"
	"github.com/pixelfold/atlasforge/pkg/pipeline"
)

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	source     string // source directory of atlas folders
	output     string // output directory for atlas pairs
	fit        string // project-wide fitting policy
	workers    int    // folder-level concurrency
	refresh    bool   // bypass the skip cache
	noCache    bool   // disable the skip cache entirely
	configPath string // explicit atlasforge.toml path
}

// buildCommand creates the build command, the main entry point of the tool.
func (c *CLI) buildCommand() *cobra.Command {
	var opts buildOpts

	cmd := &cobra.Command{
		Use:   "build [folder...]",
		Short: "Build atlases from sprite folders",
		Long: `Build composes every folder under the source directory (or just the
named folders) into an atlas image plus a JSON manifest. Folders whose
inputs have not changed since the last run are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), &opts, args, false)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "source directory of atlas folders")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default \"atlases\")")
	cmd.Flags().StringVar(&opts.fit, "fit", "", "fitting policy for oversized sprites: none (default), cover")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "number of folders built concurrently")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "rebuild even when the skip cache is current")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the skip cache")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to atlasforge.toml")

	return cmd
}

// runBuild executes the pipeline for both build and validate. dryRun
// stops after validation and writes nothing.
func (c *CLI) runBuild(ctx context.Context, opts *buildOpts, folders []string, dryRun bool) error {
	project, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	pipeOpts := pipeline.Options{
		SourceDir: opts.source,
		OutputDir: opts.output,
		Folders:   folders,
		Fit:       atlas.FitMode(opts.fit),
		Workers:   opts.workers,
		Refresh:   opts.refresh,
		DryRun:    dryRun,
		Logger:    c.Logger,
	}
	project.ApplyTo(&pipeOpts)
	if pipeOpts.SourceDir == "" {
		return fmt.Errorf("no source directory: pass --source or set source_dir in %s", config.DefaultFileName)
	}

	runner := c.newRunner(project, opts.noCache || dryRun)
	defer runner.Close()

	msg := "Building atlases..."
	if dryRun {
		msg = "Validating folders..."
	}
	spin := newSpinnerWithContext(ctx, msg)
	spin.Start()

	prog := newProgress(c.Logger)
	result, err := runner.Build(ctx, pipeOpts)
	spin.Stop()
	if err != nil {
		return err
	}

	for _, fr := range result.Folders {
		if fr.Err != nil {
			printError("%s: %s", fr.Folder, errors.UserMessage(fr.Err))
			continue
		}
		printFolder(fr.Folder, fr.SlotCount, fr.Skipped)
		if !dryRun && !fr.Skipped {
			printFile(fr.ImagePath)
			printFile(fr.ManifestPath)
		}
	}

	verb := "Built"
	if dryRun {
		verb = "Validated"
	}
	prog.done(fmt.Sprintf("%s %d of %d folders", verb, result.Stats.Total-result.Stats.Failed, result.Stats.Total))

	if n := result.FailedCount(); n > 0 {
		return fmt.Errorf("%d of %d folders failed", n, result.Stats.Total)
	}
	if !dryRun {
		printNextStep("Preview", fmt.Sprintf("%s serve --dir %s", appName, pipeOpts.OutputDir))
	}
	return nil
}
