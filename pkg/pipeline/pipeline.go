// Package pipeline provides the core atlas build pipeline for atlasforge.
//
// This package implements the complete resolve → validate → compose → emit
// pipeline that processes one source folder into one atlas image plus one
// manifest. By centralizing this logic, the CLI and any future entry
// points share identical behavior.
//
// # Architecture
//
// Folders are independent units of work: each folder's pipeline reads
// only from that folder and writes only that folder's two output files,
// so folders run in parallel with no shared mutable state. One folder's
// validation failure is reported and skipped; it never aborts siblings.
//
// Within a folder the five stages run strictly sequentially:
//
//  1. Resolve config: config.json → canonical layout mode (or defaults)
//  2. Validate layout: canvas bounds, uniqueness, containment, path safety
//  3. Resolve slots: bind each slot to a sprite or the placeholder
//  4. Compose: draw resolved images onto a transparent canvas
//  5. Emit: write atlas_<folder>.png + atlas_<folder>.json atomically
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    SourceDir: "atlases_src",
//	    OutputDir: "atlases",
//	}
//	result, err := runner.Build(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if result.FailedCount() > 0 {
//	    os.Exit(1)
//	}
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pixelfold/atlasforge/pkg/atlas"
)

// =============================================================================
// Default Values - Single Source of Truth for the CLI
// =============================================================================

const (
	// DefaultOutputDir is where atlas outputs are written, relative to the
	// working directory.
	DefaultOutputDir = "atlases"

	// DefaultWorkers is how many folders are built concurrently.
	DefaultWorkers = 4

	// ConfigFileName is the optional per-folder configuration document.
	ConfigFileName = "config.json"
)

// OutputNames returns the image and manifest file names for a folder.
func OutputNames(folder string) (image, manifest string) {
	return fmt.Sprintf("atlas_%s.png", folder), fmt.Sprintf("atlas_%s.json", folder)
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the atlas build pipeline.
type Options struct {
	// SourceDir is the directory containing one subfolder per atlas.
	SourceDir string

	// OutputDir is where atlas_<folder>.{png,json} pairs are written.
	// Defaults to "atlases".
	OutputDir string

	// Folders restricts the run to an explicit subset of subfolders.
	// Empty means every subfolder of SourceDir.
	Folders []string

	// Fit is the project-wide fitting policy applied when a folder's
	// config.json does not specify one. Defaults to atlas.FitNone.
	Fit atlas.FitMode

	// Workers bounds folder-level concurrency. Defaults to 4.
	Workers int

	// Refresh bypasses the skip cache and rebuilds every folder.
	Refresh bool

	// DryRun stops after slot resolution: full validation, no composition
	// and no output files.
	DryRun bool

	// Logger receives structured progress output. Defaults to a discard
	// logger.
	Logger *log.Logger

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same
// effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.SourceDir == "" {
		return fmt.Errorf("source dir is required")
	}
	if o.OutputDir == "" {
		o.OutputDir = DefaultOutputDir
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	switch o.Fit {
	case "":
		o.Fit = atlas.FitNone
	case atlas.FitNone, atlas.FitCover:
	default:
		return fmt.Errorf("invalid fit: %q (must be %q or %q)", o.Fit, atlas.FitNone, atlas.FitCover)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// =============================================================================
// Result - Pipeline Outputs
// =============================================================================

// Result contains the outcome of a pipeline run.
type Result struct {
	// RunID identifies this run in log output.
	RunID string

	// Folders holds one entry per processed folder, in processing order
	// (UTF-8 byte order of folder names).
	Folders []FolderResult

	// Stats contains timing and count information.
	Stats Stats
}

// FolderResult is the outcome of one folder's build.
type FolderResult struct {
	// Folder is the source folder name; it doubles as the atlas name.
	Folder string

	// Err is the folder-scoped failure, nil on success.
	Err error

	// Skipped reports that the skip cache proved the outputs current.
	Skipped bool

	// SlotCount is the number of validated slots (0 when validation failed).
	SlotCount int

	// ImagePath and ManifestPath are the written outputs (empty on
	// failure or dry run).
	ImagePath    string
	ManifestPath string

	// Duration is this folder's processing time.
	Duration time.Duration
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Total    int
	Built    int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// FailedCount returns the number of folders that failed. A non-zero value
// must surface as a non-zero process exit.
func (r *Result) FailedCount() int {
	return r.Stats.Failed
}

// Failed returns the folder results that ended in error.
func (r *Result) Failed() []FolderResult {
	var out []FolderResult
	for _, fr := range r.Folders {
		if fr.Err != nil {
			out = append(out, fr)
		}
	}
	return out
}
