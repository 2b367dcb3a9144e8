package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pixelfold/atlasforge/pkg/atlas"
	"github.com/pixelfold/atlasforge/pkg/buildinfo"
	"github.com/pixelfold/atlasforge/pkg/cache"
	"github.com/pixelfold/atlasforge/pkg/errors"
	afio "github.com/pixelfold/atlasforge/pkg/io"
	"github.com/pixelfold/atlasforge/pkg/observability"
)

// Runner encapsulates pipeline execution with skip caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store build results. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (skip caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Build runs the full pipeline over every requested folder.
//
// Folders are processed in UTF-8 byte order of their names, fanned out
// over opts.Workers goroutines. A folder-scoped failure is recorded in
// the Result and never aborts sibling folders; the only error returned
// directly is an inability to read the source tree itself.
func (r *Runner) Build(ctx context.Context, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	start := time.Now()
	runID := uuid.New().String()[:8]
	logger := opts.Logger.With("run", runID)

	folders, err := discoverFolders(opts)
	if err != nil {
		return nil, err
	}
	logger.Info("building atlases", "folders", len(folders), "workers", opts.Workers)

	results := make([]FolderResult, len(folders))
	sem := make(chan struct{}, opts.Workers)
	var wg sync.WaitGroup
	for i, folder := range folders {
		wg.Add(1)
		go func(i int, folder string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.buildFolder(ctx, folder, opts, logger)
		}(i, folder)
	}
	wg.Wait()

	result := &Result{RunID: runID, Folders: results}
	result.Stats.Total = len(results)
	result.Stats.Duration = time.Since(start)
	for _, fr := range results {
		switch {
		case fr.Err != nil:
			result.Stats.Failed++
		case fr.Skipped:
			result.Stats.Skipped++
		default:
			result.Stats.Built++
		}
	}

	observability.Build().OnRunComplete(ctx, result.Stats.Total, result.Stats.Failed,
		result.Stats.Skipped, result.Stats.Duration)
	logger.Info("run complete",
		"built", result.Stats.Built,
		"skipped", result.Stats.Skipped,
		"failed", result.Stats.Failed,
		"duration", result.Stats.Duration)

	return result, nil
}

// buildFolder processes one folder and records hooks and timing around it.
func (r *Runner) buildFolder(ctx context.Context, folder string, opts Options, logger *log.Logger) FolderResult {
	start := time.Now()
	observability.Build().OnFolderStart(ctx, folder)

	fr := r.processFolder(ctx, folder, opts)
	fr.Duration = time.Since(start)

	observability.Build().OnFolderComplete(ctx, folder, fr.SlotCount, fr.Duration, fr.Err)
	switch {
	case fr.Err != nil:
		logger.Error("folder failed", "folder", folder, "err", fr.Err)
	case fr.Skipped:
		logger.Debug("folder up to date", "folder", folder)
	default:
		logger.Info("folder built", "folder", folder, "slots", fr.SlotCount, "duration", fr.Duration)
	}
	return fr
}

// processFolder runs the five pipeline stages for one folder. No output
// I/O happens unless every stage before it succeeded.
func (r *Runner) processFolder(ctx context.Context, folder string, opts Options) FolderResult {
	fr := FolderResult{Folder: folder}
	srcDir := filepath.Join(opts.SourceDir, folder)

	cfgData, err := os.ReadFile(filepath.Join(srcDir, ConfigFileName))
	if err != nil && !os.IsNotExist(err) {
		fr.Err = errors.Wrap(errors.ErrCodeInternal, err, "read %s", ConfigFileName)
		return fr
	}

	cfg, err := atlas.ResolveConfig(cfgData)
	if err != nil {
		fr.Err = err
		return fr
	}
	fit := cfg.Fit
	if fit == "" {
		fit = opts.Fit
	}

	canvas, slots, err := atlas.Layout(cfg.Mode)
	if err != nil {
		fr.Err = err
		return fr
	}
	fr.SlotCount = len(slots)

	imgName, manName := OutputNames(folder)
	imgPath := filepath.Join(opts.OutputDir, imgName)
	manPath := filepath.Join(opts.OutputDir, manName)

	// Skip cache: a matching input fingerprint with both outputs present
	// means the deterministic pipeline would reproduce them byte for byte.
	var key string
	if !opts.DryRun {
		if hash, err := fingerprintInputs(srcDir, cfgData); err == nil {
			key = r.Keyer.FolderKey(folder, cache.FolderKeyOpts{
				InputsHash: hash,
				Fit:        string(fit),
				Version:    buildinfo.Version,
			})
		}
		if key != "" && !opts.Refresh {
			if _, hit, err := r.Cache.Get(ctx, key); err == nil && hit && outputsExist(imgPath, manPath) {
				observability.Cache().OnCacheHit(ctx, "folder")
				fr.Skipped = true
				fr.ImagePath = imgPath
				fr.ManifestPath = manPath
				return fr
			}
			observability.Cache().OnCacheMiss(ctx, "folder")
		}
	}

	resolved, err := atlas.Resolve(atlas.DirSource{Dir: srcDir}, slots)
	if err != nil {
		fr.Err = err
		return fr
	}

	if opts.DryRun {
		return fr
	}

	pngData, err := atlas.EncodePNG(atlas.Compose(canvas, resolved, fit))
	if err != nil {
		fr.Err = err
		return fr
	}
	manData, err := atlas.BuildManifest(folder, canvas, resolved).Encode()
	if err != nil {
		fr.Err = err
		return fr
	}

	if err := afio.WritePair(imgPath, pngData, manPath, manData); err != nil {
		fr.Err = errors.Wrap(errors.ErrCodeInternal, err, "write outputs for %q", folder)
		return fr
	}
	fr.ImagePath = imgPath
	fr.ManifestPath = manPath

	if key != "" {
		_ = r.Cache.Set(ctx, key, []byte("ok"), cache.TTLFolder)
		observability.Cache().OnCacheSet(ctx, "folder", 1)
	}
	return fr
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// discoverFolders lists the folders to process: the explicit subset if
// given, otherwise every non-hidden subfolder of SourceDir. Names are
// sorted byte-wise so processing (and log) order is deterministic.
func discoverFolders(opts Options) ([]string, error) {
	if len(opts.Folders) > 0 {
		folders := make([]string, 0, len(opts.Folders))
		for _, name := range opts.Folders {
			if err := errors.ValidateFolderName(name); err != nil {
				return nil, err
			}
			info, err := os.Stat(filepath.Join(opts.SourceDir, name))
			if err != nil || !info.IsDir() {
				return nil, errors.New(errors.ErrCodeNotFound, "folder %q not found in %s", name, opts.SourceDir)
			}
			folders = append(folders, name)
		}
		sort.Strings(folders)
		return folders, nil
	}

	entries, err := os.ReadDir(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source dir %s: %w", opts.SourceDir, err)
	}
	var folders []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if errors.ValidateFolderName(e.Name()) != nil {
			continue
		}
		folders = append(folders, e.Name())
	}
	sort.Strings(folders)
	return folders, nil
}

// fingerprintInputs hashes everything that affects a folder's output
// bytes: the config document plus every .png sprite's name and content,
// in sorted order.
func fingerprintInputs(srcDir string, cfgData []byte) (string, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return "", err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("config:")
	b.WriteString(cache.Hash(cfgData))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(srcDir, name))
		if err != nil {
			return "", err
		}
		b.WriteString("\n")
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(cache.Hash(data))
	}
	return cache.Hash([]byte(b.String())), nil
}

// outputsExist reports whether both files of an output pair are present.
func outputsExist(imgPath, manPath string) bool {
	for _, p := range []string{imgPath, manPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}
