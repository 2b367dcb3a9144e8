// Package config loads project-level settings from atlasforge.toml.
//
// The file is optional: every field has a working default and every value
// can be overridden by a CLI flag. Precedence, lowest to highest, is
// defaults < atlasforge.toml < flags.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/pixelfold/atlasforge/pkg/atlas"
	"github.com/pixelfold/atlasforge/pkg/pipeline"
)

// DefaultFileName is looked up in the working directory when no explicit
// --config path is given.
const DefaultFileName = "atlasforge.toml"

// Project holds the settings read from atlasforge.toml.
type Project struct {
	// SourceDir is the directory of atlas source folders.
	SourceDir string `toml:"source_dir"`

	// OutputDir is where atlas pairs are written.
	OutputDir string `toml:"output_dir"`

	// Workers bounds folder-level concurrency.
	Workers int `toml:"workers"`

	// Fit is the project-wide fitting policy ("none" or "cover") applied
	// when a folder's config.json does not specify one.
	Fit string `toml:"fit"`

	// Cache selects and configures the skip-cache backend.
	Cache CacheConfig `toml:"cache"`
}

// CacheConfig selects a skip-cache backend.
type CacheConfig struct {
	// Backend is "file", "redis", or "none". Defaults to "file".
	Backend string `toml:"backend"`

	// Dir is the file backend's directory. Defaults to .atlasforge/cache.
	Dir string `toml:"dir"`

	// Addr, Password and DB configure the redis backend.
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// DefaultCacheDir is the file backend's directory when unset.
const DefaultCacheDir = ".atlasforge/cache"

// Load reads a project file. A missing file at the given path (or an
// empty path) yields zero-value settings rather than an error, so callers
// can treat the file as optional.
func Load(path string) (*Project, error) {
	if path == "" {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Project{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var p Project
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

func (p *Project) validate() error {
	switch p.Fit {
	case "", string(atlas.FitNone), string(atlas.FitCover):
	default:
		return fmt.Errorf("invalid fit %q (must be %q or %q)", p.Fit, atlas.FitNone, atlas.FitCover)
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers must not be negative (got %d)", p.Workers)
	}
	switch p.Cache.Backend {
	case "", "file", "redis", "none":
	default:
		return fmt.Errorf("invalid cache backend %q (must be file, redis, or none)", p.Cache.Backend)
	}
	return nil
}

// ApplyTo fills unset pipeline options from project settings. Options
// already set by flags win.
func (p *Project) ApplyTo(opts *pipeline.Options) {
	if opts.SourceDir == "" {
		opts.SourceDir = p.SourceDir
	}
	if opts.OutputDir == "" {
		opts.OutputDir = p.OutputDir
	}
	if opts.Workers == 0 {
		opts.Workers = p.Workers
	}
	if opts.Fit == "" {
		opts.Fit = atlas.FitMode(p.Fit)
	}
}
