// Package cli implements the atlasforge command-line interface.
//
// This package provides commands for building atlases from sprite
// folders, validating sources without writing outputs, previewing built
// atlases over HTTP, and managing the skip cache. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pixelfold/atlasforge/pkg/buildinfo"
	"github.com/pixelfold/atlasforge/pkg/cache"
	"github.com/pixelfold/atlasforge/pkg/config"
	"github.com/pixelfold/atlasforge/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "atlasforge"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Atlasforge packs sprite folders into texture atlases",
		Long:         `Atlasforge composes folders of sprite PNGs into fixed-size atlas images, each paired with a JSON manifest describing every slot. Builds are deterministic: the same inputs always produce the same bytes.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner with the cache backend selected by
// the project settings. A backend that fails to initialize degrades to no
// caching rather than aborting the build.
func (c *CLI) newRunner(project *config.Project, noCache bool) *pipeline.Runner {
	return pipeline.NewRunner(c.newCache(project, noCache), nil, c.Logger)
}

func (c *CLI) newCache(project *config.Project, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}

	backend := project.Cache.Backend
	switch backend {
	case "none":
		return cache.NewNullCache()
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     project.Cache.Addr,
			Password: project.Cache.Password,
			DB:       project.Cache.DB,
		})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "addr", project.Cache.Addr, "err", err)
			return cache.NewNullCache()
		}
		return rc
	}

	dir := project.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache()
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("file cache unavailable, caching disabled", "dir", dir, "err", err)
		return cache.NewNullCache()
	}
	return fc
}

// cacheDir returns the cache directory using XDG standard (~/.cache/atlasforge/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
