package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dtsfetch/pkg/acquire"
	"github.com/matzehuels/dtsfetch/pkg/buildinfo"
	"github.com/matzehuels/dtsfetch/pkg/cache"
	"github.com/matzehuels/dtsfetch/pkg/imports"
	"github.com/matzehuels/dtsfetch/pkg/integrations/jsdelivr"
	"github.com/matzehuels/dtsfetch/pkg/integrations/npm"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "dtsfetch"

	// configFile is the file name looked up under the config directory.
	configFile = "config.toml"

	// annotationNoConfig marks commands that run without loading the config.
	annotationNoConfig = "dtsfetch/no-config"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	config     Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "dtsfetch downloads TypeScript declarations for the imports of a source file",
		Long:         `dtsfetch scans JavaScript and TypeScript sources for module imports and downloads the declaration files those modules ship, falling back to their DefinitelyTyped packages, into a node_modules layout a type checker can read.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationNoConfig] == "" {
				if err := c.loadConfig(cmd.Flags().Changed("config")); err != nil {
					return err
				}
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/dtsfetch/config.toml)")

	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.depsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig(explicit bool) error {
	path := c.configPath
	if path == "" {
		if p, err := configPath(); err == nil {
			path = p
		}
	}
	cfg, err := loadConfig(path, explicit)
	if err != nil {
		return err
	}
	c.config = cfg
	c.Logger.Debug("config loaded", "path", path, "cache", cfg.Cache.Backend)
	return nil
}

// =============================================================================
// Session Factory
// =============================================================================

// runOptions are the per-command overrides of the loaded config. A
// negative maxDepth keeps the configured depth.
type runOptions struct {
	maxDepth    int
	concurrency int
	noCache     bool
	refresh     bool
}

// newRegistry builds the jsDelivr client, taking tags from npm when the
// config names an npm registry.
func (c *CLI) newRegistry(cch cache.Cache, refresh bool) *jsdelivr.Client {
	opts := jsdelivr.Options{
		Name:     buildinfo.Product(appName),
		DataURL:  c.config.Registry.DataURL,
		CDNURL:   c.config.Registry.CDNURL,
		CacheTTL: c.config.Cache.TTL.Duration,
		Refresh:  refresh,
	}
	if c.config.Registry.NPMURL != "" {
		tags := npm.NewClient(cch, c.config.Registry.NPMURL, 0)
		tags.SetRefresh(refresh)
		opts.Tags = tags
	}
	return jsdelivr.NewClient(cch, opts)
}

// newSessionConfig assembles an acquisition config from the loaded config
// and the command's overrides.
func (c *CLI) newSessionConfig(reg acquire.Registry, d acquire.Delegate, opts runOptions) acquire.Config {
	cfg := acquire.Config{
		Name:        appName,
		Delegate:    d,
		Parse:       imports.Parse,
		Registry:    reg,
		Remap:       imports.RemapModuleName,
		Logger:      c.Logger,
		MaxDepth:    c.config.MaxDepth,
		Terminal:    c.config.Terminal,
		Concurrency: c.config.Concurrency,
	}
	if opts.maxDepth >= 0 {
		cfg.MaxDepth = opts.maxDepth
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = acquire.RootOnly
	}
	if opts.concurrency > 0 {
		cfg.Concurrency = opts.concurrency
	}
	return cfg
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.config.Cache
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case backendNone:
		return cache.NewNullCache(), nil
	case backendMemory:
		return cache.NewMemoryCache(cfg.Size)
	case backendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   appName + ":",
		})
	}
	dir, err := c.fileCacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

func (c *CLI) fileCacheDir() (string, error) {
	if c.config.Cache.Dir != "" {
		return c.config.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/dtsfetch/).
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

// configPath returns the config file path using XDG standard
// (~/.config/dtsfetch/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, configFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, configFile), nil
}
