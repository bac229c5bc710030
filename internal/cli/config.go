package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/dtsfetch/pkg/acquire"
	dterrors "github.com/matzehuels/dtsfetch/pkg/errors"
	"github.com/matzehuels/dtsfetch/pkg/integrations/jsdelivr"
	"github.com/matzehuels/dtsfetch/pkg/store"
)

// Cache backends.
const (
	backendFile   = "file"
	backendMemory = "memory"
	backendRedis  = "redis"
	backendNone   = "none"
)

var cacheBackends = []string{backendFile, backendMemory, backendRedis, backendNone}

// Config is the contents of config.toml. Command-line flags override it.
type Config struct {
	MaxDepth    int      `toml:"max_depth"`
	Concurrency int      `toml:"concurrency"`
	Terminal    []string `toml:"terminal"`

	Cache    CacheConfig    `toml:"cache"`
	Registry RegistryConfig `toml:"registry"`
	Mongo    MongoConfig    `toml:"mongo"`
	Server   ServerConfig   `toml:"server"`
}

// CacheConfig selects and configures the registry response cache.
type CacheConfig struct {
	Backend       string   `toml:"backend"` // file, memory, redis or none
	TTL           duration `toml:"ttl"`
	Dir           string   `toml:"dir"`
	Size          int      `toml:"size"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
}

// RegistryConfig points the registry clients at their endpoints.
type RegistryConfig struct {
	DataURL string `toml:"data_url"`
	CDNURL  string `toml:"cdn_url"`
	NPMURL  string `toml:"npm_url"` // when set, dist-tags come from this npm registry
}

// MongoConfig configures the run history sink.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// ServerConfig configures "dtsfetch serve".
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// duration is a time.Duration read from strings such as "24h".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		MaxDepth:    acquire.DefaultMaxDepth,
		Concurrency: acquire.DefaultConcurrency,
		Terminal:    slices.Clone(acquire.DefaultTerminal),
		Cache: CacheConfig{
			Backend: backendFile,
			TTL:     duration{jsdelivr.DefaultCacheTTL},
		},
		Registry: RegistryConfig{
			DataURL: jsdelivr.DefaultDataURL,
			CDNURL:  jsdelivr.DefaultCDNURL,
		},
		Mongo: MongoConfig{
			Database: store.DefaultDatabase,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// loadConfig reads path over the defaults. A missing file is only an error
// when the path was given explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return DefaultConfig(), nil
		}
		return cfg, dterrors.Wrap(dterrors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, dterrors.New(dterrors.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	if c.MaxDepth < 0 {
		return dterrors.New(dterrors.ErrCodeInvalidConfig, "max_depth must not be negative")
	}
	if c.Concurrency < 0 {
		return dterrors.New(dterrors.ErrCodeInvalidConfig, "concurrency must not be negative")
	}
	if !slices.Contains(cacheBackends, c.Cache.Backend) {
		return dterrors.New(dterrors.ErrCodeInvalidConfig, "unknown cache backend %q (want one of %s)",
			c.Cache.Backend, strings.Join(cacheBackends, ", "))
	}
	if c.Cache.Backend == backendRedis && c.Cache.RedisAddr == "" {
		return dterrors.New(dterrors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
	}
	for name, u := range map[string]string{
		"registry.data_url": c.Registry.DataURL,
		"registry.cdn_url":  c.Registry.CDNURL,
	} {
		if err := dterrors.ValidateURL(u); err != nil {
			return dterrors.Wrap(dterrors.ErrCodeInvalidConfig, err, "%s", name)
		}
	}
	if c.Registry.NPMURL != "" {
		if err := dterrors.ValidateURL(c.Registry.NPMURL); err != nil {
			return dterrors.Wrap(dterrors.ErrCodeInvalidConfig, err, "registry.npm_url")
		}
	}
	return nil
}

// writeConfig encodes cfg as TOML to path, creating parent directories.
func writeConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
