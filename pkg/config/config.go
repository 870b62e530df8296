// Package config loads stagemap settings from a TOML file.
//
// Every setting has a default, so a missing file is not an error. The file
// is looked up at $XDG_CONFIG_HOME/stagemap/config.toml (or
// ~/.config/stagemap/config.toml) unless a path is given explicitly.
//
//	[map]
//	width = 1600
//	height = 900
//
//	[stage]
//	width = 4.5
//	height = 4.5
//	types = ["stage", "poi"]
//
//	[l10n]
//	unnamedStage = "Unbenannte Station"
//
//	[store]
//	backend = "redis"
//	[store.redis]
//	addr = "localhost:6379"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stagemap/pkg/errors"
)

// AppName names the config and cache directories.
const AppName = "stagemap"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendBadger = "badger"
)

// Config is the complete configuration.
type Config struct {
	Map    Map               `toml:"map"`
	Stage  Stage             `toml:"stage"`
	L10n   map[string]string `toml:"l10n"`
	Store  Store             `toml:"store"`
	Server Server            `toml:"server"`
	Render Render            `toml:"render"`
}

// Map holds the pixel size of the map canvas, used for its aspect ratio.
type Map struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// Aspect returns Width / Height, or 1 if either is unset.
func (m Map) Aspect() float64 {
	if m.Width <= 0 || m.Height <= 0 {
		return 1
	}
	return m.Width / m.Height
}

// Stage holds defaults for new stages.
type Stage struct {
	Width  float64  `toml:"width"`
	Height float64  `toml:"height"`
	Type   string   `toml:"type"`
	Types  []string `toml:"types"`
}

// Store selects and configures the document store.
type Store struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
	Redis   Redis  `toml:"redis"`
	Mongo   Mongo  `toml:"mongo"`
	Badger  Badger `toml:"badger"`
}

// Redis configures the redis backend.
type Redis struct {
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	Prefix   string   `toml:"prefix"`
	TTL      Duration `toml:"ttl"`
}

// Mongo configures the mongo backend.
type Mongo struct {
	URI        string   `toml:"uri"`
	Database   string   `toml:"database"`
	Collection string   `toml:"collection"`
	Timeout    Duration `toml:"timeout"`
}

// Badger configures the embedded badger backend.
type Badger struct {
	Dir      string `toml:"dir"`
	InMemory bool   `toml:"in_memory"`
}

// Server configures the HTTP API.
type Server struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// Render configures SVG export.
type Render struct {
	CacheDir string `toml:"cache_dir"`
	NoCache  bool   `toml:"no_cache"`
}

// Duration is a time.Duration written as a string such as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Map:   Map{Width: 1600, Height: 900},
		Stage: Stage{Width: 4.5, Height: 4.5, Type: "stage", Types: []string{"stage"}},
		L10n:  map[string]string{},
		Store: Store{
			Backend: BackendFile,
			Redis:   Redis{Addr: "localhost:6379", Prefix: "stagemap:map:"},
			Mongo: Mongo{
				URI:        "mongodb://localhost:27017",
				Database:   AppName,
				Collection: "maps",
				Timeout:    Duration{10 * time.Second},
			},
		},
		Server: Server{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			RequestTimeout: Duration{30 * time.Second},
		},
	}
}

// Load reads the file at path on top of the defaults. An empty path means
// the default location; a missing default file yields the defaults, while
// a missing explicit file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return finish(cfg)
		}
		path = p
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return finish(cfg)
		}
		return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	return finish(cfg)
}

// Parse decodes TOML data on top of the defaults.
func Parse(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	if err := cfg.resolve(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolve fills directory defaults and checks the backend name.
func (c *Config) resolve() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendMongo, BackendBadger:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Dir == "" {
		if dir, err := DataDir(); err == nil {
			c.Store.Dir = filepath.Join(dir, "maps")
		}
	}
	if c.Store.Badger.Dir == "" && c.Store.Dir != "" {
		c.Store.Badger.Dir = filepath.Join(filepath.Dir(c.Store.Dir), "badger")
	}
	if c.Render.CacheDir == "" {
		if dir, err := CacheDir(); err == nil {
			c.Render.CacheDir = dir
		}
	}
	if c.Map.Width <= 0 || c.Map.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "map size must be positive, got %vx%v", c.Map.Width, c.Map.Height)
	}
	return nil
}

// =============================================================================
// Paths
// =============================================================================

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the cache directory (~/.cache/stagemap/).
func CacheDir() (string, error) { return xdgDir("XDG_CACHE_HOME", ".cache") }

// DataDir returns the data directory (~/.local/share/stagemap/).
func DataDir() (string, error) { return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")) }

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, fallback, AppName), nil
}
