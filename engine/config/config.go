// Package config loads engine settings from a TOML file, with .env files and
// GLACIER_* environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "glacier.toml"

type App struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type Log struct {
	Level string `toml:"level"`
}

type Render struct {
	Validation bool `toml:"validation"`
}

type Assets struct {
	Dir     string `toml:"dir"`
	Watch   bool   `toml:"watch"`
	Workers int    `toml:"workers"`
}

type Model struct {
	CacheDir    string `toml:"cache_dir"`
	MergeConfig string `toml:"merge_config"`
}

type Config struct {
	App    App    `toml:"app"`
	Log    Log    `toml:"log"`
	Render Render `toml:"render"`
	Assets Assets `toml:"assets"`
	Model  Model  `toml:"model"`
}

func Default() *Config {
	return &Config{
		App: App{
			Title:  "Glacier",
			Width:  800,
			Height: 600,
		},
		Log:    Log{Level: "info"},
		Render: Render{Validation: true},
		Assets: Assets{
			Dir:     "resources",
			Watch:   false,
			Workers: 2,
		},
		Model: Model{
			CacheDir: "",
		},
	}
}

// Load reads path on top of the defaults. A missing file is not an error.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	// .env is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := Decode(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Decode unmarshals TOML into cfg, keeping values the document does not set.
func Decode(data []byte, cfg *Config) error {
	return toml.Unmarshal(data, cfg)
}

func (c *Config) Validate() error {
	if c.App.Width == 0 || c.App.Height == 0 {
		return fmt.Errorf("window size must be non-zero, got %dx%d", c.App.Width, c.App.Height)
	}
	if c.Assets.Workers < 1 {
		return fmt.Errorf("assets.workers must be at least 1, got %d", c.Assets.Workers)
	}
	return nil
}

type lookupFn func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFn) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var err error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && err == nil {
			b, perr := strconv.ParseBool(strings.TrimSpace(v))
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = b
		}
	}
	u32 := func(key string, dst *uint32) {
		if v, ok := lookup(key); ok && err == nil {
			n, perr := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = uint32(n)
		}
	}

	str("GLACIER_TITLE", &c.App.Title)
	u32("GLACIER_WIDTH", &c.App.Width)
	u32("GLACIER_HEIGHT", &c.App.Height)
	str("GLACIER_LOG_LEVEL", &c.Log.Level)
	boolean("GLACIER_VALIDATION", &c.Render.Validation)
	str("GLACIER_ASSETS_DIR", &c.Assets.Dir)
	boolean("GLACIER_ASSETS_WATCH", &c.Assets.Watch)
	str("GLACIER_MODEL_CACHE_DIR", &c.Model.CacheDir)
	str("GLACIER_MODEL_MERGE_CONFIG", &c.Model.MergeConfig)
	if v, ok := lookup("GLACIER_ASSETS_WORKERS"); ok && err == nil {
		n, perr := strconv.Atoi(strings.TrimSpace(v))
		if perr != nil {
			err = fmt.Errorf("GLACIER_ASSETS_WORKERS: %w", perr)
		} else {
			c.Assets.Workers = n
		}
	}
	return err
}
