// ABOUTME: Console configuration layered as defaults, YAML file, .env, then environment variables.
// ABOUTME: Command-line flags are applied last by the CLI on top of the loaded Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/crystalens/runapi"
)

// Environment variables read by ApplyEnv. The NEXT_PUBLIC_ names are
// accepted so an existing frontend .env keeps working.
const (
	EnvHTTP          = "CRYSTALENS_API_HTTP"
	EnvWS            = "CRYSTALENS_API_WS"
	EnvLegacyHTTP    = "NEXT_PUBLIC_API_HTTP"
	EnvLegacyWS      = "NEXT_PUBLIC_API_WS"
	EnvLogLevel      = "CRYSTALENS_LOG_LEVEL"
	EnvLogFormat     = "CRYSTALENS_LOG_FORMAT"
	EnvWebAddr       = "CRYSTALENS_WEB_ADDR"
	EnvMarkdownStyle = "CRYSTALENS_MARKDOWN_STYLE"
)

// Config holds every tunable of the console.
type Config struct {
	API APIConfig `yaml:"api"`
	Log LogConfig `yaml:"log"`
	Web WebConfig `yaml:"web"`
	UI  UIConfig  `yaml:"ui"`
}

// APIConfig locates the backend.
type APIConfig struct {
	HTTP string `yaml:"http"`
	// WS defaults to HTTP with the scheme swapped.
	WS string `yaml:"ws"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "", "text" or "json"
	// File receives logs while the terminal UI owns the screen.
	File string `yaml:"file"`
}

// WebConfig controls the optional browser mirror.
type WebConfig struct {
	Addr string `yaml:"addr"` // empty disables it
}

// UIConfig controls the terminal console.
type UIConfig struct {
	MarkdownStyle string `yaml:"markdown_style"` // glamour style; "none" disables markdown
	Filter        string `yaml:"filter"`         // starting view
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: APIConfig{HTTP: runapi.DefaultHTTPBase},
		Log: LogConfig{Level: "info"},
		UI:  UIConfig{MarkdownStyle: "dark", Filter: "agent"},
	}
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// Path is the YAML file. Empty means the default location, where a
	// missing file is fine; a missing explicit path is an error.
	Path string
	// SkipDotEnv disables .env discovery.
	SkipDotEnv bool
	// Lookup reads environment variables; nil means os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Load builds a Config from defaults, the YAML file, .env files and the environment.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path := opts.Path
	explicit := path != ""
	if !explicit {
		p, err := DefaultConfigPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	if !opts.SkipDotEnv {
		LoadDotEnvAuto()
	}
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	ApplyEnv(&cfg, lookup)
	return cfg, nil
}

// LoadFile merges the YAML file at path into cfg. Keys absent from the file
// keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with non-empty environment values.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	get := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}
	if v, ok := get(EnvHTTP, EnvLegacyHTTP); ok {
		cfg.API.HTTP = v
	}
	if v, ok := get(EnvWS, EnvLegacyWS); ok {
		cfg.API.WS = v
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	if v, ok := get(EnvLogFormat); ok {
		cfg.Log.Format = v
	}
	if v, ok := get(EnvWebAddr); ok {
		cfg.Web.Addr = v
	}
	if v, ok := get(EnvMarkdownStyle); ok {
		cfg.UI.MarkdownStyle = v
	}
}

// WSBase returns the configured WebSocket base, deriving it from the HTTP
// base when unset.
func (c Config) WSBase() string {
	if c.API.WS != "" {
		return c.API.WS
	}
	return runapi.DeriveWSBase(c.API.HTTP)
}

// Validate checks the values that would otherwise fail late.
func (c Config) Validate() error {
	if _, err := runapi.New(c.API.HTTP, c.WSBase()); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", c.Log.Format)
	}
	return nil
}

// Marshal renders cfg as YAML, for `config` style output and tests.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
