package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// DefaultFile is read from the working directory when --config is not given
	DefaultFile = "nameless-numbers.toml"

	envPrefix = "NAMELESS_NUMBERS_"
)

// Config holds all configuration for the application
type Config struct {
	Port       int             `koanf:"port"`
	FPS        int             `koanf:"fps"`
	Seed       uint64          `koanf:"seed"`
	Watch      bool            `koanf:"watch"`
	Verbosity  string          `koanf:"verbosity"`
	VerboseCnt int             `koanf:"verbose"`
	File       string          `koanf:"config"`
	Diagrams   []DiagramConfig `koanf:"diagrams"`
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
//
// A missing default config file is fine; a missing file named by --config
// or NAMELESS_NUMBERS_CONFIG is an error. Without any configured diagrams
// the built-in presets are used.
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"port":      8080,
		"fps":       30,
		"seed":      0,
		"watch":     false,
		"verbosity": "",
		"verbose":   0,
		"config":    DefaultFile,
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional) - nameless-numbers.toml
	path, explicit := filePath(f)
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// 3. Environment Variables
	// Prefix: NAMELESS_NUMBERS_ (e.g., NAMELESS_NUMBERS_PORT=9090)
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = path

	if len(cfg.Diagrams) == 0 {
		cfg.Diagrams = Presets()
	}
	for i := range cfg.Diagrams {
		cfg.Diagrams[i] = cfg.Diagrams[i].Normalize()
	}
	if err := validateIDs(cfg.Diagrams); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// filePath resolves the config file before anything else is loaded, since
// the file sits between defaults and env in the priority order
func filePath(f *pflag.FlagSet) (path string, explicit bool) {
	if f != nil {
		if fl := f.Lookup("config"); fl != nil && fl.Changed {
			return fl.Value.String(), true
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "CONFIG"); ok && v != "" {
		return v, true
	}
	return DefaultFile, false
}

func validateIDs(diagrams []DiagramConfig) error {
	seen := make(map[string]bool, len(diagrams))
	for i, d := range diagrams {
		if d.ID == "" {
			return fmt.Errorf("diagram %d has no id", i)
		}
		if seen[d.ID] {
			return fmt.Errorf("duplicate diagram id %q", d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
