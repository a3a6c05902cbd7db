// Package config handles the banana configuration file and environment
// overrides. Values read here are consumed only at job submission time; the
// engine snapshots them into the job record and never re-reads config
// mid-lifecycle.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// EnvAPIKey is the environment variable that always wins over the config file
const EnvAPIKey = "GEMINI_API_KEY"

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// APIConfig holds remote service settings
type APIConfig struct {
	Key   string `toml:"key"`
	Model string `toml:"model"`
}

// DefaultsConfig holds the default generation parameters
type DefaultsConfig struct {
	AspectRatio string `toml:"aspect_ratio"`
	Size        string `toml:"size"`
	NumImages   int    `toml:"num_images"`
}

// OutputConfig holds artifact download settings
type OutputConfig struct {
	Directory    string `toml:"directory"`
	AutoDownload bool   `toml:"auto_download"`
}

// EngineConfig holds retry and concurrency settings
type EngineConfig struct {
	MaxAttempts int `toml:"max_attempts"`
	Concurrency int `toml:"concurrency"`
}

// Config is the full configuration tree backed by config.toml
type Config struct {
	API      APIConfig      `toml:"api"`
	Defaults DefaultsConfig `toml:"defaults"`
	Output   OutputConfig   `toml:"output"`
	Engine   EngineConfig   `toml:"engine"`

	path string
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		API: APIConfig{
			Model: "gemini-3-pro-image-preview",
		},
		Defaults: DefaultsConfig{
			AspectRatio: "1:1",
			Size:        "1K",
			NumImages:   1,
		},
		Output: OutputConfig{
			Directory:    "./banana-output",
			AutoDownload: true,
		},
		Engine: EngineConfig{
			MaxAttempts: 3,
			Concurrency: 2,
		},
	}
}

// DefaultPath returns the config file location under the user's config dir
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	return filepath.Join(dir, "banana", "config.toml"), nil
}

// LoadOrCreate reads the config file, creating it with defaults when absent.
// The GEMINI_API_KEY environment variable overrides the stored key.
func LoadOrCreate() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt is LoadOrCreate with an explicit file path
func LoadOrCreateAt(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else {
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.API.Key = key
	}
	return cfg, nil
}

// Path returns the file this config was loaded from
func (c *Config) Path() string {
	return c.path
}

// SetPath points the config at a file for subsequent saves
func (c *Config) SetPath(path string) {
	c.path = path
}

// Save writes the config back to its file
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// AspectRatios lists the aspect ratios the API accepts
func AspectRatios() []string {
	return []string{"1:1", "2:3", "3:2", "3:4", "4:3", "4:5", "5:4", "9:16", "16:9", "21:9"}
}

// Sizes lists the supported image sizes
func Sizes() []string {
	return []string{"1K", "2K", "4K"}
}

// Keys lists every settable config key
func Keys() []string {
	return []string{
		"api.key",
		"api.model",
		"defaults.aspect_ratio",
		"defaults.size",
		"defaults.num_images",
		"output.directory",
		"output.auto_download",
		"engine.max_attempts",
		"engine.concurrency",
	}
}

// Set updates a config value by dotted key path
func (c *Config) Set(key, value string) error {
	switch key {
	case "api.key":
		c.API.Key = value
	case "api.model":
		c.API.Model = value
	case "defaults.aspect_ratio":
		if !contains(AspectRatios(), value) {
			return fmt.Errorf("invalid aspect ratio %q, valid values: %s", value, strings.Join(AspectRatios(), ", "))
		}
		c.Defaults.AspectRatio = value
	case "defaults.size":
		if !contains(Sizes(), value) {
			return fmt.Errorf("invalid size %q, valid values: %s", value, strings.Join(Sizes(), ", "))
		}
		c.Defaults.Size = value
	case "defaults.num_images":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 4 {
			return fmt.Errorf("num_images must be between 1 and 4")
		}
		c.Defaults.NumImages = n
	case "output.directory":
		c.Output.Directory = value
	case "output.auto_download":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value %q", value)
		}
		c.Output.AutoDownload = b
	case "engine.max_attempts":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("max_attempts must be a positive integer")
		}
		c.Engine.MaxAttempts = n
	case "engine.concurrency":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("concurrency must be a positive integer")
		}
		c.Engine.Concurrency = n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Get returns a config value by dotted key path. The API key is masked.
func (c *Config) Get(key string) (string, bool) {
	switch key {
	case "api.key":
		if c.API.Key == "" {
			return "", true
		}
		return "****", true
	case "api.model":
		return c.API.Model, true
	case "defaults.aspect_ratio":
		return c.Defaults.AspectRatio, true
	case "defaults.size":
		return c.Defaults.Size, true
	case "defaults.num_images":
		return strconv.Itoa(c.Defaults.NumImages), true
	case "output.directory":
		return c.Output.Directory, true
	case "output.auto_download":
		return strconv.FormatBool(c.Output.AutoDownload), true
	case "engine.max_attempts":
		return strconv.Itoa(c.Engine.MaxAttempts), true
	case "engine.concurrency":
		return strconv.Itoa(c.Engine.Concurrency), true
	default:
		return "", false
	}
}

func contains(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}
