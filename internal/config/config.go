// Package config loads and manages the console configuration file
// stored at ~/.atelier/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atelierpos/atelier/internal/loyalty"
)

// DefaultConfigDir is the directory under the user's home for console
// state (config file, cart snapshot).
const DefaultConfigDir = ".atelier"

// DefaultConfigFile is the config file name within the config directory.
const DefaultConfigFile = "config.yaml"

// APIConfig points the client at the remote commerce API.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key,omitempty"`
	APISecret string        `yaml:"api_secret,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// CartConfig controls cart snapshot persistence.
type CartConfig struct {
	SnapshotPath string `yaml:"snapshot_path"`
}

// ConsoleConfig controls the back-office HTTP surface.
type ConsoleConfig struct {
	Port int `yaml:"port"`
}

// Config represents the contents of ~/.atelier/config.yaml.
type Config struct {
	API     APIConfig             `yaml:"api"`
	Cart    CartConfig            `yaml:"cart"`
	Console ConsoleConfig         `yaml:"console"`
	Earning []loyalty.EarningRule `yaml:"earning_rules"`
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

// DefaultPath returns the full path to the config file.
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Load reads the config from path. Returns a default config if the
// file doesn't exist; a malformed file is an error (unlike the cart
// snapshot, the config is operator-authored and should not be
// silently discarded).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	for _, r := range cfg.Earning {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return cfg, nil
}

// Save writes the config to path, creating the directory if needed.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration: a local commerce API and
// state files under ~/.atelier.
func Default() *Config {
	snapshot := "cart.json"
	if dir, err := configDir(); err == nil {
		snapshot = filepath.Join(dir, "cart.json")
	}
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 15 * time.Second,
		},
		Cart:    CartConfig{SnapshotPath: snapshot},
		Console: ConsoleConfig{Port: 7380},
	}
}
