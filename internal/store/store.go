// Package store manages METAMAGIC_HOME and its config.yaml.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kokistudios/metamagic/internal/catalog"
)

// MetadataConfig holds where sidecar documents live and which device to select.
type MetadataConfig struct {
	Dir    string `yaml:"dir"`
	Device string `yaml:"device"`
}

// FixtureConfig holds synthetic writer settings.
type FixtureConfig struct {
	Path string `yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config holds metamagic configuration.
type Config struct {
	Version  string         `yaml:"version"`
	Metadata MetadataConfig `yaml:"metadata,omitempty"`
	Fixture  FixtureConfig  `yaml:"fixture,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Metadata: MetadataConfig{
			Dir:    "./metadata",
			Device: "1fc0c10b0a534202",
		},
		Fixture: FixtureConfig{
			Path: "test_file.json",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Store represents a loaded METAMAGIC_HOME.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the METAMAGIC_HOME path, respecting the METAMAGIC_HOME env var.
func Home() string {
	if h := os.Getenv("METAMAGIC_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".metamagic")
	}
	return filepath.Join(home, ".metamagic")
}

// Init creates METAMAGIC_HOME with a default config.yaml.
func Init(home string, force bool) error {
	if _, err := os.Stat(home); err == nil && !force {
		return fmt.Errorf("METAMAGIC_HOME already exists at %s (use --force to reinitialize)", home)
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}

	s := &Store{Home: home, Config: DefaultConfig()}
	return s.SaveConfig()
}

// Load reads an existing METAMAGIC_HOME.
// Missing config fields are filled from defaults.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return &Store{Home: home, Config: cfg}, nil
}

// LoadOrDefault is Load, except that a missing config.yaml yields the defaults.
func LoadOrDefault(home string) (*Store, error) {
	s, err := Load(home)
	if errors.Is(err, os.ErrNotExist) {
		return &Store{Home: home, Config: DefaultConfig()}, nil
	}
	return s, err
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(s.Home, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.Home, err)
	}
	if err := os.WriteFile(s.Path("config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ConfigKeys lists the keys accepted by GetConfigValue and SetConfigValue.
var ConfigKeys = []string{"metadata.dir", "metadata.device", "fixture.path", "log.level"}

// GetConfigValue returns a config value by dot-path key.
func (s *Store) GetConfigValue(key string) (string, error) {
	switch key {
	case "metadata.dir":
		return s.Config.Metadata.Dir, nil
	case "metadata.device":
		return s.Config.Metadata.Device, nil
	case "fixture.path":
		return s.Config.Fixture.Path, nil
	case "log.level":
		return s.Config.Log.Level, nil
	default:
		return "", unknownKey(key)
	}
}

// SetConfigValue sets a config value by dot-path key (e.g. "metadata.dir").
func (s *Store) SetConfigValue(key, value string) error {
	switch key {
	case "metadata.dir":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("metadata.dir cannot be empty")
		}
		s.Config.Metadata.Dir = value
	case "metadata.device":
		s.Config.Metadata.Device = value
	case "fixture.path":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("fixture.path cannot be empty")
		}
		s.Config.Fixture.Path = value
	case "log.level":
		if !validLevel(value) {
			return fmt.Errorf("log.level must be one of %s", strings.Join(logLevels, ", "))
		}
		s.Config.Log.Level = value
	default:
		return unknownKey(key)
	}
	return s.SaveConfig()
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key: %s\nValid keys: %s", key, strings.Join(ConfigKeys, ", "))
}

func validLevel(level string) bool {
	for _, l := range logLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Path resolves a path within METAMAGIC_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// CheckHealth verifies the config file under home.
func CheckHealth(home string) []Issue {
	var issues []Issue

	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			issues = append(issues, Issue{"warning", fmt.Sprintf("no config.yaml at %s, using defaults", cfgPath)})
		} else {
			issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
		}
		return issues
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
		return issues
	}
	if !validLevel(cfg.Log.Level) {
		issues = append(issues, Issue{"warning", fmt.Sprintf("unknown log.level %q, falling back to info", cfg.Log.Level)})
	}
	if strings.TrimSpace(cfg.Metadata.Dir) == "" {
		issues = append(issues, Issue{"error", "metadata.dir is empty"})
	}
	return issues
}

// CheckMetadata loads every document in dir and reports the ones that fail.
func CheckMetadata(dir string) []Issue {
	var issues []Issue

	res, err := catalog.LoadAll(dir)
	if err != nil {
		return append(issues, Issue{"error", err.Error()})
	}
	for _, sk := range res.Skipped {
		issues = append(issues, Issue{"warning", fmt.Sprintf("%s: %v", filepath.Base(sk.Path), sk.Err)})
	}
	if len(res.Records) == 0 {
		issues = append(issues, Issue{"warning", fmt.Sprintf("no metadata documents loaded from %s", dir)})
	}
	return issues
}

// FixIssues attempts to repair simple issues in METAMAGIC_HOME.
func FixIssues(home string) []string {
	var fixed []string

	cfgPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		s := &Store{Home: home, Config: DefaultConfig()}
		if s.SaveConfig() == nil {
			fixed = append(fixed, "recreated missing config.yaml with defaults")
		}
	}
	return fixed
}
