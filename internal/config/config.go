package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	DefaultMaxRecurringOccurrences = 52
	DefaultRequiredCount           = 1
	DefaultLogDir                  = "logs"
)

// DatabaseConfig selects and configures the record store
type DatabaseConfig struct {
	Driver        string `yaml:"driver" validate:"required,oneof=postgres memory"`
	URL           string `yaml:"url,omitempty" validate:"required_if=Driver postgres"`
	RunMigrations bool   `yaml:"runMigrations,omitempty"`
}

// AuthorizationConfig controls role resolution
type AuthorizationConfig struct {
	// LegacyGroupRoles lets group roles stand in for organization roles.
	// Deprecated: organization roles are authoritative.
	LegacyGroupRoles bool `yaml:"legacyGroupRoles,omitempty"`
}

// ShiftTemplate is a named recurring shift pattern
type ShiftTemplate struct {
	Name     string `yaml:"name" validate:"required"`
	RRule    string `yaml:"rrule" validate:"required"`
	Duration string `yaml:"duration" validate:"required"`
	Title    string `yaml:"title" validate:"required"`
}

// ParsedDuration returns the template's shift length
func (t ShiftTemplate) ParsedDuration() (time.Duration, error) {
	return time.ParseDuration(t.Duration)
}

// ShiftsConfig bounds shift creation
type ShiftsConfig struct {
	MaxRecurringOccurrences int             `yaml:"maxRecurringOccurrences,omitempty" validate:"min=1,max=366"`
	DefaultRequiredCount    int             `yaml:"defaultRequiredCount,omitempty" validate:"min=1"`
	Templates               []ShiftTemplate `yaml:"templates,omitempty" validate:"dive"`
}

// RosterConfig configures roster publishing
type RosterConfig struct {
	SpreadsheetID string `yaml:"spreadsheetID,omitempty"`
}

// LoggingConfig configures the log file location
type LoggingConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// Config represents the application configuration
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Authorization AuthorizationConfig `yaml:"authorization,omitempty"`
	Shifts        ShiftsConfig        `yaml:"shifts,omitempty"`
	Roster        RosterConfig        `yaml:"roster,omitempty"`
	Logging       LoggingConfig       `yaml:"logging,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns an in-memory configuration with every default applied
func Default() *Config {
	cfg := &Config{Database: DatabaseConfig{Driver: DriverMemory}}
	applyDefaults(cfg)
	return cfg
}

// Load loads and validates the configuration from volts_config.yaml
// It looks in the current directory, then ~/.volts, then the home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for an environment.
// For example, env="test" will look for "volts_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findFile(ConfigFileName(env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Shifts.MaxRecurringOccurrences == 0 {
		cfg.Shifts.MaxRecurringOccurrences = DefaultMaxRecurringOccurrences
	}
	if cfg.Shifts.DefaultRequiredCount == 0 {
		cfg.Shifts.DefaultRequiredCount = DefaultRequiredCount
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = DefaultLogDir
	}
}

// Validate validates the configuration struct and checks template syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	seen := make(map[string]bool)
	for i, tmpl := range cfg.Shifts.Templates {
		if seen[tmpl.Name] {
			return fmt.Errorf("duplicate shift template name %q", tmpl.Name)
		}
		seen[tmpl.Name] = true

		if _, err := rrule.StrToRRule(tmpl.RRule); err != nil {
			return fmt.Errorf("invalid rrule in shifts.templates[%d]: %w", i, err)
		}
		d, err := tmpl.ParsedDuration()
		if err != nil {
			return fmt.Errorf("invalid duration in shifts.templates[%d]: %w", i, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid duration in shifts.templates[%d]: must be positive", i)
		}
	}

	return nil
}

// Template returns the named shift template
func (c *Config) Template(name string) (*ShiftTemplate, bool) {
	for i := range c.Shifts.Templates {
		if c.Shifts.Templates[i].Name == name {
			return &c.Shifts.Templates[i], true
		}
	}
	return nil, false
}

// ConfigFileName returns the config file name for env, e.g. "volts_config.test.yaml"
func ConfigFileName(env string) string {
	if env == "" {
		return "volts_config.yaml"
	}
	return "volts_config." + env + ".yaml"
}

// findFile looks for name in the current directory, then ~/.volts, then the home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	for _, dir := range []string{filepath.Join(homeDir, ".volts"), homeDir} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s not found in current directory, ~/.volts or home directory", name)
}
