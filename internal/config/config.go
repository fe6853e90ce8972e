// Package config loads the materializer CLI's configuration: policy for
// the materialization planner plus the ambient settings (state database
// path, logging) the rest of the process needs.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/willibrandon/materializer/internal/materialize"
)

// Config is the root configuration structure.
type Config struct {
	Materialize MaterializeConfig `mapstructure:"materialize"`
	StateDB     StateDBConfig     `mapstructure:"state_db"`
	Debug       bool              `mapstructure:"debug"`
	LogFile     string            `mapstructure:"log_file"`
}

// MaterializeConfig mirrors materialize.Config, expressed in terms viper
// can unmarshal directly from YAML or environment variables.
type MaterializeConfig struct {
	PacketFiltersEnabled     bool   `mapstructure:"packet_filters_enabled"`
	AllowFullMaterialization bool   `mapstructure:"allow_full_materialization"`
	AllowStraddledJoins      bool   `mapstructure:"allow_straddled_joins"`
	FrontierStrategy         string `mapstructure:"frontier_strategy"`
	PartialEnabled           bool   `mapstructure:"partial_enabled"`
}

// StateDBConfig controls where the planner's durable state is persisted.
type StateDBConfig struct {
	Path            string        `mapstructure:"path"`
	DiagnosticsTTL  time.Duration `mapstructure:"diagnostics_ttl"`
}

// LoadConfig loads configuration from YAML file and environment variables.
// It searches for config.yaml in ~/.config/materializer/ and the current
// directory.
func LoadConfig() (*Config, error) {
	return LoadConfigFromPath("")
}

// LoadConfigFromPath loads configuration from a specific path. If
// configPath is empty, it searches default locations.
func LoadConfigFromPath(configPath string) (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("MATERIALIZER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	applyDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME/.config/materializer")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createDefaultConfig()
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// createDefaultConfig builds a Config entirely from viper defaults, used
// when no config file exists on disk.
func createDefaultConfig() (*Config, error) {
	cfg := &Config{
		Materialize: MaterializeConfig{
			PacketFiltersEnabled:     viper.GetBool("materialize.packet_filters_enabled"),
			AllowFullMaterialization: viper.GetBool("materialize.allow_full_materialization"),
			AllowStraddledJoins:      viper.GetBool("materialize.allow_straddled_joins"),
			FrontierStrategy:         viper.GetString("materialize.frontier_strategy"),
			PartialEnabled:           viper.GetBool("materialize.partial_enabled"),
		},
		StateDB: StateDBConfig{
			Path:           viper.GetString("state_db.path"),
			DiagnosticsTTL: viper.GetDuration("state_db.diagnostics_ttl"),
		},
		Debug:   viper.GetBool("debug"),
		LogFile: viper.GetString("log_file"),
	}
	return cfg, nil
}

// ValidateConfig validates the configuration values.
func ValidateConfig(cfg *Config) error {
	validStrategies := []string{"none", "all-partial", "readers"}
	valid := false
	for _, s := range validStrategies {
		if cfg.Materialize.FrontierStrategy == s {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("materialize.frontier_strategy must be one of: %v, got %s", validStrategies, cfg.Materialize.FrontierStrategy)
	}

	if cfg.StateDB.Path == "" {
		return fmt.Errorf("state_db.path cannot be empty")
	}

	if cfg.StateDB.DiagnosticsTTL < time.Hour || cfg.StateDB.DiagnosticsTTL > 30*24*time.Hour {
		return fmt.Errorf("state_db.diagnostics_ttl must be between 1h and 720h (30d), got %v", cfg.StateDB.DiagnosticsTTL)
	}

	return nil
}

// ToMaterializeConfig translates the YAML-friendly MaterializeConfig into
// the planner's own Config type.
func (c MaterializeConfig) ToMaterializeConfig() materialize.Config {
	strategy := materialize.FrontierNone
	switch c.FrontierStrategy {
	case "all-partial":
		strategy = materialize.FrontierAllPartial
	case "readers":
		strategy = materialize.FrontierReaders
	}
	return materialize.Config{
		PacketFiltersEnabled:     c.PacketFiltersEnabled,
		AllowFullMaterialization: c.AllowFullMaterialization,
		AllowStraddledJoins:      c.AllowStraddledJoins,
		FrontierStrategy:         strategy,
		PartialEnabled:           c.PartialEnabled,
	}
}

// applyDefaults sets the viper defaults every config load starts from.
func applyDefaults() {
	viper.SetDefault("materialize.packet_filters_enabled", false)
	viper.SetDefault("materialize.allow_full_materialization", false)
	viper.SetDefault("materialize.allow_straddled_joins", false)
	viper.SetDefault("materialize.frontier_strategy", "none")
	viper.SetDefault("materialize.partial_enabled", true)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.TempDir()
	}
	viper.SetDefault("state_db.path", homeDir+"/.config/materializer/state.db")
	viper.SetDefault("state_db.diagnostics_ttl", "168h")

	viper.SetDefault("debug", false)
	viper.SetDefault("log_file", "")
}
