package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"tabkit/internal/errors"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "TABKIT"

// configFileEnv names a YAML file that overrides the default search locations.
const configFileEnv = "TABKIT_CONFIG"

var structValidator = validator.New()

// Config represents the complete application configuration
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Tracing  TracingConfig  `yaml:"tracing" envconfig:"TRACING"`
	Metrics  MetricsConfig  `yaml:"metrics" envconfig:"METRICS"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// TracingConfig controls span export
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" envconfig:"ENABLED"`
	Exporter    string  `yaml:"exporter" envconfig:"EXPORTER" validate:"oneof=stdout none"`
	SampleRatio float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// MetricsConfig controls the Prometheus textfile written at the end of a run
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled" envconfig:"ENABLED"`
	TextfilePath string `yaml:"textfile_path" envconfig:"TEXTFILE_PATH" validate:"required_if=Enabled true"`
}

// AnalysisConfig tunes the analytical operations
type AnalysisConfig struct {
	// StrictVariance fails a correlation that involves a zero-variance column
	// instead of reporting NaN.
	StrictVariance bool `yaml:"strict_variance" envconfig:"STRICT_VARIANCE"`
}

// Load loads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	configFile, err := getConfigFilePath()
	if err != nil {
		return nil, err
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("failed to load config from %s", configFile), err)
		}
	}

	// Fields carry no default tags, so unset variables leave file values alone.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file at filePath onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		return errors.NewConfigError("config validation failed", err)
	}
	return nil
}

// getConfigFilePath returns the path to the config file, or "" when none is present
func getConfigFilePath() (string, error) {
	if explicit := os.Getenv(configFileEnv); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.NewConfigError(fmt.Sprintf("config file %s from %s is not readable", explicit, configFileEnv), err)
		}
		return explicit, nil
	}

	locations := []string{
		"tabkit.yaml",
		"configs/tabkit.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}
	return "", nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "console",
			FilePath: "logs/tabkit.log",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "stdout",
			SampleRatio: 1,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}
