package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of every environment variable read by Load
const EnvPrefix = "TRACKER"

// DateLayout is the layout of the query window bounds
const DateLayout = "2006-01-02"

// Config represents the complete application configuration
type Config struct {
	Vortexa   VortexaConfig   `yaml:"vortexa" split_words:"true"`
	Report    ReportConfig    `yaml:"report" split_words:"true"`
	Store     StoreConfig     `yaml:"store" split_words:"true"`
	Logging   LoggingConfig   `yaml:"logging" split_words:"true"`
	Telemetry TelemetryConfig `yaml:"telemetry" split_words:"true"`
}

// VortexaConfig contains the movements query and API client settings
type VortexaConfig struct {
	BaseURL         string        `yaml:"base_url" split_words:"true" validate:"required,url"`
	KeyFile         string        `yaml:"key_file" split_words:"true" validate:"required"`
	From            string        `yaml:"from" split_words:"true" validate:"required,datetime=2006-01-02"`
	To              string        `yaml:"to" split_words:"true" validate:"required,datetime=2006-01-02"`
	Activity        string        `yaml:"activity" split_words:"true" validate:"required"`
	Unit            string        `yaml:"unit" split_words:"true" validate:"required"`
	PageSize        int           `yaml:"page_size" split_words:"true" validate:"min=1,max=10000"`
	Timeout         time.Duration `yaml:"timeout" split_words:"true" validate:"gt=0"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec" split_words:"true" validate:"gt=0"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" split_words:"true" validate:"min=1"`
	MaxRetries      int           `yaml:"max_retries" split_words:"true" validate:"min=0,max=10"`
	RetryBackoff    time.Duration `yaml:"retry_backoff" split_words:"true" validate:"gte=0"`
}

// ReportConfig contains the output settings
type ReportConfig struct {
	OutputPath  string   `yaml:"output_path" split_words:"true" validate:"required"`
	CSVPath     string   `yaml:"csv_path" split_words:"true"`
	SummaryPath string   `yaml:"summary_path" split_words:"true"`
	Category    string   `yaml:"category" split_words:"true" validate:"required"`
	Grades      []string `yaml:"grades" split_words:"true" validate:"min=1,dive,required"`
}

// StoreConfig contains the snapshot database settings. An empty path
// disables snapshots.
type StoreConfig struct {
	Path string `yaml:"path" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" split_words:"true" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true" validate:"required_unless=Output console"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	Environment     string  `yaml:"environment" split_words:"true"`
	TraceExporter   string  `yaml:"trace_exporter" split_words:"true" validate:"oneof=stdout none"`
	SampleRatio     float64 `yaml:"sample_ratio" split_words:"true" validate:"gte=0,lte=1"`
	MetricsTextfile string  `yaml:"metrics_textfile" split_words:"true"`
}

// LoadOptions selects the optional sources read by Load
type LoadOptions struct {
	// ConfigFile is a YAML file; empty searches the default locations
	ConfigFile string
	// EnvFile is a dotenv file loaded into the environment when present
	EnvFile string
}

// Load builds the configuration from defaults, then the YAML file, then
// TRACKER_* environment variables, and validates the result.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	cfg := Default()

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = getConfigFilePath()
	} else if _, err := os.Stat(configFile); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configFile, err)
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current values
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath returns the first config file found in the default locations
func getConfigFilePath() string {
	locations := []string{
		"tracker.yaml",
		"configs/tracker.yaml",
	}
	for _, location := range locations {
		if FileExists(location) {
			return location
		}
	}
	return ""
}

var validate = validator.New()

// Validate checks field constraints and that the query window is not empty
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	from, to, err := c.Window()
	if err != nil {
		return err
	}
	if !from.Before(to) {
		return fmt.Errorf("query window is empty: from %s is not before to %s", c.Vortexa.From, c.Vortexa.To)
	}
	return nil
}

// Window returns the query window bounds as UTC midnights
func (c *Config) Window() (time.Time, time.Time, error) {
	from, err := time.Parse(DateLayout, c.Vortexa.From)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q: %w", c.Vortexa.From, err)
	}
	to, err := time.Parse(DateLayout, c.Vortexa.To)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q: %w", c.Vortexa.To, err)
	}
	return from, to, nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Vortexa: VortexaConfig{
			BaseURL:         DefaultBaseURL,
			KeyFile:         DefaultKeyFile,
			From:            DefaultFrom,
			To:              DefaultTo,
			Activity:        "any_activity",
			Unit:            "b",
			PageSize:        500,
			Timeout:         60 * time.Second,
			RateLimitPerSec: 2,
			RateLimitBurst:  2,
			MaxRetries:      3,
			RetryBackoff:    time.Second,
		},
		Report: ReportConfig{
			OutputPath: DefaultOutputPath,
			Category:   DefaultCategory,
			Grades:     DefaultGrades(),
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/tracker.log",
		},
		Telemetry: TelemetryConfig{
			Environment:   "development",
			TraceExporter: "none",
			SampleRatio:   1.0,
		},
	}
}
