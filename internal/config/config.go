package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/afroash/multisensor/internal/models"
	"github.com/afroash/multisensor/internal/sensor"
)

// Config holds all configuration for the measurement pipeline
type Config struct {
	Sensors    []SensorConfig    `yaml:"sensors"`
	Thresholds []ThresholdConfig `yaml:"thresholds"`
	Storage    StorageConfig     `yaml:"storage"`
	Poll       PollConfig        `yaml:"poll"`
	Server     ServerSettings    `yaml:"server"`
	Feed       FeedSettings      `yaml:"feed"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// SensorConfig describes one simulated sensor. Min and Max fall back to the
// kind's default range when omitted.
type SensorConfig struct {
	Name string   `yaml:"name"`
	Kind string   `yaml:"kind"`
	Min  *float64 `yaml:"min"`
	Max  *float64 `yaml:"max"`
}

// ThresholdConfig is an alarm threshold applied at startup and on reload
type ThresholdConfig struct {
	Sensor    string  `yaml:"sensor"`
	Limit     float64 `yaml:"limit"`
	Direction string  `yaml:"direction"`
}

// StorageConfig contains CSV file settings. JournalPath enables a
// background CSV journal of every stored measurement.
type StorageConfig struct {
	CSVPath      string        `yaml:"csv_path"`
	DataDir      string        `yaml:"data_dir"`
	JournalPath  string        `yaml:"journal_path"`
	JournalFlush time.Duration `yaml:"journal_flush"`
}

// PollConfig enables periodic reading cycles. Zero disables polling.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.OverrideFromEnv()
	return cfg
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(yamlData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()
	config.OverrideFromEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// ApplyDefaults sets default values for any unset fields
func (c *Config) ApplyDefaults() {
	if len(c.Sensors) == 0 {
		for _, info := range sensor.DefaultRegistry().Infos() {
			c.Sensors = append(c.Sensors, SensorConfig{Name: info.Name, Kind: info.Kind})
		}
	}
	for i := range c.Sensors {
		s := &c.Sensors[i]
		kind, err := sensor.ParseKind(s.Kind)
		if err != nil {
			continue // reported by Validate
		}
		lo, hi := sensor.DefaultRange(kind)
		if s.Min == nil {
			s.Min = &lo
		}
		if s.Max == nil {
			s.Max = &hi
		}
	}

	if c.Storage.CSVPath == "" {
		c.Storage.CSVPath = "SensorMeasurements.csv"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "./data"
	}
	if c.Storage.JournalPath != "" && c.Storage.JournalFlush == 0 {
		c.Storage.JournalFlush = 5 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	c.Server.applyDefaults()
	c.Feed.applyDefaults()
}

// OverrideFromEnv overrides config values from environment variables
func (c *Config) OverrideFromEnv() {
	// Only override if environment variable is set (non-empty)
	if v := os.Getenv("MULTISENSOR_CSV_PATH"); v != "" {
		c.Storage.CSVPath = v
	}
	if v := os.Getenv("MULTISENSOR_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	c.Server.overrideFromEnv()
	c.Feed.overrideFromEnv()
}

// Validate checks the pipeline configuration. Server and feed settings are
// checked separately by the commands that need them.
func (c *Config) Validate() error {
	if len(c.Sensors) == 0 {
		return fmt.Errorf("at least one sensor is required")
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	names := make(map[string]bool, len(c.Sensors))
	for _, s := range c.Sensors {
		names[s.Name] = true
	}
	for _, t := range c.Thresholds {
		if !names[t.Sensor] {
			return fmt.Errorf("threshold references unknown sensor %q", t.Sensor)
		}
		if _, err := models.ParseDirection(t.Direction); err != nil {
			return fmt.Errorf("threshold for %q: %w", t.Sensor, err)
		}
	}

	if c.Storage.JournalFlush < 0 {
		return fmt.Errorf("journal flush period must not be negative")
	}
	if c.Poll.Interval < 0 {
		return fmt.Errorf("poll interval must not be negative")
	}
	if c.Poll.Interval > 0 && c.Poll.Interval < 100*time.Millisecond {
		return fmt.Errorf("poll interval must be at least 100ms")
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("log format must be json or text")
	}
	return nil
}

// Registry builds the configured sensor set
func (c *Config) Registry() (*sensor.Registry, error) {
	sensors := make([]sensor.Sensor, 0, len(c.Sensors))
	for _, sc := range c.Sensors {
		kind, err := sensor.ParseKind(sc.Kind)
		if err != nil {
			return nil, fmt.Errorf("sensor %q: %w", sc.Name, err)
		}
		if sc.Min == nil || sc.Max == nil {
			return nil, fmt.Errorf("sensor %q: %w: min and max are required", sc.Name, sensor.ErrInvalidRange)
		}
		s, err := sensor.New(kind, sc.Name, *sc.Min, *sc.Max)
		if err != nil {
			return nil, fmt.Errorf("sensor %q: %w", sc.Name, err)
		}
		sensors = append(sensors, s)
	}
	return sensor.NewRegistry(sensors...)
}

// ThresholdSetter accepts threshold configuration
type ThresholdSetter interface {
	ConfigureThreshold(name string, limit float64, direction models.Direction) (models.Threshold, error)
}

// ApplyThresholds configures every threshold on target. Each failure is
// collected and the remaining thresholds are still applied.
func (c *Config) ApplyThresholds(target ThresholdSetter) error {
	var errs []error
	for _, t := range c.Thresholds {
		dir, err := models.ParseDirection(t.Direction)
		if err != nil {
			errs = append(errs, fmt.Errorf("threshold for %q: %w", t.Sensor, err))
			continue
		}
		if _, err := target.ConfigureThreshold(t.Sensor, t.Limit, dir); err != nil {
			errs = append(errs, fmt.Errorf("threshold for %q: %w", t.Sensor, err))
		}
	}
	return errors.Join(errs...)
}

// String returns a safe string representation (hides auth tokens)
func (c *Config) String() string {
	return fmt.Sprintf("Config{Sensors: %d, Thresholds: %d, Storage: %+v, Poll: %s, Server: [Addr=%s, Token=%s], Feed: [URL=%s, Token=%s], Logging: %+v}",
		len(c.Sensors),
		len(c.Thresholds),
		c.Storage,
		c.Poll.Interval,
		c.Server.Address(),
		maskToken(c.Server.AuthToken),
		c.Feed.URL,
		maskToken(c.Feed.AuthToken),
		c.Logging,
	)
}

// maskToken masks all but first 4 characters of a token
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
