package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Loader   LoaderConfig   `yaml:"loader" envconfig:"LOADER"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/erplens.log"`
}

// LoaderConfig bounds what the file-loading collaborator accepts
type LoaderConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb" envconfig:"MAX_FILE_SIZE_MB" default:"50"`
	MaxRows       int `yaml:"max_rows" envconfig:"MAX_ROWS" default:"500000"`
}

// AnalysisConfig carries every threshold the analyzers and engines consult.
// It is passed by value into each analyzer/engine call so that per-request
// overrides are possible and tests stay deterministic; nothing reads
// process-wide state.
type AnalysisConfig struct {
	DeadStockThresholdDays           int     `yaml:"dead_stock_threshold_days" envconfig:"DEAD_STOCK_THRESHOLD_DAYS" default:"180"`
	OverstockThresholdDays           int     `yaml:"overstock_threshold_days" envconfig:"OVERSTOCK_THRESHOLD_DAYS" default:"90"`
	CustomerConcentrationWarningPct  float64 `yaml:"customer_concentration_warning_pct" envconfig:"CUSTOMER_CONCENTRATION_WARNING_PCT" default:"20"`
	CustomerConcentrationCriticalPct float64 `yaml:"customer_concentration_critical_pct" envconfig:"CUSTOMER_CONCENTRATION_CRITICAL_PCT" default:"30"`

	// Pareto concentration labels. Values are percentages of total value
	// held by the top 20% of items.
	ParetoHighConcentrationPct   float64 `yaml:"pareto_high_concentration_pct" envconfig:"PARETO_HIGH_CONCENTRATION_PCT" default:"80"`
	ParetoMediumConcentrationPct float64 `yaml:"pareto_medium_concentration_pct" envconfig:"PARETO_MEDIUM_CONCENTRATION_PCT" default:"60"`

	// Recovery-rate multipliers used for estimated savings. These are
	// deliberately conservative heuristic estimates, not forecasts.
	DeadStockRecoveryRate   float64 `yaml:"dead_stock_recovery_rate" envconfig:"DEAD_STOCK_RECOVERY_RATE" default:"0.5"`
	ExcessStockRecoveryRate float64 `yaml:"excess_stock_recovery_rate" envconfig:"EXCESS_STOCK_RECOVERY_RATE" default:"0.2"`
	ClearanceRecoveryRate   float64 `yaml:"clearance_recovery_rate" envconfig:"CLEARANCE_RECOVERY_RATE" default:"0.6"`
	GenericRecoveryRate     float64 `yaml:"generic_recovery_rate" envconfig:"GENERIC_RECOVERY_RATE" default:"0.3"`
	VarianceRecoveryRate    float64 `yaml:"variance_recovery_rate" envconfig:"VARIANCE_RECOVERY_RATE" default:"0.5"`

	// Schema gate: domains below this confidence, or with less than half
	// of their required fields matched, are not analyzed.
	MinSchemaConfidence   float64 `yaml:"min_schema_confidence" envconfig:"MIN_SCHEMA_CONFIDENCE" default:"0.5"`
	MinRequiredFieldRatio float64 `yaml:"min_required_field_ratio" envconfig:"MIN_REQUIRED_FIELD_RATIO" default:"0.5"`
}

// Load loads configuration from environment variables and an optional
// YAML config file. Environment variables take precedence over the file,
// the file over struct defaults.
func Load() (*Config, error) {
	return LoadFromFile(configFilePath())
}

// LoadFromFile loads configuration with an explicit config file path
func LoadFromFile(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("ERPLENS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			if err := applyFile(configFile, &cfg); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration with all struct defaults applied and
// no environment or file overrides. Intended for tests and the CLI.
func Default() Config {
	var cfg Config
	// envconfig applies the default tags even when no variables are set;
	// an error here means a malformed default tag, which is a bug.
	if err := envconfig.Process("ERPLENS_DEFAULT_ONLY", &cfg); err != nil {
		panic(fmt.Sprintf("config defaults invalid: %v", err))
	}
	return cfg
}

// DefaultAnalysis returns the default analysis thresholds
func DefaultAnalysis() AnalysisConfig {
	return Default().Analysis
}

// applyFile overlays YAML file values onto cfg for fields the environment
// did not set. envconfig has already run, so only zero-valued fields are
// overwritten.
func applyFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	fileCfg := *cfg
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return err
	}

	// Fields explicitly set via env keep their values: unmarshalling into
	// a copy seeded from the env-processed config means YAML only wins
	// where it names a key.
	envSet := func(key string) bool {
		_, ok := os.LookupEnv("ERPLENS_" + key)
		return ok
	}
	if !envSet("SERVER_PORT") {
		cfg.Server = fileCfg.Server
	}
	if !envSet("LOGGING_LEVEL") && !envSet("LOGGING_OUTPUT") {
		cfg.Logging = fileCfg.Logging
	}
	if !envSet("SECURITY_ENABLE_CORS") {
		cfg.Security = fileCfg.Security
	}
	if !envSet("LOADER_MAX_FILE_SIZE_MB") {
		cfg.Loader = fileCfg.Loader
	}
	cfg.Analysis = fileCfg.Analysis
	return nil
}

// configFilePath returns the config file location, overridable via env
func configFilePath() string {
	if path := os.Getenv("ERPLENS_CONFIG_FILE"); path != "" {
		return path
	}
	return "config.yaml"
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Loader.MaxFileSizeMB <= 0 {
		return fmt.Errorf("loader max file size must be positive")
	}
	return c.Analysis.Validate()
}

// Validate checks the analysis thresholds for internal consistency
func (a AnalysisConfig) Validate() error {
	if a.DeadStockThresholdDays <= 0 {
		return fmt.Errorf("dead stock threshold must be positive days, got %d", a.DeadStockThresholdDays)
	}
	if a.OverstockThresholdDays <= 0 {
		return fmt.Errorf("overstock threshold must be positive days, got %d", a.OverstockThresholdDays)
	}
	if a.CustomerConcentrationWarningPct <= 0 || a.CustomerConcentrationWarningPct > 100 {
		return fmt.Errorf("customer concentration warning pct out of range: %.1f", a.CustomerConcentrationWarningPct)
	}
	if a.CustomerConcentrationCriticalPct < a.CustomerConcentrationWarningPct {
		return fmt.Errorf("critical concentration pct (%.1f) below warning pct (%.1f)",
			a.CustomerConcentrationCriticalPct, a.CustomerConcentrationWarningPct)
	}
	if a.MinSchemaConfidence < 0 || a.MinSchemaConfidence > 1 {
		return fmt.Errorf("min schema confidence out of range: %.2f", a.MinSchemaConfidence)
	}
	if a.MinRequiredFieldRatio < 0 || a.MinRequiredFieldRatio > 1 {
		return fmt.Errorf("min required field ratio out of range: %.2f", a.MinRequiredFieldRatio)
	}
	return nil
}
