package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Input     InputConfig     `yaml:"input" envconfig:"INPUT"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Run       RunConfig       `yaml:"run" envconfig:"RUN"`

	// Engine holds the scoring constants, rules and thresholds. It is only
	// read from the config file; Run carries the env-overridable subset.
	Engine intel.Config `yaml:"engine" ignored:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gte=0"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RunTimeout      time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" validate:"gt=0"`

	// RunOnStart runs the pipeline at startup when no archived run was restored
	RunOnStart bool `yaml:"run_on_start" envconfig:"RUN_ON_START"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// InputConfig points at the market snapshot files.
type InputConfig struct {
	EstablishmentsFile string `yaml:"establishments_file" envconfig:"ESTABLISHMENTS_FILE"`
	ReviewsFile        string `yaml:"reviews_file" envconfig:"REVIEWS_FILE"`
	Sheet              string `yaml:"sheet" envconfig:"SHEET"`
}

// OutputConfig controls the batch report files.
type OutputConfig struct {
	Dir     string   `yaml:"dir" envconfig:"DIR" validate:"required"`
	Formats []string `yaml:"formats" envconfig:"FORMATS" validate:"dive,oneof=csv json xlsx summary"`
}

// StorageConfig configures the optional Postgres archive.
type StorageConfig struct {
	Enabled         bool          `yaml:"enabled" envconfig:"ENABLED"`
	DSN             string        `yaml:"dsn" envconfig:"DSN" validate:"required_if=Enabled true"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS" validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME" validate:"gte=0"`
}

// TelemetryConfig toggles tracing and metrics.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// RunConfig holds the per-run settings that may come from the environment.
type RunConfig struct {
	AsOf      string    `yaml:"as_of" envconfig:"AS_OF" validate:"omitempty,datetime=2006-01-02"`
	Workers   int       `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
	CohortKey string    `yaml:"cohort_key" envconfig:"COHORT_KEY" validate:"omitempty,oneof=district none"`
	Weights   []float64 `yaml:"weights" envconfig:"WEIGHTS" validate:"omitempty,len=5,dive,gte=0,lte=1"`
}

// Load reads configuration in this order, later sources winning:
// defaults, the YAML file (path, or the first of the standard locations when
// empty), a .env file, and INTEL_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validate validates the configuration
func (c *Config) validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}
	return nil
}

// EngineConfig merges the run settings into the engine configuration and
// validates the result. An empty as-of date resolves to the day of now. Run
// weights are either absent or exactly one per pillar.
func (c *Config) EngineConfig(now time.Time) (intel.Config, error) {
	ec := c.Engine
	asOf := now.UTC()
	if c.Run.AsOf != "" {
		parsed, err := time.Parse(time.DateOnly, c.Run.AsOf)
		if err != nil {
			return intel.Config{}, fmt.Errorf("parse as_of: %w", err)
		}
		asOf = parsed
	}
	ec.AsOf = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	if c.Run.Workers > 0 {
		ec.Workers = c.Run.Workers
	}
	if c.Run.CohortKey != "" {
		ec.CohortKey = c.Run.CohortKey
	}
	switch n := len(c.Run.Weights); n {
	case 0:
	case 5:
		ec.Weights = intel.Weights{
			Reputation:      c.Run.Weights[0],
			Responsiveness:  c.Run.Weights[1],
			DigitalPresence: c.Run.Weights[2],
			Intelligence:    c.Run.Weights[3],
			Visibility:      c.Run.Weights[4],
		}
	default:
		return intel.Config{}, apierrors.NewAppValidationError(
			fmt.Sprintf("run.weights: expected 5 weights in pillar order, got %d", n)).
			WithContext("weights", n)
	}

	if err := ec.Validate(); err != nil {
		return intel.Config{}, err
	}
	return ec, nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG_FILE"); p != "" {
		return p
	}
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      DefaultRunTimeout,
			RunOnStart:      true,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/intel.log",
		},
		Input: InputConfig{
			EstablishmentsFile: "data/establishments.csv",
		},
		Output: OutputConfig{
			Dir:     DefaultOutputDir,
			Formats: []string{"csv", "json", "summary"},
		},
		Storage: StorageConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			MetricsEnabled: true,
		},
		Engine: intel.DefaultConfig(),
	}
}
