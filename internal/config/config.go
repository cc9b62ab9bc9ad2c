package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Precedence, highest first:
// 1. Vault (if configured) for api.token and server.apiKeys
// 2. Environment variables (JOBPREP_API_BASEURL, ...), including values from .env
// 3. Config file values
// 4. Default values
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	API           APIConfig           `mapstructure:"api"`
	Assessment    AssessmentConfig    `mapstructure:"assessment"`
	Resume        ResumeConfig        `mapstructure:"resume"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Server        ServerConfig        `mapstructure:"server"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	// Source is the config file that was read, empty when none was found.
	Source string `mapstructure:"-"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	LogFile          string   `mapstructure:"logFile"`
	LogMaxSizeMB     int      `mapstructure:"logMaxSizeMB"`
	LogMaxBackups    int      `mapstructure:"logMaxBackups"`
	LogMaxAgeDays    int      `mapstructure:"logMaxAgeDays"`
	LogCompress      bool     `mapstructure:"logCompress"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
}

// APIConfig describes the career backend the client talks to.
type APIConfig struct {
	BaseURL        string               `mapstructure:"baseURL"`
	Origin         string               `mapstructure:"origin"`
	Token          string               `mapstructure:"token"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	RateLimit      ClientRateConfig     `mapstructure:"rateLimit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// ClientRateConfig throttles outgoing requests.
type ClientRateConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// AssessmentConfig holds the questionnaire paging and progress policy.
type AssessmentConfig struct {
	PageSize      int                 `mapstructure:"pageSize"`
	ProgressBands ProgressBandsConfig `mapstructure:"progressBands"`
}

// ProgressBandsConfig holds percentage breakpoints: below Low is low, below Mid is mid.
type ProgressBandsConfig struct {
	Low int `mapstructure:"low"`
	Mid int `mapstructure:"mid"`
}

// ResumeConfig holds résumé form limits.
type ResumeConfig struct {
	MaxPhotoBytes  int64 `mapstructure:"maxPhotoBytes"`
	MaxTextLength  int   `mapstructure:"maxTextLength"`
	PreviewMaxSide int   `mapstructure:"previewMaxSide"`
}

// StorageConfig selects and configures the draft persistence backend.
type StorageConfig struct {
	Backend string              `mapstructure:"backend"`
	Key     string              `mapstructure:"key"`
	File    FileStorageConfig   `mapstructure:"file"`
	Redis   RedisStorageConfig  `mapstructure:"redis"`
	SQLite  SQLiteStorageConfig `mapstructure:"sqlite"`
	Memory  MemoryStorageConfig `mapstructure:"memory"`
	Watch   WatchConfig         `mapstructure:"watch"`
}

type FileStorageConfig struct {
	Path       string `mapstructure:"path"`
	QuotaBytes int64  `mapstructure:"quotaBytes"`
}

type RedisStorageConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

type SQLiteStorageConfig struct {
	Path string `mapstructure:"path"`
}

type MemoryStorageConfig struct {
	QuotaBytes int64 `mapstructure:"quotaBytes"`
}

// WatchConfig configures the draft file watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	MaxRequestSize int64         `mapstructure:"maxRequestSize"`
	SessionTTL     time.Duration `mapstructure:"sessionTTL"` // idle assessment sessions are dropped after this

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int  `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int  `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	ServiceName     string           `mapstructure:"serviceName"`
	ServiceInstance string           `mapstructure:"serviceInstance"`
	ConsoleOutput   bool             `mapstructure:"consoleOutput"`
	PrettyPrint     bool             `mapstructure:"prettyPrint"`
	SampleRate      float64          `mapstructure:"sampleRate"`
	Metrics         MetricsConfig    `mapstructure:"metrics"`
	Prometheus      PrometheusConfig `mapstructure:"prometheus"`
	OTLP            OTLPConfig       `mapstructure:"otlp"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from .env, environment variables and a config file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/jobprep/")
	v.AddConfigPath("$HOME/.jobprep")
	v.AddConfigPath(".")

	return load(v)
}

// load applies defaults and env handling to v, reads the config file if one is
// configured, and returns the validated result.
func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("JOBPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileUsed = v.ConfigFileUsed()
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Source = configFileUsed

	config.applyFallbacks()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}

	if c.Assessment.PageSize <= 0 {
		return fmt.Errorf("assessment page size must be positive, got %d", c.Assessment.PageSize)
	}

	bands := c.Assessment.ProgressBands
	if bands.Low < 0 || bands.Mid > 100 || bands.Low > bands.Mid {
		return fmt.Errorf("progress bands must satisfy 0 <= low <= mid <= 100, got low=%d mid=%d", bands.Low, bands.Mid)
	}

	if c.Resume.MaxPhotoBytes <= 0 {
		return fmt.Errorf("resume max photo size must be positive")
	}
	if c.Resume.MaxTextLength <= 0 {
		return fmt.Errorf("resume max text length must be positive")
	}

	if c.Storage.Key == "" {
		return fmt.Errorf("storage key is required")
	}
	switch c.Storage.Backend {
	case "file":
		if c.Storage.File.Path == "" {
			return fmt.Errorf("storage.file.path is required for the file backend")
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	return nil
}
