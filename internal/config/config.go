package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Paths       PathsConfig       `yaml:"paths" envconfig:"PATHS"`
	Marketplace MarketplaceConfig `yaml:"marketplace" envconfig:"MARKETPLACE"`
	Pipeline    PipelineConfig    `yaml:"pipeline" envconfig:"PIPELINE"`
	References  ReferencesConfig  `yaml:"references" envconfig:"REFERENCES"`
	TaskTracker TaskTrackerConfig `yaml:"task_tracker" envconfig:"TASK_TRACKER"`
	WebSocket   WebSocketConfig   `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RunTimeout      time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" default:"2h"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/enrich.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	UploadsDir string `yaml:"uploads_dir" envconfig:"UPLOADS_DIR" default:"data/uploads"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"data/reports"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// MarketplaceConfig contains the report API endpoints, credentials and the
// fixed set of marketplaces the pipeline is allowed to query.
type MarketplaceConfig struct {
	BaseURL         string            `yaml:"base_url" envconfig:"BASE_URL"`
	TokenURL        string            `yaml:"token_url" envconfig:"TOKEN_URL"`
	ClientID        string            `yaml:"client_id" envconfig:"CLIENT_ID"`
	ClientSecret    string            `yaml:"client_secret" envconfig:"CLIENT_SECRET"`
	RefreshToken    string            `yaml:"refresh_token" envconfig:"REFRESH_TOKEN"`
	Markets         map[string]string `yaml:"markets" envconfig:"MARKETS"`
	PollInterval    time.Duration     `yaml:"poll_interval" envconfig:"POLL_INTERVAL" default:"30s"`
	MaxPollAttempts int               `yaml:"max_poll_attempts" envconfig:"MAX_POLL_ATTEMPTS" default:"10"`
	RequestsPerSec  float64           `yaml:"requests_per_sec" envconfig:"REQUESTS_PER_SEC" default:"2"`
	Burst           int               `yaml:"burst" envconfig:"BURST" default:"5"`
	HTTPTimeout     time.Duration     `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT" default:"60s"`
}

// SKUNormalization selects how the description-merge lookup key is derived
// from a seller SKU. Both rules have been used operationally; which one is
// correct depends on the adopting catalog's SKU convention.
type SKUNormalization string

const (
	// NormalizeStripSuffix removes a trailing variant tag such as "F2".
	NormalizeStripSuffix SKUNormalization = "strip_suffix"
	// NormalizeLeadingDigits keeps only the leading run of digits.
	NormalizeLeadingDigits SKUNormalization = "leading_digits"
)

// PipelineConfig contains the enrichment stage parameters
type PipelineConfig struct {
	RatingFloor       float64          `yaml:"rating_floor" envconfig:"RATING_FLOOR" default:"0.1"`
	RatingCeiling     float64          `yaml:"rating_ceiling" envconfig:"RATING_CEILING" default:"3.5"`
	SKUNormalization  SKUNormalization `yaml:"sku_normalization" envconfig:"SKU_NORMALIZATION" default:"strip_suffix"`
	SubstituteColFrom int              `yaml:"substitute_col_from" envconfig:"SUBSTITUTE_COL_FROM" default:"1"`
	SubstituteColTo   int              `yaml:"substitute_col_to" envconfig:"SUBSTITUTE_COL_TO" default:"16"`
	EnrichConcurrency int              `yaml:"enrich_concurrency" envconfig:"ENRICH_CONCURRENCY" default:"1"`
}

// ReferencesConfig contains the externally hosted reference table locations
type ReferencesConfig struct {
	DescriptionURL       string        `yaml:"description_url" envconfig:"DESCRIPTION_URL"`
	DescriptionHeaderRow int           `yaml:"description_header_row" envconfig:"DESCRIPTION_HEADER_ROW" default:"2"`
	SubstituteURL        string        `yaml:"substitute_url" envconfig:"SUBSTITUTE_URL"`
	BarcodeHeaderRow     int           `yaml:"barcode_header_row" envconfig:"BARCODE_HEADER_ROW" default:"3"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT" default:"30s"`
}

// TaskTrackerConfig contains the optional follow-up task integration
type TaskTrackerConfig struct {
	Enabled bool              `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	BaseURL string            `yaml:"base_url" envconfig:"BASE_URL"`
	Token   string            `yaml:"token" envconfig:"TOKEN"`
	Targets map[string]string `yaml:"targets" envconfig:"TARGETS"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("IDQ", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if len(cfg.Marketplace.Markets) == 0 {
		cfg.Marketplace.Markets = DefaultMarkets()
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := cfg.ensureDirectories(); err != nil {
		return nil, fmt.Errorf("path setup failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Marketplace.BaseURL == "" {
		envConfig.Marketplace.BaseURL = fileConfig.Marketplace.BaseURL
	}
	if envConfig.Marketplace.TokenURL == "" {
		envConfig.Marketplace.TokenURL = fileConfig.Marketplace.TokenURL
	}
	if envConfig.Marketplace.ClientID == "" {
		envConfig.Marketplace.ClientID = fileConfig.Marketplace.ClientID
	}
	if envConfig.Marketplace.ClientSecret == "" {
		envConfig.Marketplace.ClientSecret = fileConfig.Marketplace.ClientSecret
	}
	if envConfig.Marketplace.RefreshToken == "" {
		envConfig.Marketplace.RefreshToken = fileConfig.Marketplace.RefreshToken
	}
	if len(envConfig.Marketplace.Markets) == 0 {
		envConfig.Marketplace.Markets = fileConfig.Marketplace.Markets
	}
	if envConfig.References.DescriptionURL == "" {
		envConfig.References.DescriptionURL = fileConfig.References.DescriptionURL
	}
	if envConfig.References.SubstituteURL == "" {
		envConfig.References.SubstituteURL = fileConfig.References.SubstituteURL
	}
	if envConfig.TaskTracker.BaseURL == "" {
		envConfig.TaskTracker = fileConfig.TaskTracker
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Pipeline.RatingFloor >= c.Pipeline.RatingCeiling {
		return fmt.Errorf("rating floor %.2f must be below ceiling %.2f",
			c.Pipeline.RatingFloor, c.Pipeline.RatingCeiling)
	}

	switch c.Pipeline.SKUNormalization {
	case NormalizeStripSuffix, NormalizeLeadingDigits:
	default:
		return fmt.Errorf("unknown sku normalization strategy: %q", c.Pipeline.SKUNormalization)
	}

	if c.Pipeline.SubstituteColFrom < 0 || c.Pipeline.SubstituteColTo <= c.Pipeline.SubstituteColFrom {
		return fmt.Errorf("invalid substitute column range [%d, %d)",
			c.Pipeline.SubstituteColFrom, c.Pipeline.SubstituteColTo)
	}

	if c.Marketplace.MaxPollAttempts <= 0 {
		return fmt.Errorf("max poll attempts must be positive")
	}

	if c.Pipeline.EnrichConcurrency < 1 {
		c.Pipeline.EnrichConcurrency = 1
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/enrich.log"
	}

	return nil
}

// ensureDirectories creates the working directories if they do not exist
func (c *Config) ensureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.UploadsDir, c.Paths.ReportsDir, c.Paths.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		filepath.Join("..", "configs", "config.yaml"),
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxUploadBytes:  32 << 20,
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      2 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/enrich.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			UploadsDir: "data/uploads",
			ReportsDir: "data/reports",
			LogsDir:    "logs",
		},
		Marketplace: MarketplaceConfig{
			Markets:         DefaultMarkets(),
			PollInterval:    30 * time.Second,
			MaxPollAttempts: 10,
			RequestsPerSec:  2,
			Burst:           5,
			HTTPTimeout:     60 * time.Second,
		},
		Pipeline: PipelineConfig{
			RatingFloor:       0.1,
			RatingCeiling:     3.5,
			SKUNormalization:  NormalizeStripSuffix,
			SubstituteColFrom: 1,
			SubstituteColTo:   16,
			EnrichConcurrency: 1,
		},
		References: ReferencesConfig{
			DescriptionHeaderRow: 2,
			BarcodeHeaderRow:     3,
			FetchTimeout:         30 * time.Second,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
