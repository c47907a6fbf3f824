package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Advisor   AdvisorConfig   `mapstructure:"advisor"`
	Documents DocumentsConfig `mapstructure:"documents"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Lark      LarkConfig      `mapstructure:"lark"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Report    ReportConfig    `mapstructure:"report"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
}

// DatabaseConfig selects the claim store. Driver "memory" keeps everything
// in process and ignores the remaining fields.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// EngineConfig tunes the review engine
type EngineConfig struct {
	RequireAllocation bool          `mapstructure:"require_allocation"`
	AdvisorTimeout    time.Duration `mapstructure:"advisor_timeout"`
	AdvisorWorkers    int           `mapstructure:"advisor_workers"`
	AdvisorQueueSize  int           `mapstructure:"advisor_queue_size"`
}

// AdvisorConfig configures the rule-based reconciliation advisor
type AdvisorConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Factor         string `mapstructure:"factor"`
	VocabularyPath string `mapstructure:"vocabulary_path"`
}

// DocumentsConfig selects where supporting documents and reports live
type DocumentsConfig struct {
	Backend  string `mapstructure:"backend"` // local or s3
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// OpenAIConfig holds the document quality check settings
type OpenAIConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxPages    int           `mapstructure:"max_pages"`
	PromptsPath string        `mapstructure:"prompts_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	Enabled       bool              `mapstructure:"enabled"`
	AppID         string            `mapstructure:"app_id"`
	AppSecret     string            `mapstructure:"app_secret"`
	ReceiveIDType string            `mapstructure:"receive_id_type"`
	Recipients    map[string]string `mapstructure:"recipients"`
}

// KafkaConfig holds the claim event producer settings
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// ReportConfig controls admission report generation
type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// Load reads an optional .env file, then the YAML config at configPath, then
// environment overrides. Keys map to env vars as CLAIMS_<SECTION>_<KEY>.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CLAIMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/claims.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("engine.require_allocation", false)
	v.SetDefault("engine.advisor_timeout", 30*time.Second)
	v.SetDefault("engine.advisor_workers", 4)
	v.SetDefault("engine.advisor_queue_size", 64)

	v.SetDefault("advisor.enabled", true)
	v.SetDefault("advisor.factor", "0.9")

	v.SetDefault("documents.backend", "local")
	v.SetDefault("documents.base_dir", "data/documents")

	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.max_pages", 2)
	v.SetDefault("openai.timeout", 60*time.Second)

	v.SetDefault("lark.receive_id_type", "user_id")

	v.SetDefault("kafka.topic", "claim-events")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100*time.Millisecond)

	v.SetDefault("report.prefix", "reports")
}

// bindEnvVars binds credentials to their conventional variable names
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("documents.bucket", "CLAIMS_DOCUMENTS_BUCKET")
	_ = v.BindEnv("documents.region", "AWS_REGION", "CLAIMS_DOCUMENTS_REGION")
}

// Validate checks required values of the enabled integrations
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case "memory":
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or memory, got %q", c.Database.Driver)
	}

	switch c.Documents.Backend {
	case "local":
		if c.Documents.BaseDir == "" {
			return fmt.Errorf("documents.base_dir is required")
		}
	case "s3":
		if c.Documents.Bucket == "" {
			return fmt.Errorf("documents.bucket is required")
		}
		if c.Documents.Region == "" {
			return fmt.Errorf("documents.region is required")
		}
	default:
		return fmt.Errorf("documents.backend must be local or s3, got %q", c.Documents.Backend)
	}

	if c.Engine.AdvisorTimeout <= 0 {
		return fmt.Errorf("engine.advisor_timeout must be positive")
	}

	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required")
		}
	}

	return nil
}
