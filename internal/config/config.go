package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Mailer   MailerConfig   `mapstructure:"mailer"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// AuthConfig holds JWT authentication configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// MailerConfig holds outbound mail API configuration
type MailerConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	FromAddress string        `mapstructure:"from_address"`
	FromName    string        `mapstructure:"from_name"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// OutboxConfig holds outbox worker configuration
type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

// CacheConfig holds read-view cache configuration
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/workdesk.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Auth defaults
	viper.SetDefault("auth.issuer", "workdesk")
	viper.SetDefault("auth.token_ttl", 12*time.Hour)

	// Mailer defaults
	viper.SetDefault("mailer.timeout", 15*time.Second)
	viper.SetDefault("mailer.max_retries", 3)
	viper.SetDefault("mailer.from_name", "Workdesk")

	// Outbox defaults
	viper.SetDefault("outbox.poll_interval", 10*time.Second)
	viper.SetDefault("outbox.batch_size", 20)
	viper.SetDefault("outbox.max_attempts", 5)

	// Cache defaults
	viper.SetDefault("cache.ttl", 2*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("auth.jwt_secret", "WORKDESK_JWT_SECRET")
	viper.BindEnv("mailer.base_url", "WORKDESK_MAIL_BASE_URL")
	viper.BindEnv("mailer.api_key", "WORKDESK_MAIL_API_KEY")
	viper.BindEnv("mailer.from_address", "WORKDESK_MAIL_FROM")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Mailer.BaseURL == "" {
		return fmt.Errorf("mailer.base_url is required")
	}
	if c.Mailer.FromAddress == "" {
		return fmt.Errorf("mailer.from_address is required")
	}
	if c.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("outbox.max_attempts must be positive")
	}
	return nil
}
