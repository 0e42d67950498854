package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port           string   `yaml:"port" env:"SERVER_PORT"`
		Mode           string   `yaml:"mode" env:"SERVER_MODE"`
		StaticDir      string   `yaml:"static_dir" env:"SERVER_STATIC_DIR"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
		ReadTimeout    string   `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout   string   `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Auth struct {
		MinPasswordLength int `yaml:"min_password_length" env:"AUTH_MIN_PASSWORD_LENGTH"`
		BcryptCost        int `yaml:"bcrypt_cost" env:"AUTH_BCRYPT_COST"`
	} `yaml:"auth"`

	Upload struct {
		MaxFileSize       int64    `yaml:"max_file_size" env:"UPLOAD_MAX_FILE_SIZE"`
		AllowAnonymous    bool     `yaml:"allow_anonymous" env:"UPLOAD_ALLOW_ANONYMOUS"`
		AllowedExtensions []string `yaml:"allowed_extensions" env:"UPLOAD_ALLOWED_EXTENSIONS"`
	} `yaml:"upload"`

	Storage struct {
		Driver    string `yaml:"driver" env:"STORAGE_DRIVER"`
		LocalPath string `yaml:"local_path" env:"STORAGE_LOCAL_PATH"`
		S3        struct {
			Bucket    string `yaml:"bucket" env:"STORAGE_S3_BUCKET"`
			Region    string `yaml:"region" env:"STORAGE_S3_REGION"`
			Endpoint  string `yaml:"endpoint" env:"STORAGE_S3_ENDPOINT"`
			AccessKey string `yaml:"access_key" env:"STORAGE_S3_ACCESS_KEY"`
			SecretKey string `yaml:"secret_key" env:"STORAGE_S3_SECRET_KEY"`
			Prefix    string `yaml:"prefix" env:"STORAGE_S3_PREFIX"`
		} `yaml:"s3"`
	} `yaml:"storage"`

	Summarizer struct {
		Provider    string  `yaml:"provider" env:"SUMMARIZER_PROVIDER"`
		APIKey      string  `yaml:"api_key" env:"SUMMARIZER_API_KEY"`
		Model       string  `yaml:"model" env:"SUMMARIZER_MODEL"`
		BaseURL     string  `yaml:"base_url" env:"SUMMARIZER_BASE_URL"`
		Temperature float64 `yaml:"temperature" env:"SUMMARIZER_TEMPERATURE"`
		MaxTokens   int     `yaml:"max_tokens" env:"SUMMARIZER_MAX_TOKENS"`
		Timeout     string  `yaml:"timeout" env:"SUMMARIZER_TIMEOUT"`
	} `yaml:"summarizer"`

	Pipeline struct {
		Workers            int `yaml:"workers" env:"PIPELINE_WORKERS"`
		QueueSize          int `yaml:"queue_size" env:"PIPELINE_QUEUE_SIZE"`
		ExtractConcurrency int `yaml:"extract_concurrency" env:"PIPELINE_EXTRACT_CONCURRENCY"`
		ChunkSizeTokens    int `yaml:"chunk_size_tokens" env:"PIPELINE_CHUNK_SIZE_TOKENS"`
		ChunkOverlapTokens int `yaml:"chunk_overlap_tokens" env:"PIPELINE_CHUNK_OVERLAP_TOKENS"`
	} `yaml:"pipeline"`

	Seed struct {
		DefaultTopic string `yaml:"default_topic" env:"SEED_DEFAULT_TOPIC"`
	} `yaml:"seed"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// DefaultMaxFileSize is the upload limit used when none is configured (16 MiB)
const DefaultMaxFileSize int64 = 16 * 1024 * 1024

// LoadConfig loads configuration from a file and environment variables.
// A missing file is not an error; defaults and environment still apply.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "5000"
	config.Server.Mode = "development"
	config.Server.AllowedOrigins = []string{"http://localhost:3000"}
	config.Server.ReadTimeout = "30s"
	config.Server.WriteTimeout = "120s"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "notespace"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 10
	config.Database.ConnMaxLifetime = "1h"

	config.JWT.AccessTokenExpiration = "24h"
	config.JWT.Issuer = "notespace"

	config.Auth.MinPasswordLength = 6
	config.Auth.BcryptCost = 12

	config.Upload.MaxFileSize = DefaultMaxFileSize
	config.Upload.AllowAnonymous = false

	config.Storage.Driver = "local"
	config.Storage.LocalPath = "uploads"

	config.Summarizer.Provider = "openai"
	config.Summarizer.Model = "gpt-4-turbo-preview"
	config.Summarizer.Temperature = 0.7
	config.Summarizer.MaxTokens = 4000
	config.Summarizer.Timeout = "5m"

	config.Pipeline.Workers = 2
	config.Pipeline.QueueSize = 32
	config.Pipeline.ExtractConcurrency = 4
	config.Pipeline.ChunkSizeTokens = 8000
	config.Pipeline.ChunkOverlapTokens = 200

	config.Seed.DefaultTopic = "cs35l"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"JWT access token expiration": config.JWT.AccessTokenExpiration,
		"database connection lifetime": config.Database.ConnMaxLifetime,
		"server read timeout":          config.Server.ReadTimeout,
		"server write timeout":         config.Server.WriteTimeout,
		"summarizer timeout":           config.Summarizer.Timeout,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	if config.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload max file size must be positive")
	}

	if config.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("minimum password length must be at least 1")
	}

	switch strings.ToLower(config.Storage.Driver) {
	case "local":
		if config.Storage.LocalPath == "" {
			return fmt.Errorf("storage local path is required for the local driver")
		}
	case "s3":
		if config.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage s3 bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	switch strings.ToLower(config.Summarizer.Provider) {
	case "openai", "gemini", "noop", "":
	default:
		return fmt.Errorf("unknown summarizer provider %q", config.Summarizer.Provider)
	}

	if config.Pipeline.Workers < 1 || config.Pipeline.QueueSize < 1 {
		return fmt.Errorf("pipeline workers and queue size must be positive")
	}

	if config.Pipeline.ChunkSizeTokens < 1 || config.Pipeline.ChunkOverlapTokens < 0 ||
		config.Pipeline.ChunkOverlapTokens >= config.Pipeline.ChunkSizeTokens {
		return fmt.Errorf("chunk overlap must be smaller than the chunk size")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// AccessTokenTTL returns the parsed JWT lifetime. LoadConfig has already validated it.
func (c *Config) AccessTokenTTL() time.Duration {
	d, _ := time.ParseDuration(c.JWT.AccessTokenExpiration)
	return d
}

// SummarizerTimeout returns the parsed summarizer call deadline
func (c *Config) SummarizerTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Summarizer.Timeout)
	return d
}
