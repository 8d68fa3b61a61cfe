package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"    validate:"required"`
	Retry       RetryConfig       `mapstructure:"retry"       validate:"required"`
	Task        TaskConfig        `mapstructure:"task"        validate:"required"`
	Translation TranslationConfig `mapstructure:"translation" validate:"required"`
	LLM         LLMConfig         `mapstructure:"llm"         validate:"required"`
	Shop        ShopConfig        `mapstructure:"shop"        validate:"required"`
	Webhook     WebhookConfig     `mapstructure:"webhook"     validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// RetryConfig tunes the retry ledger scheduler.
type RetryConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"  validate:"required,gt=0"`
	BatchSize     int           `mapstructure:"batch_size"     validate:"required,gt=0"`
	MaxAttempts   int           `mapstructure:"max_attempts"   validate:"required,gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"required,gt=0"`
	Retention     time.Duration `mapstructure:"retention"      validate:"required,gt=0"`
}

// TaskConfig tunes task record housekeeping.
type TaskConfig struct {
	// ExpiryTTL is how long a task record remains readable after creation
	// before it becomes eligible for garbage collection.
	ExpiryTTL time.Duration `mapstructure:"expiry_ttl" validate:"required,gt=0"`
}

// TranslationConfig tunes the batch orchestrator.
type TranslationConfig struct {
	// MaxConcurrency bounds the number of per-locale translation steps
	// running at once during the long-field phase. 1 means sequential.
	MaxConcurrency int `mapstructure:"max_concurrency" validate:"required,gte=1,lte=5"`
}

// LLMConfig contains all AI provider related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"      validate:"required"`
	ModelName         string `mapstructure:"model_name"          validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// ShopConfig contains the remote content API settings.
type ShopConfig struct {
	GraphQLEndpoint string        `mapstructure:"graphql_endpoint" validate:"required,url"`
	AccessToken     string        `mapstructure:"access_token"     validate:"required"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  validate:"required,gt=0"`
}

// WebhookConfig contains inbound webhook verification settings.
type WebhookConfig struct {
	Secret string `mapstructure:"secret" validate:"required,min=16"`
}
