// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	CompletionModel string `yaml:"completion_model"`
	DraftModel      string `yaml:"draft_model"`
	GuardrailModel  string `yaml:"guardrail_model"`
	EmbeddingModel  string `yaml:"embedding_model"`
}

type AuthConfig struct {
	// JWTSecret is the HMAC secret shared with the external auth provider.
	JWTSecret string `yaml:"jwt_secret"`
}

type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	PriceID       string `yaml:"price_id"`
	WebhookSecret string `yaml:"webhook_secret"`
	FrontendURL   string `yaml:"frontend_url"`
}

type PaymentConfig struct {
	Stripe StripeConfig `yaml:"stripe"`
}

type PipelineConfig struct {
	Workers             int           `yaml:"workers"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	EssayCost           int           `yaml:"essay_cost"`
	SignupCredits       int           `yaml:"signup_credits"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	SourceConcurrency   int           `yaml:"source_concurrency"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Payment  PaymentConfig  `yaml:"payment"`
	Pipeline PipelineConfig `yaml:"pipeline"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	// Dev runs may leave the key empty and fall back to the noop adapter.
	if cfg.AI.APIKey == "" && !dev {
		return nil, errors.New("ai.api_key is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.AI.CompletionModel == "" {
		cfg.AI.CompletionModel = "gpt-4o-2024-08-06"
	}
	if cfg.AI.DraftModel == "" {
		cfg.AI.DraftModel = "gpt-4o-2024-11-20"
	}
	if cfg.AI.GuardrailModel == "" {
		cfg.AI.GuardrailModel = "gpt-4o-mini"
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.PollInterval <= 0 {
		cfg.Pipeline.PollInterval = 500 * time.Millisecond
	}
	if cfg.Pipeline.EssayCost <= 0 {
		cfg.Pipeline.EssayCost = 2
	}
	if cfg.Pipeline.SignupCredits == 0 {
		cfg.Pipeline.SignupCredits = 2
	}
	if cfg.Pipeline.SimilarityThreshold <= 0 {
		cfg.Pipeline.SimilarityThreshold = 0.9
	}
	if cfg.Pipeline.SourceConcurrency <= 0 {
		cfg.Pipeline.SourceConcurrency = 3
	}
}
