package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration shared by the CLI, gateway and worker.
type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "text"

	// Server
	Port          int   `env:"PORT" envDefault:"8080"`
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"104857600"` // 100MB in bytes

	// LLM
	LLMProvider  string `env:"LLM_PROVIDER" envDefault:"openai"` // "openai" (uses OpenAI API)
	OpenAIKey    string `env:"OPENAI_API_KEY"`
	LLMModel     string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMSeed      int64  `env:"LLM_SEED" envDefault:"123"`
	LLMBatchSize int    `env:"LLM_BATCH_SIZE" envDefault:"0"` // 0 sends every checklist item in one request

	// Audit
	MaxPages  int    `env:"MAX_PAGES" envDefault:"50"`
	OutputDir string `env:"OUTPUT_DIR" envDefault:"./reports"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats"` // "nats" (worker and enqueue only)
	QueueURL      string `env:"QUEUE_URL"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
