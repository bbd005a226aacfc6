package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"verifhir/internal/config"
	"verifhir/internal/llm"
	"verifhir/internal/logger"
	"verifhir/internal/queue"
)

// envFiles are read in order; earlier files win since godotenv never
// overrides a variable that is already set.
var envFiles = []string{"config/.env", ".env"}

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config config.Config
	Log    *slog.Logger
	LLM    llm.Client
	Queue  queue.Queue
}

// Options selects what Build wires.
type Options struct {
	// LogWriter defaults to stdout.
	LogWriter io.Writer
	// LogFormat overrides LOG_FORMAT when set.
	LogFormat string
	// WithLLM builds the LLM client; OPENAI_API_KEY is then required.
	WithLLM bool
	// WithQueue connects to the task queue; QUEUE_URL is then required.
	WithQueue bool
}

// Build loads env, config, and the requested shared components.
func Build(opts Options) (Deps, error) {
	if err := loadEnv(envFiles...); err != nil {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	if opts.LogWriter == nil {
		opts.LogWriter = os.Stdout
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	log := logger.NewWithWriter(opts.LogWriter, cfg.LogLevel, cfg.LogFormat)

	deps := Deps{Config: cfg, Log: log}
	if opts.WithLLM {
		client, err := buildLLM(cfg, log)
		if err != nil {
			return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		deps.LLM = client
	}
	if opts.WithQueue {
		q, err := buildQueue(cfg, log)
		if err != nil {
			return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
		}
		deps.Queue = q
	}
	return deps, nil
}

// LLMFor returns a client for model, reusing the configured client when
// model is empty or already the configured one.
func (d Deps) LLMFor(model string) (llm.Client, error) {
	if d.LLM != nil && (model == "" || model == d.Config.LLMModel) {
		return d.LLM, nil
	}
	cfg := d.Config
	if model != "" {
		cfg.LLMModel = model
	}
	return buildLLM(cfg, d.Log)
}

func loadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%s: %w", f, err)
		}
	}
	return nil
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL, nats.Name("verifhir"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid option: nats)", cfg.QueueProvider)
	}
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey, openai.ChatModel(cfg.LLMModel), cfg.LLMSeed)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", cfg.LLMModel, "seed", cfg.LLMSeed)
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid option: openai)", cfg.LLMProvider)
	}
}
