package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifhir/internal/config"
	"verifhir/internal/llm"
	"verifhir/internal/logger"
)

func TestBuildLLM(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr string
	}{
		{"missing key", config.Config{LLMProvider: "openai"}, "OPENAI_API_KEY is required when LLM_PROVIDER=openai"},
		{"unknown provider", config.Config{LLMProvider: "ollama", OpenAIKey: "sk-test"}, "invalid LLM_PROVIDER: ollama (valid option: openai)"},
		{"ok", config.Config{LLMProvider: "openai", OpenAIKey: "sk-test", LLMModel: "gpt-4o"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := buildLLM(tt.cfg, logger.Discard())
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "gpt-4o", client.(*llm.OpenAIClient).Model())
		})
	}
}

func TestBuildQueueRequiresURL(t *testing.T) {
	_, err := buildQueue(config.Config{QueueProvider: "nats"}, logger.Discard())
	assert.EqualError(t, err, "QUEUE_URL is required when QUEUE_PROVIDER=nats")

	_, err = buildQueue(config.Config{QueueProvider: "kafka"}, logger.Discard())
	assert.Error(t, err)
}

func TestLLMFor(t *testing.T) {
	base := new(llm.MockClient)
	deps := Deps{
		Config: config.Config{LLMProvider: "openai", OpenAIKey: "sk-test", LLMModel: "gpt-4o-mini"},
		Log:    logger.Discard(),
		LLM:    base,
	}

	same, err := deps.LLMFor("")
	require.NoError(t, err)
	assert.Same(t, base, same)

	same, err = deps.LLMFor("gpt-4o-mini")
	require.NoError(t, err)
	assert.Same(t, base, same)

	other, err := deps.LLMFor("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", other.(*llm.OpenAIClient).Model())
}

func TestLoadEnvIgnoresMissingFiles(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.env")
	require.NoError(t, os.WriteFile(present, []byte("VERIFHIR_TEST_VAR=from-file\n"), 0o600))
	t.Setenv("VERIFHIR_TEST_VAR", "")
	os.Unsetenv("VERIFHIR_TEST_VAR")

	require.NoError(t, loadEnv(filepath.Join(dir, "missing.env"), present))
	assert.Equal(t, "from-file", os.Getenv("VERIFHIR_TEST_VAR"))
}

func TestBuildWithoutLLM(t *testing.T) {
	t.Chdir(t.TempDir())
	deps, err := Build(Options{LogWriter: os.Stderr, LogFormat: "text"})
	require.NoError(t, err)
	assert.Equal(t, "text", deps.Config.LogFormat)
	assert.Nil(t, deps.LLM)
	assert.Nil(t, deps.Queue)
}
