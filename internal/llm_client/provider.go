package llm_client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mavplan/internal/config"
)

var ErrNotInitialized = errors.New("llm provider is not initialized")

type Config struct {
	Backend     string
	Model       string
	Host        string
	APIKey      string
	Temperature float64
}

// FromModel maps the model section of the configuration file.
func FromModel(m config.Model) Config {
	return Config{
		Backend:     m.Type,
		Model:       m.Name,
		Host:        m.BaseURL,
		APIKey:      m.APIKey,
		Temperature: m.Temperature,
	}
}

// Provider is one LLM backend. The model argument of Generate and
// GenerateJSON may be empty to use the configured model.
type Provider interface {
	Init(cfg Config) error
	Name() string
	DefaultModel() string
	AllowedModelOrDefault(model string) string
	Generate(ctx context.Context, prompt, model string) (string, error)
	GenerateJSON(ctx context.Context, prompt, model string, schema any) (string, error)
}

// New builds and initializes the provider selected by cfg.Backend.
func New(cfg Config) (Provider, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "ollama"
	}
	var p Provider
	switch backend {
	case "ollama":
		p = &ollamaProvider{}
	case "gemini":
		p = &geminiProvider{}
	default:
		return nil, fmt.Errorf("unsupported LLM backend: %s (supported: ollama, gemini)", backend)
	}
	if err := p.Init(cfg); err != nil {
		return nil, err
	}
	return p, nil
}
