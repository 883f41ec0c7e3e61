package llm

import (
	"context"
	"fmt"
	"net/http"

	"auron/internal/config"
	"auron/internal/proxy"
)

// Generator produces an assistant reply for a user utterance. The system
// prompt is passed separately so each provider can place it the way its
// API expects.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// FromConfig builds the configured provider. An optional SOCKS proxy is
// applied to the provider's HTTP client.
func FromConfig(cfg config.LLM) (Generator, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.SocksProxy != "" {
		var err error
		httpClient, err = proxy.NewSocksClient(cfg.SocksProxy, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("dial socks proxy %s: %w", cfg.SocksProxy, err)
		}
	}

	switch cfg.Provider {
	case "", "ollama":
		return NewOllama(cfg.OllamaURL, cfg.Model, httpClient), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		return NewOpenAI(cfg.OpenAIKey, cfg.Model, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
