package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/cvchat/internal/types"
)

const (
	ProviderOllama   = "ollama"
	ProviderGoogleAI = "googleai"
)

// ProviderConfig selects the backing model for one of the three external calls.
type ProviderConfig struct {
	Provider string
	Model    string
	BaseURL  string // Ollama server URL
	APIKey   string // Google AI credential
}

// NewModel builds a generative model.
func NewModel(ctx context.Context, config ProviderConfig) (llms.Model, error) {
	switch config.Provider {
	case ProviderOllama:
		llm, err := ollama.New(ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama model: %w", err)
		}
		return llm, nil
	case ProviderGoogleAI:
		if config.APIKey == "" {
			return nil, fmt.Errorf("googleai provider requires an API key (GOOGLE_API_KEY)")
		}
		llm, err := googleai.New(ctx,
			googleai.WithAPIKey(config.APIKey),
			googleai.WithDefaultModel(config.Model))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize googleai model: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", config.Provider)
	}
}

// NewEmbeddingClient builds the client behind the Embedder.
func NewEmbeddingClient(ctx context.Context, config ProviderConfig) (types.EmbeddingClient, error) {
	switch config.Provider {
	case ProviderOllama:
		emb, err := ollama.New(ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
		}
		return emb, nil
	case ProviderGoogleAI:
		if config.APIKey == "" {
			return nil, fmt.Errorf("googleai provider requires an API key (GOOGLE_API_KEY)")
		}
		emb, err := googleai.New(ctx,
			googleai.WithAPIKey(config.APIKey),
			googleai.WithDefaultEmbeddingModel(config.Model))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize googleai embedder: %w", err)
		}
		return emb, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", config.Provider)
	}
}
