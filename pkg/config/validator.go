package config

import (
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Providers and the shared credential
	providers := []struct{ field, name string }{
		{"llm.provider", c.LLM.Provider},
		{"parser.provider", c.Parser.Provider},
		{"embedder.provider", c.Embedder.Provider},
	}
	needsKey := false
	for _, p := range providers {
		switch p.name {
		case ProviderOllama:
		case ProviderGoogleAI:
			needsKey = true
		default:
			errors = append(errors, ValidationError{
				Field:   p.field,
				Message: fmt.Sprintf("unknown provider %q", p.name),
			})
		}
	}
	if needsKey && c.Google.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "google.api_key",
			Message: "GOOGLE_API_KEY is required for the googleai provider",
		})
	}

	// Validate LLM config
	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	baseURLs := []struct{ field, raw string }{
		{"llm.base_url", c.LLM.BaseURL},
		{"parser.base_url", c.Parser.BaseURL},
		{"embedder.base_url", c.Embedder.BaseURL},
	}
	for _, b := range baseURLs {
		if u, err := url.Parse(b.raw); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   b.field,
				Message: "invalid Ollama base URL",
			})
		}
	}

	// Validate Embedder config
	if c.Embedder.Dimension < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedder.dimension",
			Message: "dimension must be positive",
		})
	}

	if c.Embedder.Concurrency < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedder.concurrency",
			Message: "concurrency must be positive",
		})
	}

	if c.Embedder.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedder.rate_limit",
			Message: "rate_limit cannot be negative",
		})
	}

	// Validate Processor config
	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	// Validate Retrieval config
	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	switch c.Retrieval.Backend {
	case BackendIndex:
	case BackendPgvector:
		if c.Database.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "retrieval.backend",
				Message: "pgvector backend requires database.url",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "retrieval.backend",
			Message: fmt.Sprintf("unknown backend %q", c.Retrieval.Backend),
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Server.MaxUploadMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.max_upload_mb",
			Message: "max_upload_mb must be positive",
		})
	}

	// Validate Log config
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid log level %q", c.Log.Level),
		})
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		errors = append(errors, ValidationError{
			Field:   "log.format",
			Message: "format must be text or json",
		})
	}

	return errors
}
