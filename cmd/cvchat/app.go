package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/xhad/cvchat/pkg/chatbot"
	"github.com/xhad/cvchat/pkg/config"
	"github.com/xhad/cvchat/pkg/llm"
	"github.com/xhad/cvchat/pkg/processor"
	"github.com/xhad/cvchat/pkg/store"
)

// newService wires the configured providers, the optional pgvector mirror
// and the chatbot service.
func newService(ctx context.Context, cfg *config.Config, logger *log.Logger) (*chatbot.Service, error) {
	parserModel, err := llm.NewModel(ctx, llm.ProviderConfig{
		Provider: cfg.Parser.Provider,
		Model:    cfg.Parser.Model,
		BaseURL:  cfg.Parser.BaseURL,
		APIKey:   cfg.Google.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize parser: %w", err)
	}

	chatModel, err := llm.NewModel(ctx, llm.ProviderConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.Google.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}

	generator, err := llm.NewWithConfig(chatModel, llm.ChatConfig{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Language:    cfg.LLM.Language,
		Logger:      logger.WithPrefix("llm"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	embeddingClient, err := llm.NewEmbeddingClient(ctx, llm.ProviderConfig{
		Provider: cfg.Embedder.Provider,
		Model:    cfg.Embedder.Model,
		BaseURL:  cfg.Embedder.BaseURL,
		APIKey:   cfg.Google.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(embeddingClient, llm.EmbedderConfig{
		Dimension:   cfg.Embedder.Dimension,
		Concurrency: cfg.Embedder.Concurrency,
		RateLimit:   cfg.Embedder.RateLimit,
		Logger:      logger.WithPrefix("embedder"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	chunker := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})

	deps := chatbot.Dependencies{
		Parser:    llm.NewParser(parserModel),
		Chunker:   &chunker,
		Embedder:  embedder,
		Generator: generator,
	}

	if cfg.Database.URL != "" {
		vs, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
			ConnString: cfg.Database.URL,
			TableName:  cfg.Database.TableName,
			VectorDim:  cfg.Embedder.Dimension,
		})
		if err != nil {
			if cfg.Retrieval.Backend == config.BackendPgvector {
				return nil, fmt.Errorf("failed to initialize vector store: %w", err)
			}
			logger.Warn("pgvector mirror disabled", "err", err)
		} else {
			deps.Mirror = vs
			if cfg.Retrieval.Backend == config.BackendPgvector {
				deps.Searcher = vs
			}
		}
	}

	svc, err := chatbot.New(ctx, chatbot.Options{
		CVFolder:     cfg.CV.Folder,
		IndexPath:    cfg.Index.Path,
		MetadataPath: cfg.Index.MetadataPath,
		Dimension:    cfg.Embedder.Dimension,
		TopK:         cfg.Retrieval.TopK,
		Logger:       logger.WithPrefix("chatbot"),
	}, deps)
	if err != nil {
		if deps.Mirror != nil {
			deps.Mirror.Close()
		}
		return nil, err
	}
	return svc, nil
}
