package llm

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/xhad/cvchat/internal/types"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// EmbedderConfig represents the configuration for an Embedder.
type EmbedderConfig struct {
	Dimension   int
	Concurrency int     // parallel embedding calls
	RateLimit   float64 // calls per second, 0 = unlimited
	Logger      *log.Logger
}

// Embedder calls the embedding service once per text and substitutes a zero
// vector for any item that fails, so a batch never fails because of one text.
type Embedder struct {
	config  EmbedderConfig
	client  types.EmbeddingClient
	limiter *rate.Limiter
	logger  *log.Logger
}

func NewEmbedderWithConfig(client types.EmbeddingClient, config EmbedderConfig) (*Embedder, error) {
	if client == nil {
		return nil, fmt.Errorf("embedding client is required")
	}
	if config.Dimension == 0 {
		config.Dimension = 1024
	}
	if config.Dimension < 0 {
		return nil, fmt.Errorf("dimension must be positive")
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	e := &Embedder{
		config: config,
		client: client,
		logger: config.Logger,
	}
	if config.RateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}
	return e, nil
}

func (e *Embedder) Dimension() int {
	return e.config.Dimension
}

// Embed returns one result per text in input order. The error is non-nil
// only when ctx ends before the batch completes.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([]types.Embedding, error) {
	results := make([]types.Embedding, len(texts))

	g := new(errgroup.Group)
	g.SetLimit(e.config.Concurrency)
	for i := range texts {
		i := i
		g.Go(func() error {
			results[i] = e.embedOne(ctx, texts[i])
			if results[i].Fallback {
				e.logger.Warn("embedding failed, using zero vector", "item", i, "err", results[i].Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (e *Embedder) embedOne(ctx context.Context, text string) types.Embedding {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return e.fallback(err)
		}
	}

	embeddings, err := e.client.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return e.fallback(err)
	}
	if len(embeddings) == 0 {
		return e.fallback(fmt.Errorf("empty embedding response"))
	}
	if len(embeddings[0]) != e.config.Dimension {
		return e.fallback(fmt.Errorf("embedding has %d dimensions, expected %d", len(embeddings[0]), e.config.Dimension))
	}
	return types.Embedding{Vector: embeddings[0]}
}

func (e *Embedder) fallback(err error) types.Embedding {
	return types.Embedding{
		Vector:   make([]float32, e.config.Dimension),
		Fallback: true,
		Err:      err,
	}
}

// Vectors extracts the vectors of a batch, placeholders included.
func Vectors(embeddings []types.Embedding) [][]float32 {
	vectors := make([][]float32, len(embeddings))
	for i, emb := range embeddings {
		vectors[i] = emb.Vector
	}
	return vectors
}

// FallbackCount reports how many results are zero-filled placeholders.
func FallbackCount(embeddings []types.Embedding) int {
	n := 0
	for _, emb := range embeddings {
		if emb.Fallback {
			n++
		}
	}
	return n
}
