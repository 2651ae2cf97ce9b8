package types

import (
	"context"

	"github.com/xhad/cvchat/internal/models"
)

// Core interfaces

// Parser turns a PDF file into plain (markdown) text.
type Parser interface {
	Parse(ctx context.Context, path string) (string, error)
}

// Chunker splits document text into ordered chunks tagged with source.
type Chunker interface {
	Chunk(text, source string) []models.Chunk
}

// EmbeddingClient is the external embedding call. Both langchaingo's ollama
// and googleai clients satisfy it.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedding is the outcome of embedding a single text. Fallback is set when
// Vector is a zero-filled placeholder rather than a real embedding.
type Embedding struct {
	Vector   []float32
	Fallback bool
	Err      error
}

// Embedder converts texts into vectors, one result per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]Embedding, error)
	Dimension() int
}

// Generator produces a grounded answer from a query and retrieved context.
type Generator interface {
	Generate(ctx context.Context, query, cvContext string) string
	GenerateStream(ctx context.Context, query, cvContext string, onChunk func(string)) string
}

// Searcher ranks stored chunks against a query vector.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error)
}

// Mirror receives a full copy of the index after every successful persist.
type Mirror interface {
	Sync(ctx context.Context, records []models.Record, vectors [][]float32) error
	Close()
}
