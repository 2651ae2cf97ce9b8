package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xhad/cvchat/internal/models"
	"github.com/xhad/cvchat/internal/types"
)

// ErrEmbeddingUnavailable is returned when the query could only be embedded
// as a zero-vector placeholder.
var ErrEmbeddingUnavailable = errors.New("query embedding unavailable")

// Retriever embeds a query and fetches the best matching chunks.
type Retriever struct {
	embedder types.Embedder
	searcher types.Searcher
}

func New(embedder types.Embedder, searcher types.Searcher) *Retriever {
	return &Retriever{embedder: embedder, searcher: searcher}
}

// Retrieve returns the rendered context and the ranked results for query.
// A blank query or an empty result set gives an empty context and no error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (string, []models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return "", []models.SearchResult{}, nil
	}

	embs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embs) != 1 {
		return "", nil, fmt.Errorf("failed to embed query: got %d embeddings", len(embs))
	}
	if embs[0].Fallback {
		return "", nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, embs[0].Err)
	}

	results, err := r.searcher.Search(ctx, embs[0].Vector, k)
	if err != nil {
		return "", nil, fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return "", []models.SearchResult{}, nil
	}

	return RenderContext(results), results, nil
}

// RenderContext formats each result as a score line followed by its content.
func RenderContext(results []models.SearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("(Score: %.3f):\n%s\n", r.Score, r.Content)
	}
	return strings.Join(parts, "\n")
}
