package retriever_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/cvchat/internal/models"
	"github.com/xhad/cvchat/internal/types"
	"github.com/xhad/cvchat/pkg/index"
	"github.com/xhad/cvchat/pkg/retriever"
)

type stubEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([]types.Embedding, error) {
	s.calls++
	out := make([]types.Embedding, len(texts))
	for i, text := range texts {
		v, ok := s.vectors[text]
		if !ok {
			out[i] = types.Embedding{Vector: make([]float32, 2), Fallback: true, Err: errors.New("unavailable")}
			continue
		}
		out[i] = types.Embedding{Vector: v}
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return 2 }

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, []float32, int) ([]models.SearchResult, error) {
	return nil, errors.New("index offline")
}

// indexSearcher serves a FlatIndex and records the context it was called with.
type indexSearcher struct {
	ix  *index.FlatIndex
	ctx context.Context
}

func (s *indexSearcher) Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error) {
	s.ctx = ctx
	return s.ix.Search(query, k)
}

func newIndex(t *testing.T) *indexSearcher {
	t.Helper()
	ix, err := index.New(2)
	require.NoError(t, err)
	require.NoError(t, ix.Add(
		[][]float32{{1, 0}, {0, 1}},
		[]models.Record{
			{Content: "Python developer, 5 years experience", Metadata: models.ChunkMetadata{Source: "A.pdf", ChunkID: 0, ChunkSize: 36}},
			{Content: "Marketing lead", Metadata: models.ChunkMetadata{Source: "B.pdf", ChunkID: 0, ChunkSize: 14}},
		},
	))
	return &indexSearcher{ix: ix}
}

type ctxKey struct{}

func TestRetrieve(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{"python": {3, 0}}}
	searcher := newIndex(t)
	r := retriever.New(emb, searcher)

	reqCtx := context.WithValue(context.Background(), ctxKey{}, "request")
	cvContext, results, err := r.Retrieve(reqCtx, "python", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A.pdf", results[0].Metadata.Source)
	assert.Equal(t, "(Score: 1.000):\nPython developer, 5 years experience\n", cvContext)
	assert.Equal(t, "request", searcher.ctx.Value(ctxKey{}))
}

func TestRetrieveBlankQuery(t *testing.T) {
	emb := &stubEmbedder{}
	r := retriever.New(emb, newIndex(t))

	ctx, results, err := r.Retrieve(context.Background(), "   \n", 5)
	require.NoError(t, err)
	assert.Empty(t, ctx)
	assert.Empty(t, results)
	assert.Zero(t, emb.calls)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	ix, err := index.New(2)
	require.NoError(t, err)
	r := retriever.New(&stubEmbedder{vectors: map[string][]float32{"go": {1, 1}}}, &indexSearcher{ix: ix})

	ctx, results, err := r.Retrieve(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Empty(t, ctx)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRetrieveFallbackEmbedding(t *testing.T) {
	r := retriever.New(&stubEmbedder{}, newIndex(t))

	_, _, err := r.Retrieve(context.Background(), "unknown", 5)
	assert.ErrorIs(t, err, retriever.ErrEmbeddingUnavailable)
}

func TestRetrieveSearchError(t *testing.T) {
	r := retriever.New(&stubEmbedder{vectors: map[string][]float32{"go": {1, 0}}}, failingSearcher{})

	_, _, err := r.Retrieve(context.Background(), "go", 5)
	assert.ErrorContains(t, err, "index offline")
}

func TestRetrieveInvalidK(t *testing.T) {
	r := retriever.New(&stubEmbedder{vectors: map[string][]float32{"go": {1, 0}}}, newIndex(t))

	_, _, err := r.Retrieve(context.Background(), "go", 0)
	assert.ErrorIs(t, err, index.ErrInvalidK)
}

func TestRenderContext(t *testing.T) {
	got := retriever.RenderContext([]models.SearchResult{
		{Content: "first", Score: 0.91234},
		{Content: "second", Score: 0.5},
	})
	assert.Equal(t, "(Score: 0.912):\nfirst\n\n(Score: 0.500):\nsecond\n", got)
}
