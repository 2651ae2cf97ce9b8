package llm_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	mu       sync.Mutex
	reply    string
	chunks   []string
	err      error
	messages [][]llms.MessageContent
	options  []llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	f.mu.Lock()
	f.messages = append(f.messages, messages)
	f.options = append(f.options, opts)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if opts.StreamingFunc != nil {
		for _, chunk := range f.chunks {
			if err := opts.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.reply, f.err
}

// fakeEmbeddingClient returns a deterministic vector per text and fails for
// texts listed in fail.
type fakeEmbeddingClient struct {
	dim   int
	fail  map[string]bool
	calls atomic.Int32
}

func (f *fakeEmbeddingClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if f.fail[text] {
			return nil, errors.New("embedding service unavailable")
		}
		v := make([]float32, f.dim)
		for i := range v {
			v[i] = float32(len(text) + i)
		}
		out = append(out, v)
	}
	return out, nil
}
