package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/xhad/cvchat/internal/models"
	"github.com/xhad/cvchat/internal/types"
	"github.com/xhad/cvchat/pkg/index"
	"github.com/xhad/cvchat/pkg/retriever"
)

const (
	EmptyQueryAnswer  = "Please enter a question."
	NoContextAnswer   = "No relevant information was found in the CVs."
	defaultTopK       = 5
	defaultDimension  = 1024
	defaultCVFolder   = "cv"
	defaultIndexPath  = "cv_index.idx"
	defaultMetaPath   = "cv_metadata.json"
)

var (
	ErrEmptyQuery       = errors.New("query is empty")
	ErrNotPDF           = errors.New("only PDF files are allowed")
	ErrNoContent        = errors.New("cannot parse CV content")
	ErrCVNotFound       = errors.New("CV file not found")
	ErrNoPDFs           = errors.New("no PDF files found")
	ErrNothingProcessed = errors.New("no CV could be processed")
)

// Options locates the CV folder and the persisted index.
type Options struct {
	CVFolder     string
	IndexPath    string
	MetadataPath string
	Dimension    int
	TopK         int
	Logger       *log.Logger
}

// Dependencies are the external collaborators of the service. Mirror and
// Searcher are optional; Searcher replaces the in-memory index at query time.
type Dependencies struct {
	Parser    types.Parser
	Chunker   types.Chunker
	Embedder  types.Embedder
	Generator types.Generator
	Mirror    types.Mirror
	Searcher  types.Searcher
}

// Service is the CV chatbot: it builds the index from PDFs and answers
// questions against it.
type Service struct {
	opts      Options
	deps      Dependencies
	retriever *retriever.Retriever
	logger    *log.Logger

	// writeMu serializes build and ingestion; mu guards the index pointer.
	writeMu sync.Mutex
	mu      sync.RWMutex
	index   *index.FlatIndex
}

// New constructs the service and loads the persisted index if one exists.
func New(ctx context.Context, opts Options, deps Dependencies) (*Service, error) {
	if deps.Parser == nil || deps.Chunker == nil || deps.Embedder == nil || deps.Generator == nil {
		return nil, fmt.Errorf("parser, chunker, embedder and generator are required")
	}
	if opts.CVFolder == "" {
		opts.CVFolder = defaultCVFolder
	}
	if opts.IndexPath == "" {
		opts.IndexPath = defaultIndexPath
	}
	if opts.MetadataPath == "" {
		opts.MetadataPath = defaultMetaPath
	}
	if opts.Dimension == 0 {
		opts.Dimension = defaultDimension
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if deps.Embedder.Dimension() != opts.Dimension {
		return nil, fmt.Errorf("embedder dimension %d does not match index dimension %d: %w",
			deps.Embedder.Dimension(), opts.Dimension, index.ErrDimensionMismatch)
	}

	ix, err := index.New(opts.Dimension)
	if err != nil {
		return nil, err
	}

	s := &Service{
		opts:   opts,
		deps:   deps,
		logger: opts.Logger,
		index:  ix,
	}

	searcher := deps.Searcher
	if searcher == nil {
		searcher = liveIndex{s}
	}
	s.retriever = retriever.New(deps.Embedder, searcher)

	loaded, err := ix.Load(opts.IndexPath, opts.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	if loaded {
		s.logger.Info("index loaded", "chunks", ix.Len(), "path", opts.IndexPath)
		s.syncMirror(ctx, ix)
	} else {
		s.logger.Warn("no index found, run a build first", "path", opts.IndexPath)
	}

	return s, nil
}

// Close releases the mirror connection.
func (s *Service) Close() {
	if s.deps.Mirror != nil {
		s.deps.Mirror.Close()
	}
}

func (s *Service) current() *index.FlatIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *Service) swap(ix *index.FlatIndex) {
	s.mu.Lock()
	s.index = ix
	s.mu.Unlock()
}

func (s *Service) syncMirror(ctx context.Context, ix *index.FlatIndex) {
	if s.deps.Mirror == nil {
		return
	}
	records, vectors := ix.Snapshot()
	if err := s.deps.Mirror.Sync(ctx, records, vectors); err != nil {
		s.logger.Error("mirror sync failed", "err", err)
		return
	}
	s.logger.Debug("mirror synced", "chunks", len(records))
}

// liveIndex searches whichever index is current at call time.
type liveIndex struct{ s *Service }

func (l liveIndex) Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.s.current().Search(query, k)
}

// Chat answers query from the top-k retrieved chunks.
func (s *Service) Chat(ctx context.Context, query string, topK int) (models.ChatResponse, error) {
	return s.chat(ctx, query, topK, nil)
}

// ChatStream is Chat with the generated answer streamed to onChunk.
func (s *Service) ChatStream(ctx context.Context, query string, topK int, onChunk func(string)) (models.ChatResponse, error) {
	return s.chat(ctx, query, topK, onChunk)
}

func (s *Service) chat(ctx context.Context, query string, topK int, onChunk func(string)) (models.ChatResponse, error) {
	if strings.TrimSpace(query) == "" {
		return models.ChatResponse{Answer: EmptyQueryAnswer, Sources: []models.SearchResult{}}, nil
	}

	cvContext, sources, err := s.retriever.Retrieve(ctx, query, s.topK(topK))
	if err != nil {
		return models.ChatResponse{}, err
	}
	if cvContext == "" {
		return models.ChatResponse{Answer: NoContextAnswer, Sources: []models.SearchResult{}}, nil
	}

	var answer string
	if onChunk != nil {
		answer = s.deps.Generator.GenerateStream(ctx, query, cvContext, onChunk)
	} else {
		answer = s.deps.Generator.Generate(ctx, query, cvContext)
	}

	return models.ChatResponse{
		Answer:  answer,
		Context: cvContext,
		Sources: sources,
	}, nil
}

// Search retrieves without generating an answer.
func (s *Service) Search(ctx context.Context, query string, topK int) (models.SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return models.SearchResponse{}, ErrEmptyQuery
	}

	cvContext, sources, err := s.retriever.Retrieve(ctx, query, s.topK(topK))
	if err != nil {
		return models.SearchResponse{}, err
	}

	return models.SearchResponse{
		Query:        query,
		Context:      cvContext,
		Sources:      sources,
		TotalResults: len(sources),
	}, nil
}

// Summary lists the distinct CVs in the index and its chunk count.
func (s *Service) Summary() models.CVSummary {
	ix := s.current()
	files := ix.Sources()
	return models.CVSummary{
		TotalCVs:    len(files),
		CVFiles:     files,
		TotalChunks: ix.Len(),
	}
}

func (s *Service) topK(k int) int {
	if k <= 0 {
		return s.opts.TopK
	}
	return k
}
