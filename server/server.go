package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/xhad/cvchat/internal/models"
	"github.com/xhad/cvchat/pkg/chatbot"
)

// ChatService is the part of chatbot.Service the API exposes.
type ChatService interface {
	Chat(ctx context.Context, query string, topK int) (models.ChatResponse, error)
	ChatStream(ctx context.Context, query string, topK int, onChunk func(string)) (models.ChatResponse, error)
	Search(ctx context.Context, query string, topK int) (models.SearchResponse, error)
	Summary() models.CVSummary
	IngestFile(ctx context.Context, filename string, r io.Reader) (int, error)
	DeleteCV(filename string) error
	Build(ctx context.Context, progress chatbot.ProgressFunc) (models.BuildReport, error)
}

type Config struct {
	Addr           string
	MaxUploadMB    int
	AllowedOrigins []string
	DefaultTopK    int
}

// Server serves the CV chatbot over HTTP and WebSocket.
type Server struct {
	config   Config
	svc      ChatService
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func New(svc ChatService, config Config, logger *log.Logger) *Server {
	if config.Addr == "" {
		config.Addr = ":8000"
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 20
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = 5
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		config: config,
		svc:    svc,
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
	return s
}

// Handler returns the routed API with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /cv-summary", s.handleSummary)
	mux.HandleFunc("POST /upload-cv", s.handleUpload)
	mux.HandleFunc("DELETE /cv/{filename}", s.handleDelete)
	mux.HandleFunc("POST /rebuild-index", s.handleRebuild)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return s.logRequests(s.cors(mux))
}

// ListenAndServe runs until ctx is canceled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
