package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/cvchat/internal/models"
	"github.com/xhad/cvchat/pkg/chatbot"
	"github.com/xhad/cvchat/server"
)

type fakeService struct {
	lastQuery  string
	lastTopK   int
	uploaded   string
	uploadBody string
	chatErr    error
	ingestErr  error
	deleteErr  error
	buildErr   error
}

func (f *fakeService) Chat(ctx context.Context, query string, topK int) (models.ChatResponse, error) {
	f.lastQuery, f.lastTopK = query, topK
	if f.chatErr != nil {
		return models.ChatResponse{}, f.chatErr
	}
	return models.ChatResponse{
		Answer:  "Candidate A knows Python",
		Context: "(Score: 0.900):\nPython\n",
		Sources: []models.SearchResult{{Content: "Python", Metadata: models.ChunkMetadata{Source: "A.pdf"}, Score: 0.9}},
	}, nil
}

func (f *fakeService) ChatStream(ctx context.Context, query string, topK int, onChunk func(string)) (models.ChatResponse, error) {
	resp, err := f.Chat(ctx, query, topK)
	if err != nil {
		return resp, err
	}
	onChunk("Candidate A ")
	onChunk("knows Python")
	return resp, nil
}

func (f *fakeService) Search(ctx context.Context, query string, topK int) (models.SearchResponse, error) {
	f.lastQuery, f.lastTopK = query, topK
	if query == "" {
		return models.SearchResponse{}, chatbot.ErrEmptyQuery
	}
	return models.SearchResponse{Query: query, Sources: []models.SearchResult{}, TotalResults: 0}, nil
}

func (f *fakeService) Summary() models.CVSummary {
	return models.CVSummary{TotalCVs: 2, CVFiles: []string{"A.pdf", "B.pdf"}, TotalChunks: 5}
}

func (f *fakeService) IngestFile(ctx context.Context, filename string, r io.Reader) (int, error) {
	if f.ingestErr != nil {
		return 0, f.ingestErr
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.uploaded, f.uploadBody = filename, string(body)
	return 3, nil
}

func (f *fakeService) DeleteCV(filename string) error {
	return f.deleteErr
}

func (f *fakeService) Build(ctx context.Context, progress chatbot.ProgressFunc) (models.BuildReport, error) {
	if f.buildErr != nil {
		return models.BuildReport{}, f.buildErr
	}
	return models.BuildReport{Total: 2, Processed: 2, Chunks: 5, Saved: true}, nil
}

func newHandler(svc *fakeService, origins ...string) http.Handler {
	return server.New(svc, server.Config{AllowedOrigins: origins}, log.New(io.Discard)).Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestRootAndHealth(t *testing.T) {
	h := newHandler(&fakeService{})

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CV ChatBot API", body["message"])
	assert.Equal(t, "1.0.0", body["version"])

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestChat(t *testing.T) {
	svc := &fakeService{}
	h := newHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":"Who knows Python?","top_k":3}`))
	rec, body := do(t, h, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Candidate A knows Python", body["answer"])
	assert.Equal(t, "Who knows Python?", svc.lastQuery)
	assert.Equal(t, 3, svc.lastTopK)
	sources := body["sources"].([]any)
	require.Len(t, sources, 1)
	assert.Equal(t, "A.pdf", sources[0].(map[string]any)["metadata"].(map[string]any)["source"])
}

func TestChatDefaultsTopK(t *testing.T) {
	svc := &fakeService{}
	h := newHandler(svc)

	rec, _ := do(t, h, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":"Go"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.lastTopK)
}

func TestChatErrors(t *testing.T) {
	h := newHandler(&fakeService{chatErr: errors.New("embedding service down")})

	rec, body := do(t, h, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":"Go"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error processing chat: embedding service down", body["detail"])

	rec, _ = do(t, h, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummary(t *testing.T) {
	rec, body := do(t, newHandler(&fakeService{}), httptest.NewRequest(http.MethodGet, "/cv-summary", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["total_cvs"])
	assert.Equal(t, float64(5), body["total_chunks"])
	assert.Equal(t, []any{"A.pdf", "B.pdf"}, body["cv_files"])
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-cv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	svc := &fakeService{}
	rec, body := do(t, newHandler(svc), uploadRequest(t, "C.pdf", "%PDF-1.4"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully uploaded and processed C.pdf", body["message"])
	assert.Equal(t, float64(3), body["chunks_created"])
	assert.Equal(t, "C.pdf", svc.uploaded)
	assert.Equal(t, "%PDF-1.4", svc.uploadBody)
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"not a pdf", chatbot.ErrNotPDF, http.StatusBadRequest, "Only PDF files are allowed"},
		{"empty parse", chatbot.ErrNoContent, http.StatusBadRequest, "Cannot parse CV content"},
		{"internal", errors.New("disk full"), http.StatusInternalServerError, "Error uploading CV: disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, newHandler(&fakeService{ingestErr: tt.err}), uploadRequest(t, "x.pdf", "data"))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.detail, body["detail"])
		})
	}

	rec, _ := do(t, newHandler(&fakeService{}), httptest.NewRequest(http.MethodPost, "/upload-cv", strings.NewReader("plain")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	rec, body := do(t, newHandler(&fakeService{}), httptest.NewRequest(http.MethodDelete, "/cv/A.pdf", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully deleted A.pdf. Please rebuild vector store to update search index.", body["message"])

	rec, body = do(t, newHandler(&fakeService{deleteErr: chatbot.ErrCVNotFound}), httptest.NewRequest(http.MethodDelete, "/cv/Z.pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CV file not found", body["detail"])
}

func TestRebuild(t *testing.T) {
	rec, body := do(t, newHandler(&fakeService{}), httptest.NewRequest(http.MethodPost, "/rebuild-index", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully rebuilt vector store", body["message"])
	assert.Equal(t, float64(2), body["processed"])

	rec, body = do(t, newHandler(&fakeService{buildErr: chatbot.ErrNothingProcessed}), httptest.NewRequest(http.MethodPost, "/rebuild-index", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["detail"], "Error rebuilding index")
}

func TestSearch(t *testing.T) {
	svc := &fakeService{}
	h := newHandler(svc)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/search?q=python&top_k=2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "python", body["query"])
	assert.Equal(t, float64(0), body["total_results"])
	assert.Equal(t, 2, svc.lastTopK)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/search?q=python&top_k=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Query must not be empty", body["detail"])
}

func TestCORS(t *testing.T) {
	h := newHandler(&fakeService{}, "http://localhost:8501")

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:8501")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:8501", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocketChat(t *testing.T) {
	svc := &fakeService{}
	ts := httptest.NewServer(newHandler(svc))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(server.Message{
		Type:    "chat",
		Content: "Who knows Python?",
		Data:    json.RawMessage(`{"top_k":2}`),
	}))

	var types []string
	var streamed string
	var final server.Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg server.Message
		require.NoError(t, conn.ReadJSON(&msg))
		types = append(types, msg.Type)
		if msg.Type == "stream" {
			streamed += msg.Content
		}
		if msg.Type == "response" || msg.Type == "error" {
			final = msg
			break
		}
	}

	assert.Equal(t, []string{"status", "stream", "stream", "response"}, types)
	assert.Equal(t, "Candidate A knows Python", streamed)
	assert.Equal(t, "Candidate A knows Python", final.Content)

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(final.Data, &resp))
	assert.Len(t, resp.Sources, 1)
}

func TestWebSocketUnknownType(t *testing.T) {
	ts := httptest.NewServer(newHandler(&fakeService{}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(server.Message{Type: "scrape"}))
	var msg server.Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
}
