package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xhad/cvchat/pkg/chatbot"
)

const (
	apiName    = "CV ChatBot API"
	apiVersion = "1.0.0"
)

type chatRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type uploadResponse struct {
	Message       string `json:"message"`
	ChunksCreated int    `json:"chunks_created"`
}

type rebuildResponse struct {
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Chunks    int    `json:"chunks"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": apiName, "version": apiVersion})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	resp, err := s.svc.Chat(r.Context(), req.Query, s.topK(req.TopK))
	if err != nil {
		s.writeServiceError(w, "Error processing chat", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Summary())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.config.MaxUploadMB)<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid upload: %v", err))
		return
	}
	defer file.Close()

	chunks, err := s.svc.IngestFile(r.Context(), header.Filename, file)
	if err != nil {
		s.writeServiceError(w, "Error uploading CV", err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:       fmt.Sprintf("Successfully uploaded and processed %s", header.Filename),
		ChunksCreated: chunks,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if err := s.svc.DeleteCV(filename); err != nil {
		s.writeServiceError(w, "Error deleting CV", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Successfully deleted %s. Please rebuild vector store to update search index.", filename),
	})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Build(r.Context(), nil)
	if err != nil {
		s.logger.Error("rebuild failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error rebuilding index: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, rebuildResponse{
		Message:   "Successfully rebuilt vector store",
		Processed: report.Processed,
		Total:     report.Total,
		Chunks:    report.Chunks,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	topK := s.config.DefaultTopK
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil || k < 1 {
			s.writeError(w, http.StatusBadRequest, "top_k must be a positive integer")
			return
		}
		topK = k
	}

	resp, err := s.svc.Search(r.Context(), query, topK)
	if err != nil {
		s.writeServiceError(w, "Error searching", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) topK(k int) int {
	if k <= 0 {
		return s.config.DefaultTopK
	}
	return k
}

// writeServiceError maps the service's sentinel errors to client errors and
// reports everything else as a server error prefixed with action.
func (s *Server) writeServiceError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, chatbot.ErrNotPDF):
		s.writeError(w, http.StatusBadRequest, "Only PDF files are allowed")
	case errors.Is(err, chatbot.ErrNoContent):
		s.writeError(w, http.StatusBadRequest, "Cannot parse CV content")
	case errors.Is(err, chatbot.ErrEmptyQuery):
		s.writeError(w, http.StatusBadRequest, "Query must not be empty")
	case errors.Is(err, chatbot.ErrCVNotFound):
		s.writeError(w, http.StatusNotFound, "CV file not found")
	default:
		s.logger.Error(action, "err", err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", action, err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
