package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"catalog-importer/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler exposes upload submission and progress polling over HTTP.
type Handler struct {
	service *Service
}

// NewHandler wraps the service with its HTTP surface.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the importer endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/upload", h.handleUpload)
	r.Get("/progress/{sessionID}", h.handleProgress)
	return r
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.service.cfg.MaxUploadBytes
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid form data: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read file: %v", err))
		return
	}

	submission, err := h.service.Submit(r.Context(), header.Filename, payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": submission.SessionID,
		"total_rows": submission.TotalRows,
		"message":    "file upload started successfully",
	})
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	progress, err := h.service.Progress(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
