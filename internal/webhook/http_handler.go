package webhook

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"catalog-importer/internal/domain"
	"catalog-importer/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler exposes subscription management and test deliveries.
type Handler struct {
	subscriptions repository.WebhookRepository
	dispatcher    *Dispatcher
}

// NewHandler wraps the repository and dispatcher with an HTTP surface.
func NewHandler(subscriptions repository.WebhookRepository, dispatcher *Dispatcher) *Handler {
	return &Handler{subscriptions: subscriptions, dispatcher: dispatcher}
}

// Routes mounts the webhook management endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	r.Post("/{id}/test", h.handleTest)
	return r
}

type subscriptionRequest struct {
	URL    string `json:"url"`
	Event  string `json:"event"`
	Secret string `json:"secret"`
	Active *bool  `json:"active"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subscriptions.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"webhooks": subs})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	kind := domain.EventKind(req.Event)
	if !domain.ValidEventKind(kind) {
		writeError(w, http.StatusBadRequest, "unknown event kind")
		return
	}

	sub := domain.NewWebhookSubscription(req.URL, kind, req.Secret)
	if req.Active != nil {
		sub.Active = *req.Active
	}

	created, err := h.subscriptions.Create(r.Context(), sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	sub, err := h.subscriptions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "webhook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if url := strings.TrimSpace(req.URL); url != "" {
		sub.URL = url
	}
	if req.Event != "" {
		kind := domain.EventKind(req.Event)
		if !domain.ValidEventKind(kind) {
			writeError(w, http.StatusBadRequest, "unknown event kind")
			return
		}
		sub.Event = kind
	}
	if req.Secret != "" {
		sub.Secret = req.Secret
	}
	if req.Active != nil {
		sub.Active = *req.Active
	}

	updated, err := h.subscriptions.Update(r.Context(), sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	if err := h.subscriptions.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "webhook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleTest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	sub, err := h.subscriptions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "webhook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	attempt := h.dispatcher.TestDelivery(r.Context(), sub)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      attempt.Outcome,
		"status_code": attempt.StatusCode,
		"latency_ms":  attempt.Latency.Milliseconds(),
		"error":       attempt.Error,
	})
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
