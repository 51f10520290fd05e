package document

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"doculens/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "list documents failed", "error", err)
		h.writeError(w, r, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []MetadataRecord{}
	}
	h.writeJSON(w, r, http.StatusOK, map[string]interface{}{"data": recs})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := h.service.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		h.writeError(w, r, "NOT_FOUND", "Document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "get document failed", "document_id", id, "error", err)
		h.writeError(w, r, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]interface{}{"data": rec})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sourceRef := r.URL.Query().Get("source_ref")

	outcome, err := h.service.Delete(r.Context(), id, sourceRef)
	if err != nil {
		slog.ErrorContext(r.Context(), "delete document failed", "document_id", id, "error", err)
		h.writeError(w, r, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]interface{}{"data": outcome})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, code, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]interface{}{
		"error": map[string]string{
			"code":           code,
			"message":        msg,
			"correlation_id": middleware.GetCorrelationID(r.Context()),
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode error response", "error", err)
	}
}
