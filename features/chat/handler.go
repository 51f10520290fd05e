package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"doculens/internal/fault"
	"doculens/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string   `json:"query"`
		FileNames []string `json:"fileNames"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		h.writeError(w, r, "VALIDATION_ERROR", "query is required", http.StatusBadRequest)
		return
	}

	answer, err := h.service.Answer(r.Context(), req.Query, req.FileNames)
	if err != nil {
		slog.ErrorContext(r.Context(), "answer failed", "error", err)
		if fault.IsConfiguration(err) {
			h.writeError(w, r, "NOT_CONFIGURED", "Generation or search capability not configured", http.StatusServiceUnavailable)
			return
		}
		// A generation failure still carries the assembled context for
		// diagnostics.
		if answer != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			resp := map[string]interface{}{
				"error": map[string]string{"code": "GENERATION_FAILED", "message": "Failed to generate answer"},
				"data":  map[string]string{"contextUsed": answer.ContextUsed},
			}
			if err := json.NewEncoder(w).Encode(resp); err != nil {
				slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
			}
			return
		}
		h.writeError(w, r, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(answer); err != nil {
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
