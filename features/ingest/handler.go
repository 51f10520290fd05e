package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"doculens/internal/middleware"
)

// Extensions the ingestion path accepts. Everything that is not plain text
// goes through the external analyzer.
var supportedExts = map[string]bool{
	".txt": true, ".md": true, ".pdf": true, ".docx": true, ".xlsx": true,
	".pptx": true, ".html": true, ".png": true, ".jpg": true, ".jpeg": true,
	".bmp": true, ".tiff": true,
}

type BlobWriter interface {
	Put(ctx context.Context, ref string, data []byte) error
}

type Handler struct {
	service       *Service
	blobs         BlobWriter
	maxUploadSize int64
}

func NewHandler(service *Service, blobs BlobWriter, maxUploadSizeMB int64) *Handler {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = 50
	}
	return &Handler{service: service, blobs: blobs, maxUploadSize: maxUploadSizeMB << 20}
}

// Upload stores the raw object in the content store and starts the ingestion
// workflow for it.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.writeError(w, r, "BAD_REQUEST", "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, "BAD_REQUEST", "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileName := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(fileName))
	if !supportedExts[ext] {
		h.writeError(w, r, "BAD_REQUEST", "Unsupported file type", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, "INTERNAL_ERROR", "Failed to read file", http.StatusInternalServerError)
		return
	}

	sourceRef := fmt.Sprintf("%s_%s", uuid.New().String(), fileName)
	if err := h.blobs.Put(r.Context(), sourceRef, data); err != nil {
		slog.ErrorContext(r.Context(), "failed to store upload", "error", err, "file_name", fileName)
		h.writeError(w, r, "INTERNAL_ERROR", "Failed to store file", http.StatusInternalServerError)
		return
	}

	jobID, err := h.service.StartIngestion(r.Context(), fileName, sourceRef)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to start ingestion", "error", err, "file_name", fileName)
		h.writeError(w, r, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, r, http.StatusAccepted, map[string]interface{}{
		"data": map[string]string{
			"job_id":     jobID,
			"file_name":  fileName,
			"source_ref": sourceRef,
		},
	})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := h.service.GetJob(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "NOT_FOUND", "Job not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]interface{}{"data": job})
}

// Reindex runs the bulk reindex sweep synchronously and reports how many
// documents were re-indexed.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	indexed, err := h.service.Reindex(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "reindex sweep failed", "error", err)
		h.writeError(w, r, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"data": map[string]int{"indexed": indexed},
	})
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
