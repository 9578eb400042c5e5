package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"knowledge-butler/internal/contextutil"
	"knowledge-butler/internal/document"
	"knowledge-butler/internal/index"
	"knowledge-butler/internal/ingest"
)

// maxUploadBytes bounds the multipart form size (50 MiB).
const maxUploadBytes = 50 << 20

// UploadHandler handles document uploads: the file is saved to the upload
// directory and pushed through the ingestion pipeline synchronously.
type UploadHandler struct {
	pipeline  *ingest.Pipeline
	uploadDir string
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(pipeline *ingest.Pipeline, uploadDir string) *UploadHandler {
	return &UploadHandler{
		pipeline:  pipeline,
		uploadDir: uploadDir,
	}
}

// UploadResponse represents the response after a successful upload.
type UploadResponse struct {
	Message       string `json:"message"`
	ChunksCreated int    `json:"chunks_created"`
	IndexLocation string `json:"index_location"`
}

// ServeHTTP handles document upload requests.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "missing file field", "error", err)
		writeError(w, http.StatusBadRequest, "A \"file\" form field is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	filename := sanitizeFilename(header.Filename)
	if filename == "" {
		writeError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	destPath := filepath.Join(h.uploadDir, filename)
	written, err := saveUpload(file, destPath)
	if err != nil {
		logger.ErrorContext(ctx, "failed to save upload", "path", destPath, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	if written == 0 {
		logger.WarnContext(ctx, "empty upload rejected", "filename", filename)
		writeError(w, http.StatusBadRequest, "Uploaded file is empty")
		return
	}

	result, err := h.pipeline.Ingest(ctx, destPath)
	if err != nil {
		logger.ErrorContext(ctx, "ingestion failed", "filename", filename, "error", err)
		switch {
		case errors.Is(err, document.ErrLoad):
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Could not extract text from %s", filename))
		case errors.Is(err, index.ErrIndexBuild):
			writeError(w, http.StatusBadGateway, "Failed to build the document index")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to process document")
		}
		return
	}

	message := fmt.Sprintf("Processed %s into %d chunks", filename, result.Chunks)
	if result.Reused {
		message = fmt.Sprintf("%s is already indexed, nothing to do", filename)
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		Message:       message,
		ChunksCreated: result.Chunks,
		IndexLocation: result.IndexLocation,
	})
}

// sanitizeFilename strips any path components and rejects names that would
// escape the upload directory.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		return ""
	}
	return name
}

// saveUpload streams the upload to a temporary file and renames it into
// place. The upload directory is also scanned by the ingestion watcher, so a
// partially written file must never appear there under its final name. Empty
// uploads are discarded without ever appearing at destPath.
func saveUpload(src io.Reader, destPath string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".upload-*")
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	if written == 0 {
		_ = os.Remove(tmp.Name())
		return 0, nil
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	return written, nil
}
