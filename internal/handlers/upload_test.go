package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"knowledge-butler/internal/document"
	"knowledge-butler/internal/index"
	"knowledge-butler/internal/ingest"
	"knowledge-butler/internal/storage"
)

// testLoader chunks plain text on blank lines.
type testLoader struct{}

func (testLoader) Load(_ context.Context, path string) ([]document.Chunk, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrLoad, err)
	}
	var chunks []document.Chunk
	for i, part := range strings.Split(string(content), "\n\n") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		chunks = append(chunks, document.Chunk{Text: part, SequenceIndex: i, SourceID: path})
	}
	return chunks, nil
}

// testBuilder pretends every build succeeds unless failing is set.
type testBuilder struct {
	failing bool
}

func (b *testBuilder) Build(_ context.Context, _ []document.Chunk, location string) (index.Handle, error) {
	if b.failing {
		return index.Handle{}, fmt.Errorf("%w: embeddings unavailable", index.ErrIndexBuild)
	}
	return index.Handle{Location: location, Model: "test-model", Dimension: 2}, nil
}

func (b *testBuilder) Delete(_ context.Context, _ string) error { return nil }

func (b *testBuilder) Location(dir, name string) string { return filepath.Join(dir, name) }

func newTestPipeline(t *testing.T, builder *testBuilder) (*ingest.Pipeline, *storage.DocumentRepo) {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	return ingest.NewPipeline(testLoader{}, builder, docRepo, chunkRepo, t.TempDir()), docRepo
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestUploadHandler_Success(t *testing.T) {
	pipeline, docRepo := newTestPipeline(t, &testBuilder{})
	uploadDir := t.TempDir()
	handler := NewUploadHandler(pipeline, uploadDir)

	body, contentType := multipartUpload(t, "report.txt", "first part\n\nsecond part")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ChunksCreated != 2 {
		t.Errorf("chunks_created = %d, want 2", resp.ChunksCreated)
	}
	if resp.IndexLocation == "" {
		t.Error("index_location is empty")
	}
	if !strings.Contains(resp.Message, "report.txt") {
		t.Errorf("message = %q", resp.Message)
	}

	active, err := docRepo.GetActive(req.Context())
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if active.Filename != "report.txt" {
		t.Errorf("active document = %q", active.Filename)
	}

	// The saved file is renamed into place; no temporary files linger for
	// the watcher to pick up.
	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("failed to read upload dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "report.txt" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("upload dir contents = %v, want [report.txt]", names)
	}
}

func TestUploadHandler_EmptyFile(t *testing.T) {
	pipeline, _ := newTestPipeline(t, &testBuilder{})
	uploadDir := t.TempDir()
	handler := NewUploadHandler(pipeline, uploadDir)

	body, contentType := multipartUpload(t, "empty.txt", "")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Error == "" {
		t.Error("empty error message")
	}

	// A rejected empty upload never appears in the watched directory.
	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("failed to read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir not empty after rejected upload: %v", entries)
	}
}

// A failed index build surfaces as an error and leaves no active document.
func TestUploadHandler_BuildFailure(t *testing.T) {
	pipeline, docRepo := newTestPipeline(t, &testBuilder{failing: true})
	handler := NewUploadHandler(pipeline, t.TempDir())

	body, contentType := multipartUpload(t, "report.txt", "some content")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if _, err := docRepo.GetActive(req.Context()); err == nil {
		t.Error("failed upload still activated a document")
	}
}

func TestUploadHandler_MissingFileField(t *testing.T) {
	pipeline, _ := newTestPipeline(t, &testBuilder{})
	handler := NewUploadHandler(pipeline, t.TempDir())

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("other", "value")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadHandler_MethodNotAllowed(t *testing.T) {
	pipeline, _ := newTestPipeline(t, &testBuilder{})
	handler := NewUploadHandler(pipeline, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "report.pdf", want: "report.pdf"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: "dir\\file.txt", want: "file.txt"},
		{in: "..", want: ""},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
