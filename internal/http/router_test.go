package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"knowledge-butler/internal/storage"
	storagemocks "knowledge-butler/internal/storage/mocks"
	storemocks "knowledge-butler/internal/vectorstore/mocks"
)

func newTestRouter(t *testing.T) (http.Handler, *storagemocks.MockDocumentStore, *storemocks.MockVectorStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	docs := storagemocks.NewMockDocumentStore(ctrl)
	store := storemocks.NewMockVectorStore(ctrl)

	router := NewRouter(&Deps{
		Docs:        docs,
		VectorStore: store,
		IndexHTML:   "<html><body>Knowledge Butler</body></html>",
	})
	return router, docs, store
}

func TestRouter_ServesIndexHTML(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Knowledge Butler") {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestRouter_HealthRoute(t *testing.T) {
	router, docs, _ := newTestRouter(t)
	docs.EXPECT().GetActive(gomock.Any()).Return(nil, storage.ErrNotFound).Times(2)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRouter_DocumentsRoute(t *testing.T) {
	router, docs, _ := newTestRouter(t)
	docs.EXPECT().ListAll(gomock.Any()).Return(nil, nil)
	docs.EXPECT().GetActive(gomock.Any()).Return(nil, storage.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
