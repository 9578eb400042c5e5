package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"knowledge-butler/internal/storage"
	storagemocks "knowledge-butler/internal/storage/mocks"
	storemocks "knowledge-butler/internal/vectorstore/mocks"
)

func TestHealthHandler_Healthy(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storemocks.NewMockVectorStore(ctrl)
	docs := storagemocks.NewMockDocumentStore(ctrl)
	handler := NewHealthHandler(store, docs)

	doc := &storage.DocumentRecord{ID: "d1", IndexLocation: "/data/index/d1"}
	docs.EXPECT().GetActive(gomock.Any()).Return(doc, nil).Times(2)
	store.EXPECT().LocationExists(gomock.Any(), "/data/index/d1").Return(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestHealthHandler_NoDocumentIsHealthy(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storemocks.NewMockVectorStore(ctrl)
	docs := storagemocks.NewMockDocumentStore(ctrl)
	handler := NewHealthHandler(store, docs)

	docs.EXPECT().GetActive(gomock.Any()).Return(nil, storage.ErrNotFound).Times(2)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 before first upload", rec.Code)
	}
}

func TestHealthHandler_MissingIndexUnhealthy(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storemocks.NewMockVectorStore(ctrl)
	docs := storagemocks.NewMockDocumentStore(ctrl)
	handler := NewHealthHandler(store, docs)

	doc := &storage.DocumentRecord{ID: "d1", IndexLocation: "/data/index/d1"}
	docs.EXPECT().GetActive(gomock.Any()).Return(doc, nil).Times(2)
	store.EXPECT().LocationExists(gomock.Any(), "/data/index/d1").Return(false, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHealthHandler_DatabaseDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storemocks.NewMockVectorStore(ctrl)
	docs := storagemocks.NewMockDocumentStore(ctrl)
	handler := NewHealthHandler(store, docs)

	docs.EXPECT().GetActive(gomock.Any()).Return(nil, errors.New("database locked")).Times(2)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
