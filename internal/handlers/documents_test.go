package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"knowledge-butler/internal/storage"
	storagemocks "knowledge-butler/internal/storage/mocks"
)

func TestDocumentsHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	docs := storagemocks.NewMockDocumentStore(ctrl)
	handler := NewDocumentsHandler(docs)

	records := []*storage.DocumentRecord{
		{ID: "d2", Filename: "new.pdf", ChunkCount: 5, EmbeddingModel: "m", CreatedAt: time.Now()},
		{ID: "d1", Filename: "old.pdf", ChunkCount: 3, EmbeddingModel: "m", CreatedAt: time.Now().Add(-time.Hour)},
	}
	docs.EXPECT().ListAll(gomock.Any()).Return(records, nil)
	docs.EXPECT().GetActive(gomock.Any()).Return(records[0], nil)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp DocumentsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Documents) != 2 {
		t.Fatalf("got %d documents", len(resp.Documents))
	}
	if !resp.Documents[0].Active {
		t.Error("newest document not marked active")
	}
	if resp.Documents[1].Active {
		t.Error("old document marked active")
	}
}

func TestDocumentsHandler_EmptyCatalog(t *testing.T) {
	ctrl := gomock.NewController(t)
	docs := storagemocks.NewMockDocumentStore(ctrl)
	handler := NewDocumentsHandler(docs)

	docs.EXPECT().ListAll(gomock.Any()).Return(nil, nil)
	docs.EXPECT().GetActive(gomock.Any()).Return(nil, storage.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp DocumentsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Documents) != 0 {
		t.Errorf("got %d documents from empty catalog", len(resp.Documents))
	}
}
