package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"knowledge-butler/internal/index"
	"knowledge-butler/internal/rag"
)

// fakeAsker is a scripted query engine.
type fakeAsker struct {
	answer rag.Answer
	err    error
}

func (f *fakeAsker) Ask(_ context.Context, _ string) (rag.Answer, error) {
	return f.answer, f.err
}

func doQuery(t *testing.T, handler *QueryHandler, url string) (*httptest.ResponseRecorder, QueryResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body QueryResponse
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return rec, body
}

func TestQueryHandler_Success(t *testing.T) {
	engine := &fakeAsker{answer: rag.Answer{Text: "The document is about billing.", Method: rag.MethodGenerative}}
	handler := NewQueryHandler(engine, false)

	rec, body := doQuery(t, handler, "/query?query=what+is+this")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body.Answer != "The document is about billing." {
		t.Errorf("answer = %q", body.Answer)
	}
	if body.Method != "generative" {
		t.Errorf("method = %q", body.Method)
	}
}

// A query before any upload returns 200 with the fixed no-document answer,
// not an HTTP error.
func TestQueryHandler_NoDocumentYet(t *testing.T) {
	engine := &fakeAsker{err: rag.ErrNoDocument}
	handler := NewQueryHandler(engine, false)

	rec, body := doQuery(t, handler, "/query?query=anything")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body.Answer != "No document has been uploaded yet." {
		t.Errorf("answer = %q", body.Answer)
	}
}

func TestQueryHandler_ErrorTranslation(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "index missing", err: fmt.Errorf("load index: %w", index.ErrIndexNotFound)},
		{name: "unexpected failure", err: errors.New("database locked")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewQueryHandler(&fakeAsker{err: tt.err}, false)
			rec, body := doQuery(t, handler, "/query?query=anything")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if body.Answer == "" {
				t.Error("error not translated into answer text")
			}
		})
	}
}

func TestQueryHandler_StrictMode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "no document", err: rag.ErrNoDocument, wantStatus: http.StatusNotFound},
		{name: "index missing", err: index.ErrIndexNotFound, wantStatus: http.StatusServiceUnavailable},
		{name: "other", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewQueryHandler(&fakeAsker{err: tt.err}, true)
			rec, _ := doQuery(t, handler, "/query?query=anything")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestQueryHandler_BadRequests(t *testing.T) {
	handler := NewQueryHandler(&fakeAsker{}, false)

	rec, _ := doQuery(t, handler, "/query")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing query param: status = %d, want 400", rec.Code)
	}

	rec, _ = doQuery(t, handler, "/query?query=+++")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank query: status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/query?query=hi", nil)
	post := httptest.NewRecorder()
	handler.ServeHTTP(post, req)
	if post.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: status = %d, want 405", post.Code)
	}
}
