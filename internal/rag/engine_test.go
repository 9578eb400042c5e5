package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"knowledge-butler/internal/index"
	"knowledge-butler/internal/llm"
	ragmocks "knowledge-butler/internal/rag/mocks"
	"knowledge-butler/internal/storage"
	storagemocks "knowledge-butler/internal/storage/mocks"
)

func activeDoc() *storage.DocumentRecord {
	return &storage.DocumentRecord{
		ID:             "doc-1",
		Filename:       "report.pdf",
		IndexLocation:  "/data/index/report-1",
		EmbeddingModel: "test-model",
		ChunkCount:     3,
	}
}

func TestEngine_Ask(t *testing.T) {
	ctrl := gomock.NewController(t)
	docs := storagemocks.NewMockDocumentStore(ctrl)
	retriever := ragmocks.NewMockRetriever(ctrl)

	generator := &fakeGenerator{answer: "A generative answer based on the retrieved context."}
	answerer := NewAnswerer(
		NewGenerativeStrategy("primary", generator, llm.CompletionParams{}),
		NewExtractiveStrategy(),
	)
	engine := NewEngine(docs, retriever, answerer, 3)

	ctx := context.Background()
	doc := activeDoc()
	handle := index.Handle{Location: doc.IndexLocation, Model: "current-model", Dimension: 2}

	docs.EXPECT().GetActive(ctx).Return(doc, nil)
	retriever.EXPECT().Load(ctx, doc.IndexLocation).Return(handle, nil)
	// The model tag recorded at build time rides along into the search.
	retriever.EXPECT().
		Search(ctx, gomock.AssignableToTypeOf(index.Handle{}), "what is this?", 3).
		DoAndReturn(func(_ context.Context, h index.Handle, _ string, _ int) ([]index.ScoredChunk, error) {
			if h.Model != doc.EmbeddingModel {
				t.Errorf("search handle model = %q, want %q", h.Model, doc.EmbeddingModel)
			}
			return retrievedChunks("relevant context"), nil
		})

	answer, err := engine.Ask(ctx, "what is this?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != generator.answer {
		t.Errorf("Text = %q", answer.Text)
	}
	if answer.Method != MethodGenerative {
		t.Errorf("Method = %q", answer.Method)
	}
}

func TestEngine_Ask_NoDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	docs := storagemocks.NewMockDocumentStore(ctrl)
	engine := NewEngine(docs, ragmocks.NewMockRetriever(ctrl), NewAnswerer(NewExtractiveStrategy()), 3)

	docs.EXPECT().GetActive(gomock.Any()).Return(nil, storage.ErrNotFound)

	_, err := engine.Ask(context.Background(), "anything")
	if !errors.Is(err, ErrNoDocument) {
		t.Errorf("Ask() error = %v, want ErrNoDocument", err)
	}
}

func TestEngine_Ask_IndexMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	docs := storagemocks.NewMockDocumentStore(ctrl)
	retriever := ragmocks.NewMockRetriever(ctrl)
	engine := NewEngine(docs, retriever, NewAnswerer(NewExtractiveStrategy()), 3)

	doc := activeDoc()
	docs.EXPECT().GetActive(gomock.Any()).Return(doc, nil)
	retriever.EXPECT().Load(gomock.Any(), doc.IndexLocation).
		Return(index.Handle{}, index.ErrIndexNotFound)

	_, err := engine.Ask(context.Background(), "anything")
	if !errors.Is(err, index.ErrIndexNotFound) {
		t.Errorf("Ask() error = %v, want ErrIndexNotFound", err)
	}
}

func TestEngine_Ask_EmptyRetrievalStillAnswers(t *testing.T) {
	ctrl := gomock.NewController(t)
	docs := storagemocks.NewMockDocumentStore(ctrl)
	retriever := ragmocks.NewMockRetriever(ctrl)
	engine := NewEngine(docs, retriever, NewAnswerer(NewExtractiveStrategy()), 3)

	doc := activeDoc()
	docs.EXPECT().GetActive(gomock.Any()).Return(doc, nil)
	retriever.EXPECT().Load(gomock.Any(), doc.IndexLocation).
		Return(index.Handle{Location: doc.IndexLocation}, nil)
	retriever.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any(), 3).
		Return([]index.ScoredChunk{}, nil)

	answer, err := engine.Ask(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text == "" {
		t.Fatal("empty answer for empty retrieval set")
	}
	if !strings.Contains(answer.Text, "relevant information") {
		t.Errorf("unexpected no-context answer: %q", answer.Text)
	}
}
