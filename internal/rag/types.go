package rag

import "errors"

// ErrNoDocument is returned by Ask when nothing has been uploaded yet.
var ErrNoDocument = errors.New("no document uploaded")

// Method identifies which synthesis strategy produced an answer.
type Method string

const (
	// MethodGenerative means a language model produced the answer.
	MethodGenerative Method = "generative"
	// MethodContextFallback means the answer was extracted directly from
	// retrieved chunk text without a model call.
	MethodContextFallback Method = "context-fallback"
	// MethodNone means no retrieved context was available at all.
	MethodNone Method = "none"
)

// Answer is the ephemeral result of one query.
type Answer struct {
	Text   string `json:"text"`
	Method Method `json:"method"`
}
