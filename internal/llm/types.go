package llm

import "errors"

// ErrModel is returned for any external model-service failure: timeouts,
// quota errors, transport errors or malformed responses. Callers on the
// answer path treat it as a signal to fall through to the next strategy.
var ErrModel = errors.New("model service error")

// CompletionParams bounds a single completion request.
type CompletionParams struct {
	// MaxTokens caps the generated output length. Zero means the service
	// default.
	MaxTokens int

	// Temperature controls sampling randomness.
	Temperature float32
}
