package rag

import (
	"context"

	"knowledge-butler/internal/contextutil"
	"knowledge-butler/internal/index"
)

// Answerer runs an ordered chain of strategies until one produces an answer.
// The chain always terminates in the extractive fallback, so Synthesize never
// returns an error: any strategy failure just advances to the next one.
type Answerer struct {
	strategies []Strategy
}

// NewAnswerer creates an answerer with the given strategy chain. The caller
// is expected to place the extractive fallback last.
func NewAnswerer(strategies ...Strategy) *Answerer {
	return &Answerer{strategies: strategies}
}

// Synthesize tries each strategy in order and returns the first accepted
// answer together with the method that produced it.
func (a *Answerer) Synthesize(ctx context.Context, query string, retrieved []index.ScoredChunk) Answer {
	logger := contextutil.LoggerFromContext(ctx)

	for _, strategy := range a.strategies {
		text, err := strategy.Answer(ctx, query, retrieved)
		if err != nil {
			logger.WarnContext(ctx, "answer strategy failed, trying next",
				"strategy", strategy.Name(), "error", err)
			continue
		}

		method := MethodGenerative
		if _, ok := strategy.(*ExtractiveStrategy); ok {
			method = MethodContextFallback
			if len(retrieved) == 0 {
				method = MethodNone
			}
		}
		logger.InfoContext(ctx, "answer synthesized", "strategy", strategy.Name(), "method", string(method))
		return Answer{Text: text, Method: method}
	}

	// Unreachable when the extractive fallback is in the chain, but the
	// contract is that Synthesize always returns something.
	return Answer{Text: noContextMessage, Method: MethodNone}
}
