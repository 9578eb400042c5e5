package rag

import (
	"context"
	"fmt"
	"strings"

	"knowledge-butler/internal/index"
	"knowledge-butler/internal/llm"
)

// minPlausibleAnswerLength is the trimmed length a generative answer must
// exceed to be accepted. Shorter responses are treated as soft failures and
// the next strategy is tried.
const minPlausibleAnswerLength = 10

// maxFallbackSentences limits how many matching sentences the extractive
// fallback returns.
const maxFallbackSentences = 3

// fallbackTruncateRunes bounds the last-resort chunk excerpt.
const fallbackTruncateRunes = 400

// noContextMessage is returned when there are no retrieved chunks at all.
const noContextMessage = "I couldn't find any relevant information in the document to answer this question."

// Strategy is one way of turning a query plus retrieved context into an
// answer string. Strategies are tried in order until one succeeds.
type Strategy interface {
	Name() string
	Answer(ctx context.Context, query string, retrieved []index.ScoredChunk) (string, error)
}

// Generator is the slice of a language-model client the generative strategy
// needs. Both the primary and the secondary model clients satisfy it.
type Generator interface {
	Complete(ctx context.Context, prompt string, params llm.CompletionParams) (string, error)
	ModelName() string
}

// GenerativeStrategy answers by prompting a language model with the
// retrieved chunk text and the question.
type GenerativeStrategy struct {
	name      string
	generator Generator
	params    llm.CompletionParams
}

// NewGenerativeStrategy creates a generative strategy backed by the given
// model client.
func NewGenerativeStrategy(name string, generator Generator, params llm.CompletionParams) *GenerativeStrategy {
	return &GenerativeStrategy{
		name:      name,
		generator: generator,
		params:    params,
	}
}

// Name returns the strategy name used in logs.
func (s *GenerativeStrategy) Name() string {
	return s.name
}

// Answer prompts the model and applies the plausibility check. An implausibly
// short completion is an error so the chain advances.
func (s *GenerativeStrategy) Answer(ctx context.Context, query string, retrieved []index.ScoredChunk) (string, error) {
	if len(retrieved) == 0 {
		return "", fmt.Errorf("no retrieved context")
	}

	prompt := buildPrompt(query, retrieved)
	answer, err := s.generator.Complete(ctx, prompt, s.params)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", s.generator.ModelName(), err)
	}

	answer = strings.TrimSpace(answer)
	if len(answer) <= minPlausibleAnswerLength {
		return "", fmt.Errorf("model %s returned implausibly short answer (%d chars)", s.generator.ModelName(), len(answer))
	}
	return answer, nil
}

func buildPrompt(query string, retrieved []index.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the context below. ")
	b.WriteString("If the context does not contain enough information, say so.\n\n")
	b.WriteString("--- Context ---\n")
	for _, sc := range retrieved {
		b.WriteString(sc.Chunk.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("--- End Context ---\n\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

// ExtractiveStrategy is the terminal fallback. It makes no external calls and
// never fails: it scores chunks by query-term occurrences, picks the best one
// and returns its matching sentences.
type ExtractiveStrategy struct{}

// NewExtractiveStrategy creates the context-extraction fallback.
func NewExtractiveStrategy() *ExtractiveStrategy {
	return &ExtractiveStrategy{}
}

// Name returns the strategy name used in logs.
func (s *ExtractiveStrategy) Name() string {
	return "context-extraction"
}

// Answer extracts the most relevant sentences from the best-scoring chunk.
func (s *ExtractiveStrategy) Answer(_ context.Context, query string, retrieved []index.ScoredChunk) (string, error) {
	if len(retrieved) == 0 {
		return noContextMessage, nil
	}

	terms := queryTerms(query)
	bestScore := 0
	bestChunk := retrieved[0].Chunk.Text
	for _, sc := range retrieved {
		score := termScore(sc.Chunk.Text, terms)
		if score > bestScore {
			bestScore = score
			bestChunk = sc.Chunk.Text
		}
	}

	if bestScore == 0 {
		return "Based on the document, the most relevant passage is: " + truncate(retrieved[0].Chunk.Text, fallbackTruncateRunes), nil
	}

	matched := matchingSentences(bestChunk, terms, maxFallbackSentences)
	if len(matched) == 0 {
		return "Based on the document, the most relevant passage is: " + truncate(bestChunk, fallbackTruncateRunes), nil
	}
	return "Based on the document, the most relevant passage says: " + strings.Join(matched, " "), nil
}

// queryTerms lowercases the query and keeps words longer than two characters.
func queryTerms(query string) []string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if len(word) > 2 {
			terms = append(terms, word)
		}
	}
	return terms
}

func termScore(text string, terms []string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, term := range terms {
		score += strings.Count(lower, term)
	}
	return score
}

// matchingSentences splits text into sentences and returns up to limit
// sentences containing at least one query term, in document order.
func matchingSentences(text string, terms []string, limit int) []string {
	var matched []string
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				matched = append(matched, sentence)
				break
			}
		}
		if len(matched) >= limit {
			break
		}
	}
	return matched
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			// Sentence boundary only when followed by whitespace or end of text.
			if i == len(runes)-1 || runes[i+1] == ' ' || runes[i+1] == '\n' {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
