package document

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes, including the
	// overlap carried from the previous chunk.
	DefaultChunkSize = 800
	// DefaultOverlap is the number of trailing runes of the previous chunk
	// repeated at the start of the next one to preserve cross-boundary
	// context for retrieval.
	DefaultOverlap = 100
)

// DefaultSeparators is the split priority order, coarsest first. The empty
// string is a last resort that slices at rune granularity.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

// Splitter splits normalized text into overlapping chunks along a priority
// list of separators. Splitting is separator-preserving and lossless:
// stripping the carried overlap prefix from every chunk after the first and
// concatenating the rest reconstructs the input exactly.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter creates a Splitter. Non-positive chunkSize falls back to
// DefaultChunkSize, nil separators to DefaultSeparators. The overlap is
// clamped below chunkSize so every chunk keeps room for new content.
func NewSplitter(chunkSize, overlap int, separators []string) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	if separators == nil {
		separators = DefaultSeparators
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: separators,
	}
}

// Split splits text into chunks of at most chunkSize runes. The only chunks
// allowed to exceed chunkSize are single atomic tokens that no configured
// separator can break (impossible with the "" separator present). Non-empty
// input always yields at least one chunk.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	limit := s.chunkSize - s.overlap
	pieces := s.splitRecursive(text, s.separators, limit)
	bodies := mergePieces(pieces, limit)

	chunks := make([]string, 0, len(bodies))
	var tail []rune // trailing runes of the text emitted so far
	for i, body := range bodies {
		if i == 0 || s.overlap == 0 {
			chunks = append(chunks, body)
		} else {
			chunks = append(chunks, string(tail)+body)
		}
		tail = append(tail, []rune(body)...)
		if len(tail) > s.overlap {
			tail = tail[len(tail)-s.overlap:]
		}
	}
	return chunks
}

// splitRecursive breaks text into pieces no longer than limit runes, trying
// separators in priority order. Separators stay attached to the piece they
// terminate so no characters are lost.
func (s *Splitter) splitRecursive(text string, separators []string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	if len(separators) == 0 {
		// Atomic token longer than the limit: emitted unsplit.
		return []string{text}
	}

	sep := separators[0]
	rest := separators[1:]

	if sep == "" {
		return hardSlice(text, limit)
	}

	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		return s.splitRecursive(text, rest, limit)
	}

	var pieces []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= limit {
			pieces = append(pieces, part)
		} else {
			pieces = append(pieces, s.splitRecursive(part, rest, limit)...)
		}
	}
	return pieces
}

// mergePieces greedily packs consecutive pieces into bodies of at most limit
// runes. Oversized atomic pieces become bodies of their own.
func mergePieces(pieces []string, limit int) []string {
	var bodies []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		bodies = append(bodies, current.String())
		current.Reset()
		currentLen = 0
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if pieceLen > limit {
			flush()
			bodies = append(bodies, piece)
			continue
		}
		if currentLen+pieceLen > limit {
			flush()
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}
	flush()

	return bodies
}

// hardSlice cuts text into limit-sized rune slices, the character-granularity
// last resort for the "" separator.
func hardSlice(text string, limit int) []string {
	runes := []rune(text)
	var pieces []string
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
