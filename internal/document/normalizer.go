package document

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinLineLength is the minimum trimmed line length kept by the
// normalizer. Shorter lines are treated as headers, footers or page numbers
// and dropped. This is a lossy heuristic: short but meaningful lines (section
// titles, dates) are discarded too. That trade-off is accepted for corpus
// compatibility; tune it via MIN_LINE_LENGTH.
const DefaultMinLineLength = 10

var (
	// Lowercase letter glued to an uppercase letter, a common PDF
	// text-extraction artifact where the space at a word boundary is lost.
	gluedWordsRe = regexp.MustCompile(`([a-z])([A-Z])`)
	// Numbered-list marker glued to the following word ("1.Foo").
	listMarkerRe = regexp.MustCompile(`(\d+\.)([A-Za-z])`)
)

// Normalizer cleans raw extracted text before chunking.
//
// Operations run in a fixed order: line-level filtering first, then
// word-boundary repairs, then whitespace collapse. Paragraph boundaries
// (blank lines) are preserved as "\n\n" so the splitter's coarsest separator
// still applies after normalization. Normalize is idempotent.
type Normalizer struct {
	minLineLength int
}

// NewNormalizer creates a Normalizer. minLineLength <= 0 disables the
// short-line filter.
func NewNormalizer(minLineLength int) *Normalizer {
	if minLineLength < 0 {
		minLineLength = 0
	}
	return &Normalizer{minLineLength: minLineLength}
}

// Normalize cleans raw text: drops likely header/footer lines, repairs glued
// word boundaries, fixes numbered-list spacing and collapses whitespace while
// keeping one blank line between paragraphs.
func (n *Normalizer) Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		paragraphs = append(paragraphs, strings.Join(current, " "))
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		// Collapse inner whitespace before measuring so the keep/drop
		// decision is stable across repeated normalization.
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			flush()
			continue
		}
		if utf8.RuneCountInString(line) < n.minLineLength {
			continue
		}
		current = append(current, line)
	}
	flush()

	for i, p := range paragraphs {
		p = gluedWordsRe.ReplaceAllString(p, "$1 $2")
		p = listMarkerRe.ReplaceAllString(p, "$1 $2")
		paragraphs[i] = p
	}

	return strings.Join(paragraphs, "\n\n")
}
