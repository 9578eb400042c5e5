package document

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitter_Split_Empty(t *testing.T) {
	s := NewSplitter(DefaultChunkSize, DefaultOverlap, nil)
	if chunks := s.Split(""); chunks != nil {
		t.Errorf("Split(\"\") = %v, want nil", chunks)
	}
}

func TestSplitter_Split_ShortText(t *testing.T) {
	s := NewSplitter(DefaultChunkSize, DefaultOverlap, nil)
	chunks := s.Split("just a short sentence.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "just a short sentence." {
		t.Errorf("unexpected chunk: %q", chunks[0])
	}
}

func TestSplitter_Split_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		text      string
	}{
		{
			name:      "paragraph text",
			chunkSize: 100,
			overlap:   20,
			text:      strings.Repeat("A sentence that goes on for a while. ", 30),
		},
		{
			name:      "no separators beyond spaces",
			chunkSize: 50,
			overlap:   10,
			text:      strings.Repeat("word ", 100),
		},
		{
			name:      "default config",
			chunkSize: DefaultChunkSize,
			overlap:   DefaultOverlap,
			text:      strings.Repeat("Paragraph one text.\n\nParagraph two text. ", 200),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSplitter(tt.chunkSize, tt.overlap, nil)
			chunks := s.Split(tt.text)
			if len(chunks) == 0 {
				t.Fatal("no chunks produced for non-empty input")
			}
			for i, chunk := range chunks {
				if chunk == "" {
					t.Errorf("chunk %d is empty", i)
				}
				if n := utf8.RuneCountInString(chunk); n > tt.chunkSize {
					t.Errorf("chunk %d has %d runes, limit %d", i, n, tt.chunkSize)
				}
			}
		})
	}
}

// Stripping the carried overlap from every chunk after the first and
// concatenating the rest must reconstruct the input exactly.
func TestSplitter_Split_Reconstruction(t *testing.T) {
	texts := []string{
		strings.Repeat("One sentence here. Another one there. ", 50),
		"short",
		strings.Repeat("para\n\n", 40) + "tail",
		strings.Repeat("unbrokenrun", 30),
	}

	for _, overlap := range []int{0, 10, 25} {
		s := NewSplitter(100, overlap, nil)
		for _, text := range texts {
			chunks := s.Split(text)
			var b strings.Builder
			consumed := 0
			for i, chunk := range chunks {
				runes := []rune(chunk)
				if i == 0 {
					b.WriteString(chunk)
					consumed += len(runes)
					continue
				}
				strip := overlap
				if consumed < strip {
					strip = consumed
				}
				b.WriteString(string(runes[strip:]))
				consumed += len(runes) - strip
			}
			if b.String() != text {
				t.Errorf("overlap %d: reconstruction mismatch for input of %d runes", overlap, utf8.RuneCountInString(text))
			}
		}
	}
}

// A single token longer than the chunk size with no usable separator must be
// emitted as one oversized chunk rather than dropped.
func TestSplitter_Split_AtomicToken(t *testing.T) {
	s := NewSplitter(20, 5, []string{"\n\n", " "})
	token := strings.Repeat("x", 50)
	chunks := s.Split(token)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != token {
		t.Errorf("atomic token altered: got %d runes", utf8.RuneCountInString(chunks[0]))
	}
}

func TestSplitter_Split_OverlapPrefix(t *testing.T) {
	overlap := 10
	s := NewSplitter(40, overlap, nil)
	text := strings.Repeat("some words here. ", 20)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("need at least 2 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := string(prev[len(prev)-overlap:])
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not start with the previous chunk's tail %q: %q", i, tail, chunks[i])
		}
	}
}

func TestNewSplitter_Defaults(t *testing.T) {
	s := NewSplitter(0, -1, nil)
	if s.chunkSize != DefaultChunkSize {
		t.Errorf("chunkSize = %d, want %d", s.chunkSize, DefaultChunkSize)
	}
	if s.overlap != 0 {
		t.Errorf("overlap = %d, want 0", s.overlap)
	}
	if len(s.separators) != len(DefaultSeparators) {
		t.Errorf("separators not defaulted")
	}
}
