package document

// Chunk is a bounded span of normalized document text, the unit of embedding
// and retrieval.
type Chunk struct {
	Text          string // Normalized chunk text
	SequenceIndex int    // Extraction order within the source document (starts at 0)
	SourceID      string // Source file path
}
