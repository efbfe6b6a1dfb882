package domain

import "fmt"

// Chunk is a contiguous slice of a document's text, the unit of embedding and
// retrieval. ChunkID is the sequence index within the source document.
type Chunk struct {
	SourceID string
	ChunkID  int
	DocType  DocType
	Text     string
}

// IndexEntry is a chunk plus its embedding, as stored in the vector index.
// Entries are uniquely keyed by (SourceID, ChunkID); re-ingestion replaces
// entries sharing a key.
type IndexEntry struct {
	SourceID  string
	ChunkID   int
	DocType   DocType
	Text      string
	Embedding []float32
}

// ValidateIndexEntry validates an IndexEntry before it is stored.
func ValidateIndexEntry(e *IndexEntry, dimensions int) error {
	if e == nil {
		return fmt.Errorf("index entry cannot be nil")
	}
	if e.SourceID == "" {
		return fmt.Errorf("index entry SourceID is required")
	}
	if e.ChunkID < 0 {
		return fmt.Errorf("index entry ChunkID cannot be negative")
	}
	if e.Text == "" {
		return fmt.Errorf("index entry Text is required")
	}
	if dimensions > 0 && len(e.Embedding) != dimensions {
		return fmt.Errorf("index entry embedding has %d dimensions, expected %d", len(e.Embedding), dimensions)
	}
	return nil
}

// RetrievedPassage is one element of a retrieval result: a chunk's text, its
// similarity score against the query, and the metadata needed to attribute it.
type RetrievedPassage struct {
	SourceID string
	ChunkID  int
	DocType  DocType
	Text     string
	Score    float32
}
