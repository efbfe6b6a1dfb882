package service

import (
	"unicode"

	"github.com/talentsift/talentsift/internal/domain"
)

// ChunkConfig controls how documents are split for embedding.
type ChunkConfig struct {
	MaxChars int
	Overlap  int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1000,
		Overlap:  200,
	}
}

// normalize clamps the config into its invariants: MaxChars positive,
// Overlap bounded by MaxChars/2 so every chunk makes progress.
func (cfg ChunkConfig) normalize() ChunkConfig {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap > cfg.MaxChars/2 {
		cfg.Overlap = cfg.MaxChars / 2
	}
	return cfg
}

// SplitDocument chunks a document's text and stamps each chunk with the
// document's identity so index entries can be filtered and replaced by source.
func SplitDocument(doc *domain.Document, cfg ChunkConfig) []domain.Chunk {
	pieces := SplitText(doc.RawText, cfg)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, text := range pieces {
		chunks = append(chunks, domain.Chunk{
			SourceID: doc.SourceID,
			ChunkID:  i,
			DocType:  doc.DocType,
			Text:     text,
		})
	}
	return chunks
}

// SplitText splits text into chunks of at most MaxChars characters. Cuts
// prefer paragraph boundaries, then sentence ends, then whitespace, with a
// hard cut as last resort. Each chunk after the first starts with the last
// Overlap characters of its predecessor; stripping those prefixes and
// concatenating reproduces the input exactly.
func SplitText(text string, cfg ChunkConfig) []string {
	if text == "" {
		return nil
	}
	cfg = cfg.normalize()

	runes := []rune(text)
	if len(runes) <= cfg.MaxChars {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/cfg.MaxChars+1)
	start := 0
	prefix := []rune(nil)

	for start < len(runes) {
		budget := cfg.MaxChars - len(prefix)

		var cut int
		if len(runes)-start <= budget {
			cut = len(runes)
		} else {
			cut = findCut(runes, start, start+budget)
		}

		chunk := append(append([]rune(nil), prefix...), runes[start:cut]...)
		chunks = append(chunks, string(chunk))

		start = cut
		overlap := cfg.Overlap
		if overlap > len(chunk) {
			overlap = len(chunk)
		}
		prefix = chunk[len(chunk)-overlap:]
	}

	return chunks
}

// findCut picks a cut position in (start, limit], preferring a newline, then
// a sentence end, then any whitespace. The earliest acceptable cut is halfway
// through the window so boundary-seeking never produces degenerate slivers.
func findCut(runes []rune, start, limit int) int {
	minCut := start + (limit-start)/2

	for i := limit; i > minCut; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	for i := limit; i > minCut; i-- {
		if isSentenceEnd(runes, i) {
			return i
		}
	}
	for i := limit; i > minCut; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return limit
}

// isSentenceEnd reports whether position i sits just after a terminator
// followed by a space.
func isSentenceEnd(runes []rune, i int) bool {
	if i < 2 || !unicode.IsSpace(runes[i-1]) {
		return false
	}
	switch runes[i-2] {
	case '.', '!', '?':
		return true
	}
	return false
}
