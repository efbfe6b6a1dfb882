package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentsift/talentsift/internal/domain"
)

// reconstruct strips the overlap prefix from every chunk after the first and
// concatenates what remains.
func reconstruct(chunks []string, cfg ChunkConfig) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i == 0 {
			sb.WriteString(c)
			continue
		}
		prev := []rune(chunks[i-1])
		overlap := cfg.Overlap
		if overlap > len(prev) {
			overlap = len(prev)
		}
		sb.WriteString(string([]rune(c)[overlap:]))
	}
	return sb.String()
}

func TestSplitText_Empty(t *testing.T) {
	assert.Nil(t, SplitText("", DefaultChunkConfig()))
}

func TestSplitText_ShortTextSingleChunk(t *testing.T) {
	chunks := SplitText("A short paragraph.", DefaultChunkConfig())

	require.Len(t, chunks, 1)
	assert.Equal(t, "A short paragraph.", chunks[0])
}

func TestSplitText_NoChunkExceedsMaxChars(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)
	cfg := ChunkConfig{MaxChars: 300, Overlap: 50}

	chunks := SplitText(text, cfg)

	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), cfg.MaxChars, "chunk %d", i)
		assert.NotEmpty(t, c, "chunk %d", i)
	}
}

func TestSplitText_ReconstructsSource(t *testing.T) {
	texts := []string{
		strings.Repeat("First paragraph about backend systems.\n\nSecond paragraph about scoring. ", 40),
		strings.Repeat("No boundaries here at all ", 100),
		strings.Repeat("x", 5000),
		"Short. " + strings.Repeat("Sentence one. Sentence two! Sentence three? ", 60),
	}

	for _, text := range texts {
		cfg := ChunkConfig{MaxChars: 400, Overlap: 80}
		chunks := SplitText(text, cfg)

		require.NotEmpty(t, chunks)
		assert.Equal(t, text, reconstruct(chunks, cfg))
	}
}

func TestSplitText_OverlapIsSuffixOfPreviousChunk(t *testing.T) {
	text := strings.Repeat("Evaluate the candidate against the rubric. ", 100)
	cfg := ChunkConfig{MaxChars: 300, Overlap: 60}

	chunks := SplitText(text, cfg)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		cur := []rune(chunks[i])
		suffix := string(prev[len(prev)-cfg.Overlap:])
		assert.Equal(t, suffix, string(cur[:cfg.Overlap]), "chunk %d", i)
	}
}

func TestSplitText_OverlapClampedToHalfMax(t *testing.T) {
	text := strings.Repeat("word ", 500)
	// Overlap larger than MaxChars/2 must be clamped, or chunking would
	// never advance.
	chunks := SplitText(text, ChunkConfig{MaxChars: 100, Overlap: 90})

	require.NotEmpty(t, chunks)
	clamped := ChunkConfig{MaxChars: 100, Overlap: 50}
	assert.Equal(t, text, reconstruct(chunks, clamped))
}

func TestSplitText_HardCutWhenNoBoundary(t *testing.T) {
	text := strings.Repeat("a", 2500)
	cfg := ChunkConfig{MaxChars: 1000, Overlap: 0}

	chunks := SplitText(text, cfg)

	require.Len(t, chunks, 3)
	assert.Equal(t, text, reconstruct(chunks, cfg))
}

func TestSplitText_PrefersParagraphBoundary(t *testing.T) {
	para := strings.Repeat("alpha beta gamma delta. ", 10) // 240 chars
	text := para + "\n" + para + "\n" + para

	chunks := SplitText(text, ChunkConfig{MaxChars: 300, Overlap: 0})

	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0], "\n"), "first cut should land on a newline")
}

func TestSplitDocument_StampsMetadata(t *testing.T) {
	doc := domain.NewDocument("cv_scoring_rubric.txt", domain.DocTypeScoringRubric,
		strings.Repeat("Rate the candidate from one to five. ", 50))

	chunks := SplitDocument(doc, ChunkConfig{MaxChars: 200, Overlap: 40})

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, "cv_scoring_rubric.txt", c.SourceID)
		assert.Equal(t, domain.DocTypeScoringRubric, c.DocType)
		assert.Equal(t, i, c.ChunkID)
	}
}
