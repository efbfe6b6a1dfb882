package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExtractor_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job_description.txt")
	require.NoError(t, os.WriteFile(path, []byte("Backend engineer. Go, Postgres."), 0o644))

	e := NewFileExtractor()
	text, err := e.ExtractText(path)

	require.NoError(t, err)
	assert.Equal(t, "Backend engineer. Go, Postgres.", text)
}

func TestFileExtractor_Markdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "case_study_brief.md")
	require.NoError(t, os.WriteFile(path, []byte("# Brief\n\nBuild a RAG pipeline."), 0o644))

	e := NewFileExtractor()
	text, err := e.ExtractText(path)

	require.NoError(t, err)
	assert.Contains(t, text, "Build a RAG pipeline.")
}

func TestFileExtractor_UnsupportedFormat(t *testing.T) {
	e := NewFileExtractor()

	_, err := e.ExtractText("resume.docx")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format")
}

func TestFileExtractor_Supported(t *testing.T) {
	e := NewFileExtractor()

	assert.True(t, e.Supported("a.txt"))
	assert.True(t, e.Supported("a.MD"))
	assert.True(t, e.Supported("a.pdf"))
	assert.False(t, e.Supported("a.docx"))
	assert.False(t, e.Supported("a"))
}

func TestFileExtractor_MissingFile(t *testing.T) {
	e := NewFileExtractor()

	_, err := e.ExtractText(filepath.Join(t.TempDir(), "missing.txt"))

	assert.Error(t, err)
}
