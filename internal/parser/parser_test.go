package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextFromTxt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "context.txt")
	require.NoError(t, os.WriteFile(path, []byte("Authentication uses JWT tokens.\n"), 0o644))

	text, err := ExtractText(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Authentication uses JWT tokens.")
}

func TestExtractTextFromMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "context.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nBody paragraph.\n"), 0o644))

	text, err := ExtractText(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Body paragraph.")
}

func TestExtractTextUnsupportedFormat(t *testing.T) {
	_, err := ExtractText("context.exe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format")
}

func TestExtractTextFromXMLPicksUpSlideRuns(t *testing.T) {
	got := extractTextFromXML(`<p:sp><a:t>Hello</a:t><a:t>slides</a:t></p:sp>`)
	assert.Equal(t, "Hello slides ", got)
}
