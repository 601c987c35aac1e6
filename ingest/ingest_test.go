package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTextFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "guide.txt", "Crop rotation improves soil structure and breaks pest cycles.")

	docs, err := NewLoader().LoadFile(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "Crop rotation")
	assert.Equal(t, path, docs[0].Metadata["source"])
}

func TestLoadHTMLStripsMarkup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "advice.html", `<html><head>
<script>alert("hi")</script><style>body{}</style></head>
<body><nav>menu</nav><h1>Wheat rust</h1><p>Apply fungicide at first sign of pustules.</p><footer>contact</footer></body></html>`)

	docs, err := NewLoader().LoadFile(context.Background(), path)
	require.NoError(t, err)

	require.NotEmpty(t, docs)
	joined := docs[0].Content
	assert.Contains(t, joined, "Wheat rust")
	assert.Contains(t, joined, "fungicide")
	assert.NotContains(t, joined, "alert")
	assert.NotContains(t, joined, "menu")
	assert.NotContains(t, joined, "contact")
}

func TestLoadDirectorySkipsUnsupported(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "Drip irrigation reduces water usage.")
	writeFile(t, dir, "data.csv", "a,b,c")

	docs, err := NewLoader().LoadDirectory(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "Drip irrigation")
}

func TestLongTextIsChunkedWithOverlap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("Maize needs warm soil and consistent moisture during tasseling. ")
	}
	path := writeFile(t, dir, "maize.txt", sb.String())

	docs, err := NewLoader().LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Greater(t, len(docs), 1)
	for _, doc := range docs {
		assert.LessOrEqual(t, len(doc.Content), defaultChunkSize+defaultChunkOverlap)
	}
}

func TestImagesSkippedWithoutOCR(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "leaf.png", "not really a png")

	docs, err := NewLoader().LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
