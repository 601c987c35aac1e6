package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewExtractorDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"eng"}, NewExtractor().Languages())
	assert.Equal(t, []string{"eng", "hin"}, NewExtractor("eng", "hin").Languages())
}
