// Package ocr extracts text from scanned documents and field photos so
// they can be ingested into the knowledge base.
package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Extractor runs Tesseract OCR over images. A fresh client is created per
// extraction; gosseract clients are not safe for concurrent reuse.
type Extractor struct {
	languages []string
}

// NewExtractor builds an extractor for the given Tesseract languages
// (default "eng").
func NewExtractor(languages ...string) *Extractor {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Extractor{languages: languages}
}

// Languages reports the configured Tesseract languages.
func (e *Extractor) Languages() []string {
	return e.languages
}

// ExtractFile OCRs an image file and returns the recognized text.
func (e *Extractor) ExtractFile(path string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("failed to set ocr languages: %w", err)
	}
	if err := client.SetImage(path); err != nil {
		return "", fmt.Errorf("failed to load image %s: %w", path, err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr failed for %s: %w", path, err)
	}
	return strings.TrimSpace(text), nil
}

// ExtractBytes OCRs an in-memory image and returns the recognized text.
func (e *Extractor) ExtractBytes(data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("failed to set ocr languages: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to load image bytes: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}
