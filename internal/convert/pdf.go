// Package convert turns capture artifacts into plain text.
package convert

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/aokana/wikiharvest/internal/types"
)

// Converter extracts text from captured documents.
type Converter struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Converter {
	return &Converter{logger: logger.With("component", "convert")}
}

// ArtifactText converts a capture artifact's document into text. A capture
// that produced no document (screenshot only) is an empty-content failure,
// not a crash: the caller decides whether the screenshot alone suffices.
func (c *Converter) ArtifactText(art *types.CaptureArtifact) (string, error) {
	if art.DocumentPath == "" {
		return "", fmt.Errorf("%w: capture produced no document for %s",
			types.ErrEmptyContent, art.SourceURL)
	}
	return c.PDFText(art.DocumentPath)
}

// PDFText reads a PDF from disk and returns its plain text, pages joined by
// form feeds.
func (c *Converter) PDFText(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat document: %w", err)
	}
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			c.logger.Debug("page text extraction failed", "path", path, "page", i, "error", err)
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", fmt.Errorf("%w: pdf %s holds no extractable text", types.ErrEmptyContent, path)
	}
	c.logger.Info("pdf converted", "path", path, "pages", numPages, "chars", len([]rune(text)))
	return text, nil
}
