package convert

import (
	"errors"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aokana/wikiharvest/internal/render"
	"github.com/aokana/wikiharvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// A screenshot-only capture converts to EmptyContent, not a crash.
func TestArtifactTextWithoutDocument(t *testing.T) {
	c := New(testLogger)
	art := &types.CaptureArtifact{
		ScreenshotPath: "/tmp/shot.png",
		SourceURL:      "https://example.com/page",
	}
	_, err := c.ArtifactText(art)
	if !errors.Is(err, types.ErrEmptyContent) {
		t.Errorf("err = %v, want ErrEmptyContent", err)
	}
}

func TestPDFTextMissingFile(t *testing.T) {
	c := New(testLogger)
	if _, err := c.PDFText(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPDFTextNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(testLogger)
	if _, err := c.PDFText(path); err == nil {
		t.Error("expected error for non-PDF content")
	}
}

// An image-only PDF parses but yields no text.
func TestPDFTextImageOnlyDocument(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.White)
		}
	}
	path := filepath.Join(t.TempDir(), "image.pdf")
	if err := render.WritePagesPDF([]image.Image{img}, path); err != nil {
		t.Fatalf("WritePagesPDF: %v", err)
	}

	c := New(testLogger)
	_, err := c.PDFText(path)
	if !errors.Is(err, types.ErrEmptyContent) {
		t.Errorf("err = %v, want ErrEmptyContent", err)
	}
}
