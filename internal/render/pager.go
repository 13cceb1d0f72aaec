package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/jung-kurt/gofpdf"
	xdraw "golang.org/x/image/draw"
)

const (
	// cutSearchLow is the top of the cut-search window, as a fraction of
	// the target page height.
	cutSearchLow = 0.8
	// quietRowStddev is the luminance spread under which a pixel row is
	// considered blank enough to cut on.
	quietRowStddev = 10.0
	// maxPageWidth bounds embedded page images; wider pages are downscaled
	// before binding.
	maxPageWidth = 1600
)

// RepaginateImage slices a tall page screenshot into page-sized images.
// Each page targets a height of width*aspectRatio; the actual cut lands on
// the lowest visually quiet row inside the window [0.8*target, target] so
// text lines are not split mid-glyph, falling back to a hard cut when the
// window holds no quiet row.
func RepaginateImage(data []byte, aspectRatio float64) ([]image.Image, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("empty screenshot %dx%d", width, height)
	}
	if aspectRatio <= 0 {
		aspectRatio = 1.5
	}
	target := int(float64(width) * aspectRatio)
	if target < 1 {
		target = height
	}

	var pages []image.Image
	for top := bounds.Min.Y; top < bounds.Max.Y; {
		remaining := bounds.Max.Y - top
		cut := remaining
		if remaining > target {
			cut = findQuietCut(src, top, target)
		}
		page := cropRows(src, top, top+cut)
		pages = append(pages, downscale(page))
		top += cut
	}
	return pages, nil
}

// findQuietCut scans upward from top+target looking for a row whose
// luminance barely varies, limited to the middle 60% of the width so
// sidebars and scrollbars do not veto a cut.
func findQuietCut(src image.Image, top, target int) int {
	low := int(float64(target) * cutSearchLow)
	for offset := target; offset >= low; offset-- {
		if rowStddev(src, top+offset-1) < quietRowStddev {
			return offset
		}
	}
	return target
}

func rowStddev(src image.Image, y int) float64 {
	bounds := src.Bounds()
	width := bounds.Dx()
	x0 := bounds.Min.X + width*20/100
	x1 := bounds.Min.X + width*80/100
	n := x1 - x0
	if n <= 0 {
		return math.MaxFloat64
	}

	var sum, sumSq float64
	for x := x0; x < x1; x++ {
		r, g, b, _ := src.At(x, y).RGBA()
		// Rec. 601 luma over 8-bit channels.
		lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		sum += lum
		sumSq += lum * lum
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

func cropRows(src image.Image, y0, y1 int) image.Image {
	bounds := src.Bounds()
	rect := image.Rect(bounds.Min.X, y0, bounds.Max.X, y1)
	if sub, ok := src.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect)
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, rect.Min, xdraw.Src)
	return dst
}

func downscale(src image.Image) image.Image {
	bounds := src.Bounds()
	if bounds.Dx() <= maxPageWidth {
		return src
	}
	scale := float64(maxPageWidth) / float64(bounds.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, maxPageWidth, int(float64(bounds.Dy())*scale)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// WritePagesPDF binds page images into a single PDF, one image per page,
// scaled to fill the printable width.
func WritePagesPDF(pages []image.Image, path string) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to write")
	}
	const margin = 10.0
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pageW, _ := pdf.GetPageSize()
	usableW := pageW - 2*margin

	for i, page := range pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, page); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("page-%d", i+1)
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)

		bounds := page.Bounds()
		h := usableW * float64(bounds.Dy()) / float64(bounds.Dx())
		pdf.AddPage()
		pdf.ImageOptions(name, margin, margin, usableW, h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
