package render

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/aokana/wikiharvest/internal/types"
	"github.com/aokana/wikiharvest/internal/workspace"
)

// CaptureOptions tune one capture run.
type CaptureOptions struct {
	// WantPDF asks for a paginated document alongside the screenshot.
	WantPDF bool
	// PrintScale is the print-to-PDF zoom; zero means the configured
	// default.
	PrintScale float64
	// ProxyURL, when set, routes browser traffic through a forward proxy.
	ProxyURL string
	// BaseName names the artifact files; empty falls back to a hash of the
	// source locator.
	BaseName string
}

// Capture renders a target and writes a full-page screenshot, plus a PDF
// when requested, into the workspace. The screenshot is the primary
// artifact: if print-to-PDF fails, a document is synthesized by slicing the
// screenshot into pages, and if that fails too the screenshot alone is
// still a success. A run that produces neither artifact fails, and is
// retried once with a visible browser in case the site rejects headless
// sessions.
func (o *Orchestrator) Capture(ctx context.Context, t Target, ws *workspace.Workspace, opts CaptureOptions) (types.CaptureArtifact, error) {
	art, err := o.captureOnce(ctx, t, ws, opts, o.cfg.Headless)
	if err == nil && art.HasOutput() {
		return art, nil
	}
	if ctx.Err() != nil {
		return types.CaptureArtifact{}, ctx.Err()
	}
	if o.cfg.Headless {
		o.logger.Warn("headless capture failed, retrying with visible browser",
			"url", t.URL, "error", err)
		art, err = o.captureOnce(ctx, t, ws, opts, false)
		if err == nil && art.HasOutput() {
			return art, nil
		}
	}
	if err == nil {
		err = fmt.Errorf("%w: no artifact produced", types.ErrEmptyContent)
	}
	return types.CaptureArtifact{}, &types.CaptureError{URL: t.URL, Attempts: 2, Err: err}
}

func (o *Orchestrator) captureOnce(ctx context.Context, t Target, ws *workspace.Workspace, opts CaptureOptions, headless bool) (types.CaptureArtifact, error) {
	s, err := o.newSession(headless, opts.ProxyURL)
	if err != nil {
		return types.CaptureArtifact{}, err
	}
	defer s.close()

	o.warmup(ctx, s, t)

	page, err := o.newPage(s, t.AntiBot)
	if err != nil {
		return types.CaptureArtifact{}, err
	}
	defer page.Close()

	html, err := o.navigate(ctx, page, t, t.WaitSelector, o.attemptTimeout(t.AntiBot, 0))
	if err != nil {
		return types.CaptureArtifact{}, err
	}
	if LooksLikeGatewayTimeout(html) {
		return types.CaptureArtifact{}, fmt.Errorf("%w: %s", types.ErrGatewayTimeout, t.URL)
	}

	art := types.CaptureArtifact{SourceURL: t.SourceURL}

	shot, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return types.CaptureArtifact{}, fmt.Errorf("screenshot: %w", err)
	}
	shotPath := artifactPath(ws, opts, t.SourceURL, ".png")
	if err := os.WriteFile(shotPath, shot, 0o644); err != nil {
		return types.CaptureArtifact{}, fmt.Errorf("write screenshot: %w", err)
	}
	art.ScreenshotPath = shotPath
	o.logger.Info("screenshot captured", "url", t.URL, "path", shotPath, "bytes", len(shot))

	if !opts.WantPDF {
		return art, nil
	}

	pdfPath := artifactPath(ws, opts, t.SourceURL, ".pdf")
	if err := o.printToPDF(page, pdfPath, opts.PrintScale); err != nil {
		o.logger.Warn("print-to-pdf failed, synthesizing from screenshot",
			"url", t.URL, "error", err)
		if err := o.pdfFromScreenshot(shot, pdfPath); err != nil {
			o.logger.Warn("pdf synthesis failed, keeping screenshot only",
				"url", t.URL, "error", err)
			return art, nil
		}
	}
	art.DocumentPath = pdfPath
	o.logger.Info("document captured", "url", t.URL, "path", pdfPath)
	return art, nil
}

// artifactPath names an artifact by the caller's slug when given, falling
// back to a hash of the source locator.
func artifactPath(ws *workspace.Workspace, opts CaptureOptions, sourceURL, ext string) string {
	if opts.BaseName != "" {
		return ws.SlugPath(opts.BaseName, ext)
	}
	return ws.FilePath(sourceURL, ext)
}

func (o *Orchestrator) printToPDF(page *rod.Page, path string, scale float64) error {
	if scale <= 0 {
		scale = o.cfg.PrintScale
	}
	reader, err := page.PDF(&proto.PagePrintToPDF{
		Scale:           &scale,
		PrintBackground: true,
	})
	if err != nil {
		return fmt.Errorf("print to pdf: %w", err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read pdf stream: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("print to pdf: empty document")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// pdfFromScreenshot slices a tall screenshot into page-sized images and
// binds them into a PDF.
func (o *Orchestrator) pdfFromScreenshot(png []byte, path string) error {
	pages, err := RepaginateImage(png, o.cfg.PageAspectRatio)
	if err != nil {
		return err
	}
	return WritePagesPDF(pages, path)
}
