package types

// Mode identifies which acquisition path produced a result.
type Mode string

const (
	// ModeAPI means the text came from the structured wiki API.
	ModeAPI Mode = "api"
	// ModeHTML means the text came from rendered-HTML extraction.
	ModeHTML Mode = "html"
	// ModeVisual means the text came from a screenshot/PDF capture.
	ModeVisual Mode = "visual"
)

// RetrievalResult is the atomic unit returned to a caller: the final text
// plus where and how it was acquired. Created fresh per request, never cached
// and never mutated after construction.
type RetrievalResult struct {
	Text      string `json:"text"`
	Mode      Mode   `json:"mode"`
	SourceURL string `json:"source_url"`
}

// CaptureArtifact describes files produced by a visual capture. Paths live
// inside a request-owned workspace and are deleted with it unless the caller
// opted to retain files.
type CaptureArtifact struct {
	ScreenshotPath string `json:"screenshot_path,omitempty"`
	DocumentPath   string `json:"document_path,omitempty"`
	SourceURL      string `json:"source_url"`
}

// HasOutput reports whether the capture produced at least one file.
func (a *CaptureArtifact) HasOutput() bool {
	return a.ScreenshotPath != "" || a.DocumentPath != ""
}

// BestPath prefers the paginated document over the raw screenshot.
func (a *CaptureArtifact) BestPath() string {
	if a.DocumentPath != "" {
		return a.DocumentPath
	}
	return a.ScreenshotPath
}
