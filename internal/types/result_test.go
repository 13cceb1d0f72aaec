package types

import "testing"

func TestCaptureArtifactBestPath(t *testing.T) {
	tests := []struct {
		name string
		art  CaptureArtifact
		want string
	}{
		{"document preferred", CaptureArtifact{ScreenshotPath: "a.png", DocumentPath: "a.pdf"}, "a.pdf"},
		{"screenshot fallback", CaptureArtifact{ScreenshotPath: "a.png"}, "a.png"},
		{"nothing", CaptureArtifact{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.art.BestPath(); got != tt.want {
				t.Errorf("BestPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCaptureArtifactHasOutput(t *testing.T) {
	if (&CaptureArtifact{}).HasOutput() {
		t.Error("empty artifact reports output")
	}
	if !(&CaptureArtifact{ScreenshotPath: "a.png"}).HasOutput() {
		t.Error("screenshot-only artifact reports no output")
	}
}
