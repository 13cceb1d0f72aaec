package site

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		locator string
		want    Kind
	}{
		{"https://wiki.biligame.com/umamusume/特别周", Biligame},
		{"https://zh.moegirl.org.cn/特别周", Moegirl},
		{"https://mzh.moegirl.org.cn/特别周", Moegirl},
		{"https://en.wikipedia.org/wiki/Horse", Generic},
		{"特别周", Generic},
	}
	for _, tt := range tests {
		if got := Detect(tt.locator); got.Kind != tt.want {
			t.Errorf("Detect(%q).Kind = %v, want %v", tt.locator, got.Kind, tt.want)
		}
	}
}

func TestLookupHintWinsOverHost(t *testing.T) {
	p := Lookup("moegirl", "https://example.com/page")
	if p.Kind != Moegirl {
		t.Errorf("Lookup hint ignored: %v", p.Kind)
	}
	p = Lookup("auto", "https://wiki.biligame.com/umamusume/x")
	if p.Kind != Biligame {
		t.Errorf("auto hint did not detect: %v", p.Kind)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		locator string
		want    string
	}{
		{"特别周", "特别周"},
		{"  特别周  ", "特别周"},
		{"https://wiki.biligame.com/umamusume/特别周", "特别周"},
		{"https://wiki.biligame.com/umamusume/%E7%89%B9%E5%88%AB%E5%91%A8", "特别周"},
		{"https://mzh.moegirl.org.cn/index.php?title=特别周&action=render", "特别周"},
		{"https://example.com/", ""},
	}
	for _, tt := range tests {
		if got := Title(tt.locator); got != tt.want {
			t.Errorf("Title(%q) = %q, want %q", tt.locator, got, tt.want)
		}
	}
}

func TestRenderURL(t *testing.T) {
	got := RenderURL("https://mzh.moegirl.org.cn/特别周")
	want := "https://mzh.moegirl.org.cn/index.php?title=%E7%89%B9%E5%88%AB%E5%91%A8&action=render"
	if got != want {
		t.Errorf("RenderURL = %q, want %q", got, want)
	}
	if got := RenderURL("https://wiki.biligame.com/umamusume/特别周"); got != "" {
		t.Errorf("RenderURL for non-moegirl host = %q, want empty", got)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		locator string
		want    string
	}{
		{"https://wiki.biligame.com/umamusume/Special_Week", "wiki.biligame.com_Special_Week"},
		{"https://example.com/", "example.com_page"},
	}
	for _, tt := range tests {
		if got := Slug(tt.locator); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.locator, got, tt.want)
		}
	}
}
