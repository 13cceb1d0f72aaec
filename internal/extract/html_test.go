package extract

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/aokana/wikiharvest/internal/config"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testExtractor() *Extractor {
	cfg := config.DefaultConfig()
	return New(&cfg.Extract, testLogger)
}

const wikiPageHTML = `<!DOCTYPE html>
<html>
<head><title>测试页 - 某WIKI</title></head>
<body>
<h1 id="firstHeading">测试页</h1>
<div id="mw-content-text"><div class="mw-parser-output">
<p>开场白段落，足够长的一段介绍文字。</p>
<h2>育成攻略<span class="mw-editsection">[编辑]</span></h2>
<p>育成相关的说明文字。</p>
<ul><li>要点一</li><li>要点二</li></ul>
<table>
<tr><th>属性</th><th>数值</th></tr>
<tr><td>速度</td><td>1200</td></tr>
</table>
<h2>杂项</h2>
<p style="display:none">隐藏的内容</p>
<p>杂项说明文字。</p>
<p>杂项说明文字。</p>
<div class="navbox">导航模板内容</div>
<script>var x = 1;</script>
</div></div>
</body>
</html>`

func TestExtractSections(t *testing.T) {
	e := testExtractor()
	doc := e.Extract(wikiPageHTML, "https://wiki.biligame.com/other/测试页")

	if doc.Title != "测试页" {
		t.Errorf("title = %q, want 测试页", doc.Title)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("sections = %d, want 3: %+v", len(doc.Sections), doc.Sections)
	}
	if doc.Sections[0].Heading != "intro" {
		t.Errorf("first heading = %q, want intro", doc.Sections[0].Heading)
	}
	if doc.Sections[1].Heading != "育成攻略" {
		t.Errorf("second heading = %q, want 育成攻略", doc.Sections[1].Heading)
	}
	if len(doc.Sections[1].Tables) != 1 {
		t.Fatalf("tables in 育成攻略 = %d, want 1", len(doc.Sections[1].Tables))
	}
	table := doc.Sections[1].Tables[0]
	if len(table) != 2 || table[0][0] != "属性" || table[1][1] != "1200" {
		t.Errorf("table rows = %v", table)
	}
}

func TestExtractListRendering(t *testing.T) {
	e := testExtractor()
	doc := e.Extract(wikiPageHTML, "https://wiki.biligame.com/other/测试页")

	var found bool
	for _, entry := range doc.Sections[1].Content {
		if strings.Contains(entry, "- 要点一") && strings.Contains(entry, "- 要点二") {
			found = true
		}
	}
	if !found {
		t.Errorf("list bullets missing: %+v", doc.Sections[1].Content)
	}
}

func TestExtractDropsHiddenAndChrome(t *testing.T) {
	e := testExtractor()
	doc := e.Extract(wikiPageHTML, "https://wiki.biligame.com/other/测试页")

	for _, sec := range doc.Sections {
		for _, entry := range sec.Content {
			if strings.Contains(entry, "隐藏的内容") {
				t.Errorf("hidden content survived in section %q", sec.Heading)
			}
			if strings.Contains(entry, "导航模板") {
				t.Errorf("navbox content survived in section %q", sec.Heading)
			}
			if strings.Contains(entry, "编辑") {
				t.Errorf("edit-section chrome survived in section %q", sec.Heading)
			}
		}
	}
}

func TestExtractDedupsEntries(t *testing.T) {
	e := testExtractor()
	doc := e.Extract(wikiPageHTML, "https://wiki.biligame.com/other/测试页")

	for _, sec := range doc.Sections {
		seen := make(map[string]bool)
		for _, entry := range sec.Content {
			key := strings.ToLower(strings.Join(strings.Fields(entry), " "))
			if seen[key] {
				t.Errorf("duplicate entry %q in section %q", entry, sec.Heading)
			}
			seen[key] = true
		}
	}
}

func TestExtractEmptyShell(t *testing.T) {
	e := testExtractor()
	doc := e.Extract("<html><head></head><body></body></html>", "https://example.com/page")

	if len(doc.Sections) != 0 {
		t.Errorf("sections = %d, want 0", len(doc.Sections))
	}
	if e.Usable(doc) {
		t.Error("empty shell judged usable")
	}
}

func TestExtractEmptyInput(t *testing.T) {
	e := testExtractor()
	doc := e.Extract("", "https://example.com/page")
	if !doc.IsEmpty() {
		t.Errorf("empty input produced non-empty doc: %+v", doc)
	}
}

func TestUsableThreshold(t *testing.T) {
	e := testExtractor()

	short := e.Extract("<html><body><div class='mw-parser-output'><p>短文</p></div></body></html>",
		"https://wiki.biligame.com/other/x")
	if e.Usable(short) {
		t.Error("short content judged usable")
	}

	long := e.Extract("<html><body><div class='mw-parser-output'><p>"+
		strings.Repeat("很长的内容", 100)+"</p></div></body></html>",
		"https://wiki.biligame.com/other/x")
	if !e.Usable(long) {
		t.Error("long content judged unusable")
	}
}

func TestTitleFallsBackToLocator(t *testing.T) {
	e := testExtractor()
	doc := e.Extract("<html><body><p>没有标题的页面内容</p></body></html>",
		"https://wiki.biligame.com/umamusume/特别周")
	if doc.Title != "特别周" {
		t.Errorf("title = %q, want 特别周", doc.Title)
	}
}

func TestStripJSONBlocks(t *testing.T) {
	markers := config.DefaultConfig().Extract.JSONMarkers
	input := `前置说明
[ {"relation_type": 1, "member_id": 2},
  {"relation_type": 3} ]
后续说明`
	got := StripJSONBlocks(input, markers)
	if strings.Contains(got, "relation_type") {
		t.Errorf("data island survived: %q", got)
	}
	if !strings.Contains(got, "前置说明") || !strings.Contains(got, "后续说明") {
		t.Errorf("prose lost: %q", got)
	}
}

func TestStripJSONBlocksKeepsUnmarkedArrays(t *testing.T) {
	input := "说明 [1, 2, 3] 继续"
	got := StripJSONBlocks(input, config.DefaultConfig().Extract.JSONMarkers)
	if got != input {
		t.Errorf("unmarked array stripped: %q", got)
	}
}

func TestMainText(t *testing.T) {
	e := testExtractor()
	got := e.MainText("<html><body><div class='mw-parser-output'><p>正文一</p><p>正文二</p></div></body></html>")
	if !strings.Contains(got, "正文一") || !strings.Contains(got, "正文二") {
		t.Errorf("main text = %q", got)
	}
}
