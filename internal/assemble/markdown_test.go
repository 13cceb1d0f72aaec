package assemble

import (
	"strings"
	"testing"

	"github.com/aokana/wikiharvest/internal/types"
	"github.com/aokana/wikiharvest/internal/wikitext"
)

func sampleDoc() *types.StructuredDocument {
	return wikitext.NewParser("biligame").Parse(`{{角色信息
|中文名=特别周
|声优=和氣あず未
}}
开场介绍文字。

== 育成 ==
育成说明文字。
{{:关联子页}}`)
}

func TestRenderLLM(t *testing.T) {
	got := Render(sampleDoc(), "特别周", FormatLLM, "biligame")

	if !strings.HasPrefix(got, "# 特别周\n") {
		t.Errorf("missing title heading:\n%s", got)
	}
	if !strings.Contains(got, "- **中文名**: 特别周") {
		t.Errorf("missing infobox bullet:\n%s", got)
	}
	if !strings.Contains(got, "## 育成") {
		t.Errorf("missing body heading:\n%s", got)
	}
	if !strings.Contains(got, "## 关联页面") || !strings.Contains(got, "- 关联子页") {
		t.Errorf("missing transclusion list:\n%s", got)
	}
}

func TestRenderHuman(t *testing.T) {
	got := Render(sampleDoc(), "特别周", FormatMarkdown, "biligame")

	if !strings.Contains(got, "| 项目 | 内容 |") {
		t.Errorf("missing infobox table header:\n%s", got)
	}
	if !strings.Contains(got, "| 中文名 | 特别周 |") {
		t.Errorf("missing infobox row:\n%s", got)
	}
	if !strings.Contains(got, "## 育成") {
		t.Errorf("missing section heading:\n%s", got)
	}
}

func TestRenderTitlePrecedence(t *testing.T) {
	doc := &types.StructuredDocument{Title: "文档自带标题"}
	if got := Render(doc, "外部标题", FormatLLM, "biligame"); !strings.HasPrefix(got, "# 外部标题") {
		t.Errorf("explicit title lost:\n%s", got)
	}
	if got := Render(doc, "", FormatLLM, "biligame"); !strings.HasPrefix(got, "# 文档自带标题") {
		t.Errorf("document title lost:\n%s", got)
	}
}

func TestRenderHumanSkipsIntroHeading(t *testing.T) {
	doc := &types.StructuredDocument{
		Sections: []types.Section{
			{Heading: "intro", Content: []string{"开场内容"}},
			{Heading: "细节", Content: []string{"细节内容"}},
		},
	}
	got := Render(doc, "页面", FormatMarkdown, "biligame")
	if strings.Contains(got, "## intro") {
		t.Errorf("intro sentinel leaked into output:\n%s", got)
	}
	if !strings.Contains(got, "## 细节") {
		t.Errorf("named section heading missing:\n%s", got)
	}
}

func TestRenderHumanTables(t *testing.T) {
	doc := &types.StructuredDocument{
		Sections: []types.Section{{
			Heading: "属性",
			Tables: []types.Table{{
				{"属性", "数值"},
				{"速度", "1200"},
			}},
		}},
	}
	got := Render(doc, "页面", FormatMarkdown, "biligame")
	if !strings.Contains(got, "| 属性 | 数值 |") || !strings.Contains(got, "| 速度 | 1200 |") {
		t.Errorf("table rows missing:\n%s", got)
	}
	if !strings.Contains(got, "|---|---|") {
		t.Errorf("table separator missing:\n%s", got)
	}
}

func TestRenderEscapesPipesInCells(t *testing.T) {
	doc := &types.StructuredDocument{
		Infobox: []types.Field{{Key: "备注", Value: "甲|乙"}},
	}
	got := Render(doc, "页面", FormatMarkdown, "biligame")
	if !strings.Contains(got, `甲\|乙`) {
		t.Errorf("pipe not escaped:\n%s", got)
	}
}
