package mediawiki

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
)

// expandFixture serves wikitext per title and counts distinct fetches.
type expandFixture struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func (f *expandFixture) handler(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("titles")
	f.mu.Lock()
	f.fetched = append(f.fetched, title)
	f.mu.Unlock()

	content, ok := f.pages[title]
	if !ok {
		fmt.Fprint(w, `{"query":{"pages":[{"missing":true}]}}`)
		return
	}
	fmt.Fprint(w, wikitextResponse(title, content))
}

func TestFetchExpandedAppendsChildren(t *testing.T) {
	fx := &expandFixture{pages: map[string]string{
		"根页":   "根内容{{:子页A}}{{:子页B}}",
		"子页A": "A的内容",
		"子页B": "B的内容",
	}}
	c := newTestClient(t, fx.handler)
	e := NewExpander(c, testLogger)

	text, err := e.FetchExpanded(context.Background(), "根页", 1, 5)
	if err != nil {
		t.Fatalf("FetchExpanded: %v", err)
	}
	if !strings.Contains(text, "根内容") {
		t.Error("root content missing")
	}
	if !strings.Contains(text, "== 子页A ==\nA的内容") {
		t.Errorf("child A not appended as labeled section:\n%s", text)
	}
	if !strings.Contains(text, "== 子页B ==\nB的内容") {
		t.Errorf("child B not appended as labeled section:\n%s", text)
	}
}

// The root title counts against the page budget: maxPages=2 leaves room for
// exactly one child.
func TestFetchExpandedRootCountsAgainstBudget(t *testing.T) {
	fx := &expandFixture{pages: map[string]string{
		"根页":   "根内容{{:子页A}}{{:子页B}}",
		"子页A": "A的内容",
		"子页B": "B的内容",
	}}
	c := newTestClient(t, fx.handler)
	e := NewExpander(c, testLogger)

	text, err := e.FetchExpanded(context.Background(), "根页", 1, 2)
	if err != nil {
		t.Fatalf("FetchExpanded: %v", err)
	}
	if !strings.Contains(text, "A的内容") {
		t.Error("first child missing")
	}
	if strings.Contains(text, "B的内容") {
		t.Error("second child fetched beyond budget")
	}
	if got := len(fx.fetched); got != 2 {
		t.Errorf("fetches = %d (%v), want 2", got, fx.fetched)
	}
}

func TestFetchExpandedBoundsCycles(t *testing.T) {
	fx := &expandFixture{pages: map[string]string{
		"甲": "甲内容{{:乙}}",
		"乙": "乙内容{{:甲}}",
	}}
	c := newTestClient(t, fx.handler)
	e := NewExpander(c, testLogger)

	text, err := e.FetchExpanded(context.Background(), "甲", 3, 10)
	if err != nil {
		t.Fatalf("FetchExpanded: %v", err)
	}
	if !strings.Contains(text, "甲内容") || !strings.Contains(text, "乙内容") {
		t.Errorf("cycle members missing:\n%s", text)
	}
	if got := len(fx.fetched); got != 2 {
		t.Errorf("fetches = %d (%v), want 2 despite the cycle", got, fx.fetched)
	}
}

func TestFetchExpandedMissingChildIsNotFatal(t *testing.T) {
	fx := &expandFixture{pages: map[string]string{
		"根页": "根内容{{:不存在}}{{:子页A}}",
		"子页A": "A的内容",
	}}
	c := newTestClient(t, fx.handler)
	e := NewExpander(c, testLogger)

	text, err := e.FetchExpanded(context.Background(), "根页", 1, 5)
	if err != nil {
		t.Fatalf("missing child surfaced as error: %v", err)
	}
	if !strings.Contains(text, "A的内容") {
		t.Errorf("later child lost after a missing one:\n%s", text)
	}
}

func TestFetchExpandedDepthZeroSkipsChildren(t *testing.T) {
	fx := &expandFixture{pages: map[string]string{
		"根页":   "根内容{{:子页A}}",
		"子页A": "A的内容",
	}}
	c := newTestClient(t, fx.handler)
	e := NewExpander(c, testLogger)

	text, err := e.FetchExpanded(context.Background(), "根页", 0, 5)
	if err != nil {
		t.Fatalf("FetchExpanded: %v", err)
	}
	if strings.Contains(text, "A的内容") {
		t.Error("children fetched at depth 0")
	}
	if got := len(fx.fetched); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}
