package render

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aokana/wikiharvest/internal/config"
	"github.com/aokana/wikiharvest/internal/types"
	"github.com/aokana/wikiharvest/internal/workspace"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	cfg := config.DefaultConfig()
	return NewOrchestrator(&cfg.Render, testLogger)
}

// A defended target gets one retry after a failed attempt (a gateway-timeout
// body counts as a failure); plain targets get a single attempt.
func TestRetryPolicy(t *testing.T) {
	o := testOrchestrator(t)
	if got := o.maxAttempts(true); got != 2 {
		t.Errorf("maxAttempts(antiBot) = %d, want 2", got)
	}
	if got := o.maxAttempts(false); got != 1 {
		t.Errorf("maxAttempts(plain) = %d, want 1", got)
	}
}

// Only the first attempt against a defended target gets the long timeout;
// the retry runs on the normal attempt timeout.
func TestAttemptTimeouts(t *testing.T) {
	o := testOrchestrator(t)
	if got := o.attemptTimeout(true, 0); got != o.cfg.AntiBotTimeout {
		t.Errorf("first anti-bot attempt timeout = %v, want %v", got, o.cfg.AntiBotTimeout)
	}
	if got := o.attemptTimeout(true, 1); got != o.cfg.AttemptTimeout {
		t.Errorf("anti-bot retry timeout = %v, want %v", got, o.cfg.AttemptTimeout)
	}
	if got := o.attemptTimeout(false, 0); got != o.cfg.AttemptTimeout {
		t.Errorf("plain attempt timeout = %v, want %v", got, o.cfg.AttemptTimeout)
	}
}

// A body carrying an upstream 504 page counts as a failed attempt even
// though the transport succeeded, and a defended target retries once.
func TestGatewayTimeoutBodyTriggersRetry(t *testing.T) {
	o := testOrchestrator(t)
	o.cfg.RetryBackoff = time.Millisecond

	calls := 0
	o.attemptFn = func(_ context.Context, _ *session, _ Target, _ string, _ time.Duration) (string, error) {
		calls++
		if calls == 1 {
			return "<html><body><h1>504 Gateway Time-out</h1></body></html>", nil
		}
		return `<html><body><div class="mw-parser-output"><p>正文内容</p></div></body></html>`, nil
	}

	target := Target{URL: "https://mzh.moegirl.org.cn/特别周", AntiBot: true}
	html, err := o.fetchWithRetry(context.Background(), nil, target, "body")
	if err != nil {
		t.Fatalf("fetchWithRetry() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("attempts = %d, want 2", calls)
	}
	if !strings.Contains(html, "正文内容") {
		t.Errorf("retry result not returned: %q", html)
	}
}

// A plain target has no retry budget: a persistent 504 body surfaces as a
// capture error wrapping the gateway-timeout sentinel after one attempt.
func TestGatewayTimeoutExhaustsAttempts(t *testing.T) {
	o := testOrchestrator(t)
	o.cfg.RetryBackoff = time.Millisecond

	calls := 0
	o.attemptFn = func(_ context.Context, _ *session, _ Target, _ string, _ time.Duration) (string, error) {
		calls++
		return "<html><body>504 Gateway Time-out</body></html>", nil
	}

	_, err := o.fetchWithRetry(context.Background(), nil, Target{URL: "https://example.org/p"}, "")
	if err == nil {
		t.Fatal("expected error for persistent gateway timeout")
	}
	if calls != 1 {
		t.Errorf("attempts = %d, want 1", calls)
	}
	if !errors.Is(err, types.ErrGatewayTimeout) {
		t.Errorf("error = %v, want ErrGatewayTimeout in chain", err)
	}
	var capErr *types.CaptureError
	if !errors.As(err, &capErr) {
		t.Fatalf("error = %v, want *types.CaptureError", err)
	}
	if capErr.Attempts != 1 {
		t.Errorf("recorded attempts = %d, want 1", capErr.Attempts)
	}
}

func TestArtifactPathNaming(t *testing.T) {
	ws, err := workspace.New(t.TempDir(), true)
	if err != nil {
		t.Fatalf("workspace.New() error = %v", err)
	}

	slugged := artifactPath(ws, CaptureOptions{BaseName: "moegirl_特别周"}, "https://x/y", ".png")
	if !strings.HasSuffix(slugged, "moegirl_特别周.png") {
		t.Errorf("slug naming = %q", slugged)
	}
	hashed := artifactPath(ws, CaptureOptions{}, "https://x/y", ".png")
	if hashed == slugged || !strings.HasSuffix(hashed, ".png") {
		t.Errorf("hash fallback = %q", hashed)
	}
}
