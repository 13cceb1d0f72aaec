// Package render drives a headless browser session: navigation with
// readiness waits, anti-bot posture, retry under transient failures, and
// screenshot/PDF capture.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/aokana/wikiharvest/internal/config"
	"github.com/aokana/wikiharvest/internal/types"
)

// Target describes one render job.
type Target struct {
	// URL is the address to navigate. SourceURL is the canonical locator
	// reported in results (they differ when a render view is substituted).
	URL       string
	SourceURL string

	// WaitSelector is the readiness condition, optional.
	WaitSelector string

	// AntiBot switches on stealth patches, the longer settle delay and the
	// two-attempt retry budget.
	AntiBot bool

	// WarmupURL, when set, is visited first in the same browser session to
	// establish cookies before the real navigation.
	WarmupURL string
}

// Orchestrator owns browser lifecycle and the retry policy around
// navigation. One orchestrator serves one request at a time; concurrent
// requests get their own instance.
type Orchestrator struct {
	cfg    *config.RenderConfig
	logger *slog.Logger

	// attemptFn performs one page load and returns the rendered body. Tests
	// swap it for a scripted response to drive the retry loop.
	attemptFn func(ctx context.Context, s *session, t Target, waitSelector string, timeout time.Duration) (string, error)
}

// NewOrchestrator creates a render orchestrator.
func NewOrchestrator(cfg *config.RenderConfig, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		logger: logger.With("component", "render_orchestrator"),
	}
	o.attemptFn = o.attempt
	return o
}

// session is one connected browser with its launcher, reused across a
// warm-up visit and the real target so cookies carry over.
type session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func (o *Orchestrator) newSession(headless bool, proxyURL string) (*session, error) {
	l := launcher.New().
		Headless(headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-infobars").
		Set("disable-blink-features", "AutomationControlled")
	if proxyURL != "" {
		l = l.Proxy(proxyURL)
	}
	if o.cfg.UserDataDir != "" {
		l = l.UserDataDir(o.cfg.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return &session{browser: browser, launcher: l}, nil
}

func (s *session) close() {
	_ = s.browser.Close()
	s.launcher.Cleanup()
}

// newPage opens a page, applying stealth patches for anti-bot targets and
// the configured viewport.
func (o *Orchestrator) newPage(s *session, antiBot bool) (*rod.Page, error) {
	var page *rod.Page
	var err error
	if antiBot {
		page, err = stealth.Page(s.browser)
	} else {
		page, err = s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             o.cfg.ViewportWidth,
		Height:            o.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	return page, nil
}

// navigate loads a URL and waits for readiness: the wait selector when one
// is given, otherwise a fixed settle delay (defense-evading targets use the
// longer one).
func (o *Orchestrator) navigate(ctx context.Context, page *rod.Page, t Target, waitSelector string, timeout time.Duration) (string, error) {
	p := page.Context(ctx).Timeout(timeout)

	if err := p.Navigate(t.URL); err != nil {
		return "", fmt.Errorf("navigate %s: %w", t.URL, err)
	}
	if err := p.WaitLoad(); err != nil {
		o.logger.Debug("load wait ended early", "url", t.URL, "error", err)
	}

	if waitSelector != "" {
		if _, err := p.Element(waitSelector); err != nil {
			o.logger.Warn("wait selector not found, continuing",
				"url", t.URL, "selector", waitSelector, "error", err)
		}
	}

	settle := o.cfg.SettleDelay
	if t.AntiBot {
		settle = o.cfg.AntiBotSettle
	}
	select {
	case <-time.After(settle):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// attempt is one full page load: open, navigate, read the body, close.
func (o *Orchestrator) attempt(ctx context.Context, s *session, t Target, waitSelector string, timeout time.Duration) (string, error) {
	page, err := o.newPage(s, t.AntiBot)
	if err != nil {
		return "", err
	}
	defer page.Close()
	return o.navigate(ctx, page, t, waitSelector, timeout)
}

// attemptTimeout returns the budget for one attempt; later attempts get the
// shorter budget even for anti-bot targets.
func (o *Orchestrator) attemptTimeout(antiBot bool, attempt int) time.Duration {
	if antiBot && attempt == 0 {
		return o.cfg.AntiBotTimeout
	}
	return o.cfg.AttemptTimeout
}

func (o *Orchestrator) maxAttempts(antiBot bool) int {
	if antiBot {
		return 2
	}
	return 1
}

// warmup visits a known-benign page in the same session so the real target
// sees established cookies. Failures are logged, not fatal.
func (o *Orchestrator) warmup(ctx context.Context, s *session, t Target) {
	if t.WarmupURL == "" {
		return
	}
	page, err := o.newPage(s, false)
	if err != nil {
		o.logger.Warn("warmup page failed", "url", t.WarmupURL, "error", err)
		return
	}
	defer page.Close()

	timeout := 20 * time.Second
	if t.AntiBot {
		timeout = o.cfg.AntiBotTimeout
	}
	p := page.Context(ctx).Timeout(timeout)
	if err := p.Navigate(t.WarmupURL); err != nil {
		o.logger.Warn("warmup navigation failed", "url", t.WarmupURL, "error", err)
		return
	}
	_ = p.WaitLoad()
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
	}
}

// FetchHTML renders a target and returns its HTML. Retries are local: up to
// two attempts for anti-bot targets, with backoff, and gateway-timeout
// bodies count as failures even though the transport succeeded. When a
// scoped wait selector never yields usable markup, one more pass runs with
// a plain body wait, accepting whatever renders.
func (o *Orchestrator) FetchHTML(ctx context.Context, t Target, proxyURL string) (string, error) {
	s, err := o.newSession(o.cfg.Headless, proxyURL)
	if err != nil {
		return "", &types.CaptureError{URL: t.URL, Attempts: 0, Err: err}
	}
	defer s.close()

	o.warmup(ctx, s, t)

	html, err := o.fetchWithRetry(ctx, s, t, t.WaitSelector)
	if err == nil && !LooksLikeEmptyShell(html) {
		return html, nil
	}
	if t.WaitSelector != "" {
		o.logger.Info("scoped wait yielded nothing, retrying with body wait", "url", t.URL)
		html2, err2 := o.fetchWithRetry(ctx, s, t, "body")
		if err2 == nil && !LooksLikeEmptyShell(html2) {
			return html2, nil
		}
	}
	if err != nil {
		return "", err
	}
	return html, nil
}

func (o *Orchestrator) fetchWithRetry(ctx context.Context, s *session, t Target, waitSelector string) (string, error) {
	attempts := o.maxAttempts(t.AntiBot)
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			o.logger.Info("retrying render",
				"url", t.URL, "attempt", attempt+1, "of", attempts)
			select {
			case <-time.After(o.cfg.RetryBackoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		html, err := o.attemptFn(ctx, s, t, waitSelector, o.attemptTimeout(t.AntiBot, attempt))
		if err == nil && LooksLikeGatewayTimeout(html) {
			err = fmt.Errorf("%w: %s", types.ErrGatewayTimeout, t.URL)
		}
		if err == nil {
			return html, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", &types.CaptureError{URL: t.URL, Attempts: attempts, Err: lastErr}
}
