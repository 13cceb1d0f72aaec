package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrUnsupportedTarget  = errors.New("site/mode combination not supported")
	ErrEmptyContent       = errors.New("no usable content returned")
	ErrTimeout            = errors.New("request budget exceeded")
	ErrMissingCredentials = errors.New("required credentials not configured")
	ErrMissingTitle       = errors.New("target has no resolvable page title")
	ErrGatewayTimeout     = errors.New("gateway timeout page detected")
	ErrEmptyShell         = errors.New("rendered page is an empty shell")
)

// FetchError wraps errors from the structured-API and plain HTTP layers.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// CaptureError wraps failures of the render/capture orchestrator after its
// internal retry budget is exhausted.
type CaptureError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed for %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// ErrorKind classifies an error into the user-visible taxonomy. Callers get
// a stable kind string alongside the message instead of a raw error chain.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedTarget):
		return "unsupported_target"
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrEmptyShell):
		return "empty_content"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrGatewayTimeout):
		return "transient_render_failure"
	default:
		var capErr *CaptureError
		if errors.As(err, &capErr) {
			return "capture_error"
		}
		return "internal"
	}
}
