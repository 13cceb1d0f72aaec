// Package workspace manages the request-scoped directories that capture
// artifacts are written into. A workspace is owned by exactly one request
// and removed with it unless the caller opted to keep files.
package workspace

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace is a working directory for one request's artifacts.
type Workspace struct {
	dir       string
	isTemp    bool
	keepFiles bool
}

// New creates a workspace. With dir == "", a process-temporary directory is
// created; it is deleted by Cleanup unless keepFiles is set. A caller-
// provided dir is never deleted.
func New(dir string, keepFiles bool) (*Workspace, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace dir: %w", err)
		}
		return &Workspace{dir: dir, keepFiles: keepFiles}, nil
	}
	tmp, err := os.MkdirTemp("", "wikiharvest_")
	if err != nil {
		return nil, fmt.Errorf("create temp workspace: %w", err)
	}
	return &Workspace{dir: tmp, isTemp: true, keepFiles: keepFiles}, nil
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string { return w.dir }

// FilePath names a file deterministically from a hash of the source locator
// plus extension.
func (w *Workspace) FilePath(sourceURL, ext string) string {
	sum := md5.Sum([]byte(sourceURL))
	return filepath.Join(w.dir, hex.EncodeToString(sum[:])+"."+strings.TrimPrefix(ext, "."))
}

// SlugPath names a file from a human-readable slug plus extension.
func (w *Workspace) SlugPath(slug, ext string) string {
	return filepath.Join(w.dir, slug+"."+strings.TrimPrefix(ext, "."))
}

// Cleanup removes a temporary workspace. Best effort; caller-provided and
// retained directories are left alone.
func (w *Workspace) Cleanup() {
	if !w.isTemp || w.keepFiles {
		return
	}
	_ = os.RemoveAll(w.dir)
}
