package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Workspace is a per-request scratch directory.
type Workspace struct {
	token string
	dir   string

	closeOnce sync.Once
	closeErr  error
}

// NewWorkspace creates root/<token>. The directory must not already exist.
func NewWorkspace(root, token string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	token = strings.TrimSpace(token)
	if root == "" {
		return nil, errors.New("workspace: empty root")
	}
	if token == "" || strings.ContainsAny(token, `/\`) || token == "." || token == ".." {
		return nil, fmt.Errorf("workspace: invalid token %q", token)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create root: %w", err)
	}
	dir := filepath.Join(root, token)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("workspace: create %s: %w", dir, err)
	}
	return &Workspace{token: token, dir: dir}, nil
}

// Token returns the request token the workspace is named after.
func (w *Workspace) Token() string { return w.token }

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the location of a named temporary inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(name))
}

// Close removes the workspace and everything in it. It is safe to call more
// than once.
func (w *Workspace) Close() error {
	w.closeOnce.Do(func() {
		if err := os.RemoveAll(w.dir); err != nil {
			w.closeErr = fmt.Errorf("workspace: remove %s: %w", w.dir, err)
		}
	})
	return w.closeErr
}
