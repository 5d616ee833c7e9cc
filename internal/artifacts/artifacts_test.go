package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"audiograb/internal/logging"
	"audiograb/internal/testsupport"
)

const token = "1a2b3c4d-5e6f-4a0b-8c9d-0e1f2a3b4c5d"

func TestWorkspaceLifecycle(t *testing.T) {
	root := filepath.Join(t.TempDir(), "work")
	ws, err := NewWorkspace(root, token)
	if err != nil {
		t.Fatalf("NewWorkspace returned error: %v", err)
	}
	if ws.Dir() != filepath.Join(root, token) {
		t.Fatalf("unexpected dir %q", ws.Dir())
	}
	if got := ws.Path("../escape.mp3"); filepath.Dir(got) != ws.Dir() {
		t.Fatalf("Path must stay inside the workspace, got %q", got)
	}
	testsupport.WriteFile(t, ws.Path("source.webm"), 64)

	if _, err := NewWorkspace(root, token); err == nil {
		t.Fatal("expected duplicate workspace to fail")
	}
	if err := ws.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if entries := testsupport.ListEntries(t, root); len(entries) != 0 {
		t.Fatalf("expected empty work dir, got %v", entries)
	}
}

func TestNewWorkspaceRejectsBadTokens(t *testing.T) {
	root := t.TempDir()
	for _, tok := range []string{"", "..", "a/b", `a\b`} {
		if _, err := NewWorkspace(root, tok); err == nil {
			t.Fatalf("expected error for token %q", tok)
		}
	}
}

func TestPublishMovesFile(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "final.mp3")
	if err := os.WriteFile(src, []byte("mp3-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(base, "out")

	path, err := Publish(src, out, "Song", token)
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if path != filepath.Join(out, "Song.mp3") {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "mp3-bytes" {
		t.Fatalf("unexpected content %q, err=%v", data, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source moved, stat err=%v", err)
	}
}

func TestPublishNeverOverwrites(t *testing.T) {
	base := t.TempDir()
	out := filepath.Join(base, "out")
	existing := filepath.Join(out, "Song.mp3")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(existing, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(base, "final.mp3")
	if err := os.WriteFile(src, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, err := Publish(src, out, "Song", token)
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if path != filepath.Join(out, "Song-1a2b3c4d.mp3") {
		t.Fatalf("expected token suffix, got %q", path)
	}
	if data, _ := os.ReadFile(existing); string(data) != "original" {
		t.Fatalf("existing file was modified: %q", data)
	}
}

func TestPublishConcurrentSameTitle(t *testing.T) {
	base := t.TempDir()
	out := filepath.Join(base, "out")
	const n = 8

	var wg sync.WaitGroup
	paths := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		src := filepath.Join(base, "src", strings.Repeat("x", i+1))
		testsupport.WriteFile(t, src, int64(i+1))
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			paths[i], errs[i] = Publish(src, out, "Same Title", token)
		}(i, src)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("publish %d failed: %v", i, errs[i])
		}
		if seen[paths[i]] {
			t.Fatalf("duplicate path %q", paths[i])
		}
		seen[paths[i]] = true
	}
	if files := testsupport.ListFiles(t, out); len(files) != n {
		t.Fatalf("expected %d files, got %v", n, files)
	}
}

func TestPublishFailureLeavesNoPlaceholder(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	if _, err := Publish(filepath.Join(t.TempDir(), "missing.mp3"), out, "Song", token); err == nil {
		t.Fatal("expected error for missing source")
	}
	if files := testsupport.ListFiles(t, out); len(files) != 0 {
		t.Fatalf("expected no placeholder, got %v", files)
	}
}

func TestCopyVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp3")
	dst := filepath.Join(dir, "dst.mp3")
	testsupport.WriteFile(t, src, 4096)
	if err := os.WriteFile(dst, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := copyVerified(src, dst); err != nil {
		t.Fatalf("copyVerified returned error: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil || info.Size() != 4096 {
		t.Fatalf("unexpected destination: %v, %v", info, err)
	}
}

func TestShortToken(t *testing.T) {
	if got := ShortToken(token); got != "1a2b3c4d" {
		t.Fatalf("unexpected short token %q", got)
	}
	if got := ShortToken("abc"); got != "abc" {
		t.Fatalf("unexpected short token %q", got)
	}
}

func age(t *testing.T, path string, d time.Duration) {
	t.Helper()
	stamp := time.Now().Add(-d)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestSweepWorkspaces(t *testing.T) {
	work := t.TempDir()
	old := filepath.Join(work, "old-token")
	recent := filepath.Join(work, "recent-token")
	stray := filepath.Join(work, "stray.txt")
	for _, dir := range []string{old, recent} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	testsupport.WriteFile(t, filepath.Join(old, "source.webm"), 10)
	testsupport.WriteFile(t, stray, 1)
	age(t, old, 2*time.Hour)
	age(t, stray, 2*time.Hour)

	result := SweepWorkspaces(context.Background(), work, time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != old {
		t.Fatalf("unexpected removals %v", result.Removed)
	}
	for _, path := range []string{recent, stray} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}

func TestSweepOutputs(t *testing.T) {
	out := t.TempDir()
	oldMP3 := filepath.Join(out, "old.mp3")
	newMP3 := filepath.Join(out, "new.mp3")
	oldOther := filepath.Join(out, "notes.txt")
	for _, path := range []string{oldMP3, newMP3, oldOther} {
		testsupport.WriteFile(t, path, 1)
	}
	age(t, oldMP3, 48*time.Hour)
	age(t, oldOther, 48*time.Hour)

	if result := SweepOutputs(context.Background(), out, 0, logging.NewNop()); len(result.Removed) != 0 {
		t.Fatalf("max age 0 must keep outputs, removed %v", result.Removed)
	}
	result := SweepOutputs(context.Background(), out, 24*time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != oldMP3 {
		t.Fatalf("unexpected removals %v", result.Removed)
	}
}

func TestSweepInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := SweepWorkspaces(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}
