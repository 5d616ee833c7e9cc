package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// Call records one command invocation.
type Call struct {
	Name string
	Args []string
}

// LastArg returns the final argument, which is the output path for ffmpeg and
// the destination for most download tools.
func (c Call) LastArg() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

// ArgAfter returns the argument following flag, or "".
func (c Call) ArgAfter(flag string) string {
	for i := 0; i < len(c.Args)-1; i++ {
		if c.Args[i] == flag {
			return c.Args[i+1]
		}
	}
	return ""
}

// FakeRunner satisfies ffmpeg.CommandRunner without executing anything.
//
// Without a handler, Run writes placeholder bytes to the last argument so the
// caller sees a non-empty output file, and Output returns nil.
type FakeRunner struct {
	mu      sync.Mutex
	calls   []Call
	Handler func(ctx context.Context, call Call) ([]byte, error)
}

func (r *FakeRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.invoke(ctx, name, args, true)
	return err
}

func (r *FakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.invoke(ctx, name, args, false)
}

func (r *FakeRunner) invoke(ctx context.Context, name string, args []string, writeOutput bool) ([]byte, error) {
	call := Call{Name: name, Args: append([]string(nil), args...)}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	handler := r.Handler
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if handler != nil {
		return handler(ctx, call)
	}
	if writeOutput {
		return nil, WriteOutput(call.LastArg(), []byte("fake-media"))
	}
	return nil, nil
}

// Calls returns a copy of the recorded invocations.
func (r *FakeRunner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// WriteOutput creates path with data, creating parent directories.
func WriteOutput(path string, data []byte) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
