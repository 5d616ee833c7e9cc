package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"audiograb/internal/source"
)

// Kind classifies pipeline failures.
type Kind int

const (
	KindInternal Kind = iota
	KindInput
	KindFetch
	KindTranscode
	KindMux
	KindFilesystem
	KindVerify
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindFetch:
		return "fetch"
	case KindTranscode:
		return "transcode"
	case KindMux:
		return "mux"
	case KindFilesystem:
		return "filesystem"
	case KindVerify:
		return "verify"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// StatusClientClosedRequest is logged when the client disconnects mid-request.
const StatusClientClosedRequest = 499

// Error is a failed pipeline step.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind of err, or KindInternal.
func KindOf(err error) Kind {
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindInternal
}

// HTTPStatus maps err onto the status the API returns.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInput:
		return http.StatusBadRequest
	case KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// classify wraps err for step op. Cancellation of the request context wins
// over the step's own kind; a late URL rejection from the provider is input.
func classify(ctx context.Context, kind Kind, op string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return &Error{Kind: KindCanceled, Op: op, Err: err}
	case errors.Is(err, source.ErrInvalidURL):
		return &Error{Kind: KindInput, Op: op, Err: err}
	default:
		return &Error{Kind: kind, Op: op, Err: err}
	}
}
