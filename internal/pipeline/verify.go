package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"audiograb/internal/media/ffprobe"
	"audiograb/internal/media/id3"
)

// Expectation describes what a finished file must contain.
type Expectation struct {
	Cover bool
	// Title is compared against the ID3 title when non-empty.
	Title string
}

// Verifier checks a finished file before it is published.
type Verifier interface {
	Verify(ctx context.Context, path string, expect Expectation) error
}

// OutputVerifier probes the file with ffprobe and reads tags back with id3.
type OutputVerifier struct {
	FFprobeBinary string
	Runner        ffprobe.Runner
	Timeout       time.Duration
}

func (v OutputVerifier) Verify(ctx context.Context, path string, expect Expectation) error {
	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}
	probe, err := ffprobe.InspectWith(ctx, v.Runner, v.FFprobeBinary, path)
	if err != nil {
		return err
	}
	if probe.AudioStreamCount() < 1 {
		return errors.New("no audio stream in output")
	}
	if !(probe.DurationSeconds() > 0) {
		return fmt.Errorf("invalid duration %q", probe.Format.Duration)
	}
	if expect.Cover {
		if n := probe.AttachedPictureCount(); n != 1 {
			return fmt.Errorf("expected 1 attached picture, found %d", n)
		}
	}
	if expect.Title != "" {
		info, err := id3.Read(path)
		if err != nil {
			return err
		}
		if info.Title != expect.Title {
			return fmt.Errorf("title tag %q does not match %q", info.Title, expect.Title)
		}
	}
	return nil
}
