// Package thumbnail downloads cover art and normalizes it for embedding.
//
// Fetching is best effort: TryFetch never fails the caller, it logs a warning
// and reports ok=false so the file is published without artwork.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration

	"audiograb/internal/config"
	"audiograb/internal/logging"
)

const jpegQuality = 90

// Decoded images are held fully in memory, so the declared dimensions are
// checked before decoding.
const (
	maxSourceSide   = 8192
	maxSourcePixels = 24_000_000
)

// ErrTooLarge reports an image whose declared dimensions exceed the decode limits.
var ErrTooLarge = errors.New("image dimensions exceed decode limit")

// Options controls fetching and normalization.
type Options struct {
	MaxDimension int
	MaxBytes     int64
	SquareCrop   bool
	Timeout      time.Duration
	UserAgent    string
}

// OptionsFromConfig maps the thumbnail and timeout sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxDimension: cfg.Thumbnail.MaxDimension,
		MaxBytes:     cfg.Thumbnail.MaxBytes,
		SquareCrop:   cfg.Thumbnail.SquareCrop,
		Timeout:      config.Timeout(cfg.Timeouts.Thumbnail),
		UserAgent:    cfg.Source.UserAgent,
	}
}

// Fetcher downloads and normalizes thumbnails.
type Fetcher struct {
	client *http.Client
	opts   Options
	logger *slog.Logger
}

func NewFetcher(client *http.Client, opts Options, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = 600
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 5 << 20
	}
	return &Fetcher{
		client: client,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "thumbnail"),
	}
}

// TryFetch stores a normalized JPEG at dest. Any failure is logged and
// reported as ok=false.
func (f *Fetcher) TryFetch(ctx context.Context, url, dest string) (string, bool) {
	logger := logging.WithContext(ctx, f.logger)
	if err := f.fetch(ctx, url, dest); err != nil {
		_ = os.Remove(dest)
		logging.WarnWithContext(logger, "thumbnail unavailable; continuing without artwork", "thumbnail_unavailable",
			logging.String("url", url),
			logging.Error(err),
			logging.Hint("check the thumbnail URL and network access"),
			logging.Impact("file published without cover art"),
		)
		return "", false
	}
	logger.Debug("thumbnail stored", logging.String("path", dest))
	return dest, true
}

func (f *Fetcher) fetch(ctx context.Context, url, dest string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("no thumbnail URL")
	}
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	data, err := f.download(ctx, url)
	if err != nil {
		return err
	}
	normalized, err := Normalize(data, f.opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, normalized, 0o644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch thumbnail: unexpected status %s", resp.Status)
	}
	if resp.ContentLength > f.opts.MaxBytes {
		return nil, fmt.Errorf("fetch thumbnail: %d bytes exceeds limit %d", resp.ContentLength, f.opts.MaxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read thumbnail: %w", err)
	}
	if int64(len(data)) > f.opts.MaxBytes {
		return nil, fmt.Errorf("fetch thumbnail: body exceeds limit %d", f.opts.MaxBytes)
	}
	return data, nil
}

// Normalize decodes data, optionally crops it to a centered square, scales it
// so neither side exceeds opts.MaxDimension and encodes a baseline JPEG.
func Normalize(data []byte, opts Options) ([]byte, error) {
	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail header: %w", err)
	}
	if header.Width > maxSourceSide || header.Height > maxSourceSide ||
		int64(header.Width)*int64(header.Height) > maxSourcePixels {
		return nil, fmt.Errorf("decode thumbnail: %dx%d: %w", header.Width, header.Height, ErrTooLarge)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail: %w", err)
	}

	src := img.Bounds()
	if opts.SquareCrop {
		src = centerSquare(src)
	}
	width, height := fitWithin(src.Dx(), src.Dy(), opts.MaxDimension)
	if width == 0 || height == 0 {
		return nil, errors.New("decode thumbnail: empty image")
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func centerSquare(r image.Rectangle) image.Rectangle {
	side := min(r.Dx(), r.Dy())
	x0 := r.Min.X + (r.Dx()-side)/2
	y0 := r.Min.Y + (r.Dy()-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// fitWithin scales width and height down to fit a limit x limit box, keeping
// the aspect ratio. Sizes already inside the box are returned unchanged.
func fitWithin(width, height, limit int) (int, int) {
	if limit <= 0 || (width <= limit && height <= limit) {
		return width, height
	}
	if width >= height {
		return limit, max(1, height*limit/width)
	}
	return max(1, width*limit/height), limit
}
