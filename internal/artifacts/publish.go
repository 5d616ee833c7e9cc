package artifacts

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Extension is appended to every published name.
const Extension = ".mp3"

// maxCollisionAttempts bounds the numbered suffixes tried after the token suffix.
const maxCollisionAttempts = 100

// ShortToken returns the first eight characters of token.
func ShortToken(token string) string {
	token = strings.ReplaceAll(token, "-", "")
	if len(token) > 8 {
		return token[:8]
	}
	return token
}

// Publish moves src into outputDir as <base>.mp3. When that name is taken the
// token suffix is appended, then a counter. An existing file is never replaced.
// It returns the final path.
func Publish(src, outputDir, base, token string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", errors.New("publish: empty name")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("publish: create output dir: %w", err)
	}

	target, err := reserve(outputDir, base, ShortToken(token))
	if err != nil {
		return "", err
	}
	if err := fill(src, target); err != nil {
		_ = os.Remove(target)
		return "", err
	}
	return target, nil
}

// reserve creates an empty placeholder with O_EXCL and returns its path.
func reserve(dir, base, suffix string) (string, error) {
	candidates := []string{base}
	if suffix != "" {
		candidates = append(candidates, base+"-"+suffix)
	}
	for i := 2; i <= maxCollisionAttempts; i++ {
		if suffix != "" {
			candidates = append(candidates, fmt.Sprintf("%s-%s-%d", base, suffix, i))
		} else {
			candidates = append(candidates, fmt.Sprintf("%s-%d", base, i))
		}
	}

	for _, name := range candidates {
		path := filepath.Join(dir, name+Extension)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return "", fmt.Errorf("publish: reserve %s: %w", path, err)
		}
		if err := file.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("publish: reserve %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("publish: no free name for %q", base)
}

// fill replaces the reserved placeholder with src, renaming when both live on
// the same filesystem and copying otherwise.
func fill(src, target string) error {
	err := os.Rename(src, target)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EXDEV) {
		return fmt.Errorf("publish: rename: %w", err)
	}
	if err := copyVerified(src, target); err != nil {
		return fmt.Errorf("publish: copy across filesystems: %w", err)
	}
	return os.Remove(src)
}

// copyVerified streams src into the existing dst with size and SHA-256
// verification, then syncs it.
func copyVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		return err
	}
	if written != srcInfo.Size() {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		return errors.New("copy hash mismatch")
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}
