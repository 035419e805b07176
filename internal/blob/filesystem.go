// Package blob stores attachment bytes on the local filesystem.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

var ErrTooLarge = errors.New("attachment exceeds size limit")

// Filesystem writes each upload to dir under a fresh random name and serves it
// from baseURL + "/api/uploads/<name>".
type Filesystem struct {
	dir      string
	baseURL  string
	maxBytes int64
}

var _ domain.BlobStore = (*Filesystem)(nil)

func NewFilesystem(dir, baseURL string, maxBytes int64) *Filesystem {
	return &Filesystem{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes}
}

func (f *Filesystem) Upload(ctx context.Context, name, _ string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "", fmt.Errorf("file must have an extension: %w", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	filename := uuid.NewString() + ext
	dest := filepath.Join(f.dir, filename)

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", filename, err)
	}

	src := r
	if f.maxBytes > 0 {
		src = io.LimitReader(r, f.maxBytes+1)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && f.maxBytes > 0 && n > f.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dest)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("save %s: %w", filename, err)
	}

	return f.baseURL + "/api/uploads/" + filename, nil
}

// Path resolves a served file name to its location on disk. Names with path
// separators are rejected.
func (f *Filesystem) Path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", domain.ErrInvalidInput
	}
	return filepath.Join(f.dir, name), nil
}
