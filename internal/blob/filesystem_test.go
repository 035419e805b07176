package blob_test

import (
	"context"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgoorDrt/ErroOps-v1/internal/blob"
	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

func TestFilesystem(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs := blob.NewFilesystem(dir, "http://localhost:8000/", 16)

	t.Run("StoresAndReturnsURL", func(t *testing.T) {
		url, err := fs.Upload(ctx, "cat.PNG", "image/png", strings.NewReader("png-bytes"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "http://localhost:8000/api/uploads/"))
		assert.True(t, strings.HasSuffix(url, ".png"))

		p, err := fs.Path(path.Base(url))
		require.NoError(t, err)
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))
	})

	t.Run("MissingExtension", func(t *testing.T) {
		_, err := fs.Upload(ctx, "README", "text/plain", strings.NewReader("x"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("TooLarge", func(t *testing.T) {
		before, _ := os.ReadDir(dir)
		_, err := fs.Upload(ctx, "big.pdf", "application/pdf", strings.NewReader(strings.Repeat("x", 17)))
		assert.ErrorIs(t, err, blob.ErrTooLarge)
		after, _ := os.ReadDir(dir)
		assert.Len(t, after, len(before))
	})

	t.Run("PathRejectsTraversal", func(t *testing.T) {
		_, err := fs.Path("../etc/passwd")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = fs.Path("")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
