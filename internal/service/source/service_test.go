package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimsports/aim-backend/internal/lib/logger/slogdiscard"
)

func TestSourceLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := New(slogdiscard.NewDiscardLogger(), filepath.Join(dir, "media"))

	tmp := filepath.Join(dir, "upload.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("0123456789"), 0o644))

	url, err := src.UploadSource(ctx, tmp, ".MP4")
	require.NoError(t, err)
	assert.Equal(t, ".mp4", filepath.Ext(url))

	size, err := src.SourceSize(url)
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	require.NoError(t, src.DeleteSource(ctx, url))

	_, err = src.SourcePath(url)
	assert.ErrorIs(t, err, ErrSourceNotFound)

	assert.NoError(t, src.DeleteSource(ctx, url))
}

func TestSourcePathRejectsTraversal(t *testing.T) {
	src := New(slogdiscard.NewDiscardLogger(), t.TempDir())

	for _, url := range []string{"", "../etc/passwd", "a/b.mp4"} {
		_, err := src.SourcePath(url)
		assert.ErrorIs(t, err, ErrSourceNotFound, url)
	}
}
