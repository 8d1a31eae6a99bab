package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_Save(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewLocalFileStorage(tempDir, zap.NewNop())
	ctx := context.Background()

	t.Run("saves file and reads it back", func(t *testing.T) {
		content := []byte("receipt bytes")

		err := fs.Save(ctx, "receipts/1_invoice.pdf", content)
		require.NoError(t, err)

		saved, err := fs.Read(ctx, "receipts/1_invoice.pdf")
		require.NoError(t, err)
		assert.Equal(t, content, saved)
	})

	t.Run("creates parent directories", func(t *testing.T) {
		err := fs.Save(ctx, "deep/nested/dir/file.png", []byte("content"))

		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(tempDir, "deep", "nested", "dir", "file.png"))
	})

	t.Run("rejects paths escaping the base directory", func(t *testing.T) {
		err := fs.Save(ctx, "../outside.txt", []byte("nope"))

		assert.Error(t, err)
	})
}

func TestLocalFileStorage_Delete(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewLocalFileStorage(tempDir, zap.NewNop())
	ctx := context.Background()

	t.Run("deletes existing file", func(t *testing.T) {
		require.NoError(t, fs.Save(ctx, "receipts/gone.pdf", []byte("x")))

		err := fs.Delete(ctx, "receipts/gone.pdf")

		require.NoError(t, err)
		assert.False(t, fs.Exists(ctx, "receipts/gone.pdf"))
	})

	t.Run("deleting a missing file is not an error", func(t *testing.T) {
		err := fs.Delete(ctx, "receipts/never-there.pdf")

		assert.NoError(t, err)
	})
}
