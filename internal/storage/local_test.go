package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		tempDir := filepath.Join(t.TempDir(), "nested", "scratch")

		storage, err := NewLocalStorage(tempDir)
		require.NoError(t, err)
		assert.Equal(t, tempDir, storage.TempDir())
		assert.DirExists(t, tempDir)
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(os.TempDir(), DefaultTempDirName), storage.TempDir())
	})
}

func TestLocalStorage_SaveTemp(t *testing.T) {
	storage := setupTestStorage(t)

	t.Run("saves data to temp file", func(t *testing.T) {
		path, err := storage.SaveTemp(context.Background(), "video", bytes.NewReader([]byte("test data")))
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(filepath.Base(path), "video_"), "unexpected name %s", path)
		assert.Equal(t, storage.TempDir(), filepath.Dir(path))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "test data", string(content))
	})

	t.Run("keeps files inside temp dir", func(t *testing.T) {
		path, err := storage.SaveTemp(context.Background(), "../escape", bytes.NewReader(nil))
		require.NoError(t, err)
		assert.Equal(t, storage.TempDir(), filepath.Dir(path))
	})

	t.Run("removes partial file on read error", func(t *testing.T) {
		_, err := storage.SaveTemp(context.Background(), "partial", io.MultiReader(
			bytes.NewReader([]byte("some")),
			failingReader{},
		))
		require.Error(t, err)

		matches, _ := filepath.Glob(filepath.Join(storage.TempDir(), "partial_*"))
		assert.Empty(t, matches)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.SaveTemp(ctx, "test", bytes.NewReader([]byte("data")))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_LoadTemp(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("loads saved file", func(t *testing.T) {
		path, err := storage.SaveTemp(ctx, "upload", bytes.NewReader([]byte("load data")))
		require.NoError(t, err)

		reader, err := storage.LoadTemp(ctx, path)
		require.NoError(t, err)
		defer func() { _ = reader.Close() }()

		content, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, "load data", string(content))
	})

	t.Run("returns error for non-existent file", func(t *testing.T) {
		_, err := storage.LoadTemp(ctx, "/non/existent/file")
		assert.Error(t, err)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.LoadTemp(cctx, "/some/path")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_CleanupTemp(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("removes files", func(t *testing.T) {
		var paths []string
		for i := 0; i < 3; i++ {
			path, err := storage.SaveTemp(ctx, "cleanup", bytes.NewReader([]byte("data")))
			require.NoError(t, err)
			paths = append(paths, path)
		}

		require.NoError(t, storage.CleanupTemp(ctx, paths))
		for _, p := range paths {
			assert.NoFileExists(t, p)
		}
	})

	t.Run("ignores non-existent files", func(t *testing.T) {
		assert.NoError(t, storage.CleanupTemp(ctx, []string{"/non/existent/file"}))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := storage.CleanupTemp(cctx, []string{"/some/path"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_ObjectOperationsUnsupported(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	_, err := storage.Upload(ctx, "key", "image/jpeg", bytes.NewReader([]byte("data")))
	assert.ErrorIs(t, err, ErrS3NotConfigured)
	assert.ErrorIs(t, storage.Remove(ctx, "key"), ErrS3NotConfigured)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return storage
}
