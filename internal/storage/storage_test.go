package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/justsurfingit/KarirConnect/internal/config"
)

func TestLocalPutURLDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocal(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "resumes/1/cv.pdf", strings.NewReader("pdf"), 3, "application/pdf"))

	b, err := os.ReadFile(filepath.Join(dir, "resumes", "1", "cv.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(b))

	url, err := store.URL(ctx, "resumes/1/cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/resumes/1/cv.pdf", url)

	require.NoError(t, store.Delete(ctx, "resumes/1/cv.pdf"))
	_, err = os.Stat(filepath.Join(dir, "resumes", "1", "cv.pdf"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, "resumes/1/cv.pdf"))
}

func TestLocalKeysStayInsideDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocal(filepath.Join(dir, "root"), "http://x")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "../../escape.txt", strings.NewReader("x"), 1, ""))
	_, err = os.Stat(filepath.Join(dir, "root", "escape.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestKey(t *testing.T) {
	k := Key("resumes", 12, "My CV.PDF")
	assert.True(t, strings.HasPrefix(k, "resumes/12/"))
	assert.True(t, strings.HasSuffix(k, ".pdf"))
}

func TestNewFallsBackToLocal(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{LocalDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	_, ok := s.(*Local)
	assert.True(t, ok)
}
