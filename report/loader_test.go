package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderCachesByContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.xml")
	require.NoError(t, os.WriteFile(path, readTestdata(t, "basic_math.xml"), 0644))

	loader, err := NewLoader(0)
	require.NoError(t, err)

	first, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	second, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, first, second, "unchanged content should hit the cache")
	assert.Equal(t, 1, loader.Cached())

	require.NoError(t, os.WriteFile(path, readTestdata(t, "basic_math_failed.xml"), 0644))
	third, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Len(t, third.Failed, 1)
}

func TestLoaderErrors(t *testing.T) {
	loader, err := NewLoader(4)
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.xml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "broken.xml")
	require.NoError(t, os.WriteFile(path, []byte("<TestRun>"), 0644))
	_, err = loader.Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrMalformedReport)
	assert.Zero(t, loader.Cached())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = loader.Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
