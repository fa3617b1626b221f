package benchmark

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sorted(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}

func TestFileCache_RoundTrip(t *testing.T) {
	cache, err := NewFileCache(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)

	series := Series{
		1000: {{Seconds: 1.5, MemoryMB: 20}, {Seconds: 1.25, MemoryMB: 21.5}},
		4000: {{Seconds: 5.125, MemoryMB: 40}, {Seconds: 4.75, MemoryMB: 39}},
	}

	paths, err := cache.Save("fp", series)
	require.NoError(t, err)
	assert.Equal(t, cache.Paths("fp"), paths)
	for _, p := range paths {
		assert.FileExists(t, p)
	}

	loaded, ok, err := cache.Load("fp")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, series.Sizes(), loaded.Sizes())
	for _, n := range series.Sizes() {
		assert.Equal(t, sorted(series.Times(n)), sorted(loaded.Times(n)))
		assert.Equal(t, sorted(series.Memory(n)), sorted(loaded.Memory(n)))
	}
}

func TestFileCache_UnknownValues(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	series := Series{10: {{Seconds: math.NaN(), MemoryMB: 2}, {Seconds: 1, MemoryMB: math.NaN()}}}
	_, err = cache.Save("nan", series)
	require.NoError(t, err)

	loaded, ok, err := cache.Load("nan")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded[10], 2)
	assert.True(t, math.IsNaN(loaded[10][0].Seconds))
	assert.True(t, math.IsNaN(loaded[10][1].MemoryMB))
}

func TestFileCache_Miss(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	_, ok, err := cache.Load("absent")
	assert.NoError(t, err)
	assert.False(t, ok)

	// Only the time table: still a miss.
	_, err = cache.Save("partial", Series{1: {{Seconds: 1, MemoryMB: 1}}})
	require.NoError(t, err)
	require.NoError(t, os.Remove(cache.Paths("partial")[1]))

	_, ok, err = cache.Load("partial")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestFileCache_Corruption(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFileCache(dir)
	require.NoError(t, err)

	paths := cache.Paths("bad")
	require.NoError(t, os.WriteFile(paths[0], []byte(",0\n1000,not-a-number\n"), 0644))
	require.NoError(t, os.WriteFile(paths[1], []byte(",0\n1000,1.0\n"), 0644))

	_, ok, err := cache.Load("bad")
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCacheCorruption))
}

func TestFileCache_MismatchedTables(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	paths := cache.Paths("mismatch")
	require.NoError(t, os.WriteFile(paths[0], []byte(",0,1\n1000,1.0,1.1\n4000,2.0,2.1\n"), 0644))
	require.NoError(t, os.WriteFile(paths[1], []byte(",0,1\n1000,10,11\n"), 0644))

	_, ok, err := cache.Load("mismatch")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrCacheCorruption))
}

func TestFileCache_ReadsPandasLayout(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	paths := cache.Paths("pandas")
	require.NoError(t, os.WriteFile(paths[0], []byte(",0,1,2\n62,0.5,0.52,0.51\n250,1.9,2.0,\n"), 0644))
	require.NoError(t, os.WriteFile(paths[1], []byte(",0,1,2\n62,80.1,80.3,80.2\n250.0,95.0,96.0,97.0\n"), 0644))

	loaded, ok, err := cache.Load("pandas")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{62, 250}, loaded.Sizes())
	assert.Len(t, loaded[250], 3)
	assert.True(t, math.IsNaN(loaded[250][2].Seconds))
}

func TestFileCache_NoTemporaryLeftovers(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFileCache(dir)
	require.NoError(t, err)

	_, err = cache.Save("fp", Series{1: {{Seconds: 1, MemoryMB: 1}}})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
