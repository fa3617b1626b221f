package benchmark

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Cache persists series by key.
type Cache interface {
	// Load returns the series stored under key. ok is false on a miss.
	// A *CacheCorruptionError means the artifacts exist but are unreadable.
	Load(key string) (series Series, ok bool, err error)
	// Save stores series under key and returns the artifact paths.
	Save(key string, series Series) ([]string, error)
	// Paths returns the artifact paths of key.
	Paths(key string) []string
}

// FileCache stores every series as a pair of CSV files, one for elapsed
// times and one for memory, with a row per input size and a column per
// repeat trial.
type FileCache struct {
	dir string
}

// NewFileCache creates a cache rooted at dir.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) timePath(key string) string {
	return filepath.Join(c.dir, key+"_time.csv")
}

func (c *FileCache) memoryPath(key string) string {
	return filepath.Join(c.dir, key+"_memory.csv")
}

func (c *FileCache) Paths(key string) []string {
	return []string{c.timePath(key), c.memoryPath(key)}
}

func (c *FileCache) Load(key string) (Series, bool, error) {
	timePath, memPath := c.timePath(key), c.memoryPath(key)
	if !exists(timePath) || !exists(memPath) {
		return nil, false, nil
	}

	times, err := readTable(timePath)
	if err != nil {
		return nil, false, err
	}
	mems, err := readTable(memPath)
	if err != nil {
		return nil, false, err
	}

	if len(times) != len(mems) {
		return nil, false, &CacheCorruptionError{Path: memPath, Reason: "time and memory tables have different steps"}
	}

	series := make(Series, len(times))
	for n, ts := range times {
		ms, ok := mems[n]
		if !ok || len(ms) != len(ts) {
			return nil, false, &CacheCorruptionError{Path: memPath, Reason: fmt.Sprintf("step %d does not match the time table", n)}
		}
		for i := range ts {
			series.Append(n, Sample{Seconds: ts[i], MemoryMB: ms[i]})
		}
	}
	return series, true, nil
}

// Save writes both tables to temporary files and renames them into place,
// memory first, so that Load never sees a time table without its memory
// table from the same write.
func (c *FileCache) Save(key string, series Series) ([]string, error) {
	timeTmp, err := c.writeTemp(key, series, Series.Times)
	if err != nil {
		return nil, err
	}
	memTmp, err := c.writeTemp(key, series, Series.Memory)
	if err != nil {
		os.Remove(timeTmp)
		return nil, err
	}

	if err := os.Rename(memTmp, c.memoryPath(key)); err != nil {
		os.Remove(timeTmp)
		os.Remove(memTmp)
		return nil, fmt.Errorf("failed to commit memory table: %w", err)
	}
	if err := os.Rename(timeTmp, c.timePath(key)); err != nil {
		os.Remove(timeTmp)
		return nil, fmt.Errorf("failed to commit time table: %w", err)
	}

	return c.Paths(key), nil
}

func (c *FileCache) writeTemp(key string, series Series, column func(Series, int) []float64) (string, error) {
	f, err := os.CreateTemp(c.dir, "."+key+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	if err := writeTable(f, series, column); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to sync %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}

func writeTable(f *os.File, series Series, column func(Series, int) []float64) error {
	sizes := series.Sizes()
	width := 0
	for _, n := range sizes {
		width = max(width, len(series[n]))
	}

	w := csv.NewWriter(f)
	header := make([]string, width+1)
	for i := 0; i < width; i++ {
		header[i+1] = strconv.Itoa(i)
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, n := range sizes {
		row := make([]string, width+1)
		row[0] = strconv.Itoa(n)
		for i, v := range column(series, n) {
			row[i+1] = formatFloat(v)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", n, err)
		}
	}

	w.Flush()
	return w.Error()
}

func readTable(path string) (map[int][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, &CacheCorruptionError{Path: path, Reason: err.Error()}
	}
	if len(records) < 2 {
		return nil, &CacheCorruptionError{Path: path, Reason: "no rows"}
	}

	table := make(map[int][]float64, len(records)-1)
	for _, rec := range records[1:] {
		n, err := parseSize(rec[0])
		if err != nil {
			return nil, &CacheCorruptionError{Path: path, Reason: fmt.Sprintf("invalid step %q", rec[0])}
		}
		values := make([]float64, 0, len(rec)-1)
		for _, cell := range rec[1:] {
			if strings.TrimSpace(cell) == "" {
				values = append(values, math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, &CacheCorruptionError{Path: path, Reason: fmt.Sprintf("invalid value %q at step %d", cell, n)}
			}
			values = append(values, v)
		}
		table[n] = values
	}
	return table, nil
}

// parseSize accepts integer steps, including the "1000.0" form pandas writes.
func parseSize(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, errors.New("step is not an integer")
	}
	return int(f), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
