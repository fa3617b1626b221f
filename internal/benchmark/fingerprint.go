package benchmark

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9.-]+`)

// Fingerprint derives the cache key of a (benchmark, library) pair from the
// benchmark parameters, the library identity and the content of every file
// in sources. The benchmark source should come first, the orchestrator's
// own definition after it.
func Fingerprint(spec Spec, lib Library, sources ...string) (string, error) {
	parts := []string{
		nameKey(spec.Name, strings.TrimSuffix(spec.Name, extension(spec.Name))),
		string(lib.Kind),
		nameKey(lib.Name, lib.Name),
		strconv.FormatFloat(spec.MinSize, 'f', -1, 64),
		strconv.FormatFloat(spec.Factor, 'f', -1, 64),
		strconv.Itoa(spec.Steps),
		strconv.Itoa(spec.Repeat),
	}

	for _, path := range sources {
		sum, err := HashFile(path)
		if err != nil {
			return "", err
		}
		parts = append(parts, "s-"+sum)
	}

	return strings.Join(parts, "_"), nil
}

// HashFile returns the hex encoded SHA-256 of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &SourceNotFoundError{Path: path, Err: err}
		}
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sanitizeName(s string) string {
	return strings.Trim(unsafeNameChars.ReplaceAllString(s, "-"), "-")
}

// nameKey returns the file-name-safe form of stem. When that differs from
// name, a short hash of name is appended so distinct names never share a
// key.
func nameKey(name, stem string) string {
	key := sanitizeName(stem)
	if key == name {
		return key
	}
	sum := sha256.Sum256([]byte(name))
	return key + "-" + hex.EncodeToString(sum[:4])
}

func extension(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i:]
	}
	return ""
}
