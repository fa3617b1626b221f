package benchmark

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFingerprint_Deterministic(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "insert.js", "console.log('insert')")
	plan := writeFile(t, dir, "drivebench.yaml", "repeat: 3")

	spec := Spec{Name: "insert", MinSize: 6.25, Factor: 4, Steps: 4, Repeat: 3}
	lib := Library{Name: "cassandra-driver", Kind: KindScripted}

	fp1, err := Fingerprint(spec, lib, src, plan)
	require.NoError(t, err)
	fp2, err := Fingerprint(spec, lib, src, plan)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.True(t, strings.HasPrefix(fp1, "insert_scripted_cassandra-driver_6.25_4_4_3_s-"), fp1)
}

func TestFingerprint_ChangesWithSource(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "insert.rs", "fn main() {}")
	plan := writeFile(t, dir, "drivebench.yaml", "repeat: 3")

	spec := Spec{Name: "insert", MinSize: 10, Factor: 4, Steps: 2, Repeat: 2}
	lib := Library{Name: "rust-driver", Kind: KindCompiled}

	before, err := Fingerprint(spec, lib, src, plan)
	require.NoError(t, err)

	writeFile(t, dir, "insert.rs", "fn main() {} ")
	afterBenchmark, err := Fingerprint(spec, lib, src, plan)
	require.NoError(t, err)
	assert.NotEqual(t, before, afterBenchmark)

	writeFile(t, dir, "drivebench.yaml", "repeat: 4")
	afterPlan, err := Fingerprint(spec, lib, src, plan)
	require.NoError(t, err)
	assert.NotEqual(t, afterBenchmark, afterPlan)
}

func TestFingerprint_ChangesWithParameters(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "select.js", "select")

	base := Spec{Name: "select", MinSize: 10, Factor: 4, Steps: 2, Repeat: 2}
	lib := Library{Name: "cassandra-driver", Kind: KindScripted}
	baseFP, err := Fingerprint(base, lib, src)
	require.NoError(t, err)

	variants := map[string]func() (Spec, Library){
		"min size": func() (Spec, Library) { s := base; s.MinSize = 11; return s, lib },
		"factor":   func() (Spec, Library) { s := base; s.Factor = 2; return s, lib },
		"steps":    func() (Spec, Library) { s := base; s.Steps = 3; return s, lib },
		"repeat":   func() (Spec, Library) { s := base; s.Repeat = 5; return s, lib },
		"name":     func() (Spec, Library) { s := base; s.Name = "select2"; return s, lib },
		"name ext": func() (Spec, Library) { s := base; s.Name = "select.v2"; return s, lib },
		"name sep": func() (Spec, Library) { s := base; s.Name = "select all"; return s, lib },
		"kind": func() (Spec, Library) {
			l := lib
			l.Kind = KindCompiled
			return base, l
		},
		"library": func() (Spec, Library) {
			l := lib
			l.Name = "scylladb-javascript-driver"
			return base, l
		},
	}

	seen := map[string]string{baseFP: "base"}
	for name, variant := range variants {
		s, l := variant()
		fp, err := Fingerprint(s, l, src)
		require.NoError(t, err)
		prev, dup := seen[fp]
		assert.False(t, dup, "%s collides with %s", name, prev)
		seen[fp] = name
	}
}

func TestFingerprint_MissingSource(t *testing.T) {
	spec := Spec{Name: "insert", MinSize: 10, Factor: 4, Steps: 2, Repeat: 2}
	lib := Library{Name: "rust-driver", Kind: KindCompiled}

	_, err := Fingerprint(spec, lib, filepath.Join(t.TempDir(), "missing.rs"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceNotFound))

	var srcErr *SourceNotFoundError
	require.True(t, errors.As(err, &srcErr))
	assert.Contains(t, srcErr.Path, "missing.rs")
}

func TestFingerprint_StripsExtension(t *testing.T) {
	src := writeFile(t, t.TempDir(), "a.js", "a")
	fp, err := Fingerprint(Spec{Name: "concurrent_insert.js", MinSize: 1, Factor: 2, Steps: 1, Repeat: 1},
		Library{Name: "cassandra driver", Kind: KindScripted}, src)
	require.NoError(t, err)
	assert.Regexp(t, `^concurrent-insert-[0-9a-f]{8}_scripted_cassandra-driver-[0-9a-f]{8}_1_2_1_1_s-`, fp)
}

func TestFingerprint_DistinctNamesNeverCollide(t *testing.T) {
	src := writeFile(t, t.TempDir(), "bench.sh", "run $1")
	lib := Library{Name: "cassandra-driver", Kind: KindScripted}

	pairs := [][2]string{
		{"insert.v1", "insert.v2"},
		{"insert_batch", "insert-batch"},
		{"select all", "select-all"},
		{"insert.js", "insert"},
	}
	for _, p := range pairs {
		a, err := Fingerprint(Spec{Name: p[0], MinSize: 10, Factor: 4, Steps: 2, Repeat: 2}, lib, src)
		require.NoError(t, err)
		b, err := Fingerprint(Spec{Name: p[1], MinSize: 10, Factor: 4, Steps: 2, Repeat: 2}, lib, src)
		require.NoError(t, err)
		assert.NotEqual(t, a, b, "%q and %q", p[0], p[1])
	}

	spec := Spec{Name: "insert", MinSize: 10, Factor: 4, Steps: 2, Repeat: 2}
	a, err := Fingerprint(spec, Library{Name: "driver a", Kind: KindScripted}, src)
	require.NoError(t, err)
	b, err := Fingerprint(spec, Library{Name: "driver-a", Kind: KindScripted}, src)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
