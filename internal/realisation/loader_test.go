package realisation

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ecdnaabc/internal/histogram"
	"ecdnaabc/internal/model"
	"ecdnaabc/internal/params"
)

type recordingObserver struct {
	loaded map[string]int
	total  int
	done   int
}

func (o *recordingObserver) Loaded(subdir string, n int) {
	if o.loaded == nil {
		o.loaded = make(map[string]int)
	}
	o.loaded[filepath.Base(subdir)] = n
}

func (o *recordingObserver) Done(_ string, total int) {
	o.total = total
	o.done++
}

func writeRealisation(t *testing.T, root string, ps model.ParameterSet, h histogram.Histogram) string {
	t.Helper()
	path := params.Path(root, ps)
	if err := histogram.Save(path, h); err != nil {
		t.Fatalf("save realisation: %v", err)
	}
	return path
}

const (
	dirA = "10samples100population"
	dirB = "20samples200population"
)

// seedTree writes n realisations into each condition directory under root.
func seedTree(t *testing.T, root string, perDir map[string]int) {
	t.Helper()
	conditions := map[string]model.ParameterSet{
		dirA: {SampleSize: 10, Population: 100, B0: 1, B1: 1},
		dirB: {SampleSize: 20, Population: 200, B0: 1.5, B1: 1},
	}
	for dir, n := range perDir {
		base := conditions[dir]
		for i := 0; i < n; i++ {
			ps := base
			ps.ReplicateIndex = i
			writeRealisation(t, root, ps, histogram.MustNew(map[int]int{0: 1, i + 1: 2}))
		}
	}
}

func expectErrorIs(t *testing.T, err, target error, contains string) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Fatalf("expected error containing %q, got %v", contains, err)
	}
}

func TestLoadFolderLoadsEverything(t *testing.T) {
	root := t.TempDir()
	seedTree(t, root, map[string]int{dirA: 3, dirB: 2})
	// stray file at the root level is ignored
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	obs := &recordingObserver{}
	rs, err := LoadFolder(root, LoadOptions{Observer: obs})
	if err != nil {
		t.Fatalf("load folder: %v", err)
	}
	if len(rs) != 5 {
		t.Fatalf("expected 5 realisations, got %d", len(rs))
	}

	first, last := rs[0].Parameters(), rs[4].Parameters()
	if first.SampleSize != 10 || first.ReplicateIndex != 0 {
		t.Fatalf("unexpected first realisation: %+v", first)
	}
	if last.SampleSize != 20 || last.B0 != 1.5 {
		t.Fatalf("unexpected last realisation: %+v", last)
	}
	if !maps.Equal(obs.loaded, map[string]int{dirA: 3, dirB: 2}) || obs.total != 5 || obs.done != 1 {
		t.Fatalf("unexpected observer state: %+v", obs)
	}
}

func TestLoadFolderCapIsPerSubdirectory(t *testing.T) {
	root := t.TempDir()
	seedTree(t, root, map[string]int{dirA: 5, dirB: 1})

	obs := &recordingObserver{}
	rs, err := LoadFolder(root, LoadOptions{MaxPerSubdir: 2, Observer: obs})
	if err != nil {
		t.Fatalf("load folder: %v", err)
	}
	if len(rs) != 3 {
		t.Fatalf("expected 3 realisations, got %d", len(rs))
	}
	if !maps.Equal(obs.loaded, map[string]int{dirA: 2, dirB: 1}) {
		t.Fatalf("unexpected per-subdir counts: %v", obs.loaded)
	}
}

func TestLoadFolderMalformedFileAbortsEverything(t *testing.T) {
	root := t.TempDir()
	seedTree(t, root, map[string]int{dirA: 2, dirB: 2})
	bad := params.Path(root, model.ParameterSet{SampleSize: 20, Population: 200, ReplicateIndex: 9})
	if err := os.WriteFile(bad, []byte(`{"1": `), 0o644); err != nil {
		t.Fatalf("write malformed file: %v", err)
	}

	obs := &recordingObserver{}
	rs, err := LoadFolder(root, LoadOptions{Observer: obs})
	if rs != nil {
		t.Fatalf("expected no realisations, got %d", len(rs))
	}
	expectErrorIs(t, err, model.ErrDecode, bad)
	if obs.done != 0 {
		t.Fatalf("expected no completion notification, got %d", obs.done)
	}
}

func TestLoadFolderUndecodableNameAborts(t *testing.T) {
	root := t.TempDir()
	seedTree(t, root, map[string]int{dirA: 1})
	if err := histogram.Save(filepath.Join(root, dirA, "garbage.json"), histogram.MustNew(map[int]int{1: 1})); err != nil {
		t.Fatalf("save garbage: %v", err)
	}

	_, err := LoadFolder(root, LoadOptions{})
	expectErrorIs(t, err, model.ErrDecode, "unparseable token: garbage")

	other := t.TempDir()
	if err := histogram.Save(filepath.Join(other, "condition", "1b0_1b1_0d0_0d1_0idx.json"), histogram.MustNew(map[int]int{1: 1})); err != nil {
		t.Fatalf("save condition file: %v", err)
	}
	_, err = LoadFolder(other, LoadOptions{})
	expectErrorIs(t, err, model.ErrDecode, "missing sample/population token")
}

func TestLoadFolderPreconditions(t *testing.T) {
	root := t.TempDir()

	if _, err := LoadFolder(filepath.Join(root, "missing"), LoadOptions{}); !errors.Is(err, model.ErrPrecondition) {
		t.Fatalf("missing root: expected ErrPrecondition, got %v", err)
	}

	file := filepath.Join(root, "file.json")
	if err := os.WriteFile(file, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadFolder(file, LoadOptions{}); !errors.Is(err, model.ErrPrecondition) {
		t.Fatalf("file root: expected ErrPrecondition, got %v", err)
	}

	if _, err := LoadFolder(root, LoadOptions{MaxPerSubdir: -1}); !errors.Is(err, model.ErrPrecondition) {
		t.Fatalf("negative cap: expected ErrPrecondition, got %v", err)
	}
}

func TestLoadFolderPassesMaterializer(t *testing.T) {
	root := t.TempDir()
	seedTree(t, root, map[string]int{dirA: 2})
	counter := &countingMaterializer{}

	rs, err := LoadFolder(root, LoadOptions{Materializer: counter.fn})
	if err != nil {
		t.Fatalf("load folder: %v", err)
	}
	for _, r := range rs {
		if _, err := r.Mean(); err != nil {
			t.Fatalf("mean: %v", err)
		}
	}
	if counter.calls != 2 {
		t.Fatalf("expected 2 materializations, got %d", counter.calls)
	}
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	ps := model.ParameterSet{SampleSize: 3, Population: 30, B0: 1.1, B1: 1, D0: 0.1, ReplicateIndex: 2}
	path := writeRealisation(t, root, ps, histogram.MustNew(map[int]int{1: 5}))

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	ps.SourcePath = path
	if r.Parameters() != ps {
		t.Fatalf("unexpected parameters: got=%+v want=%+v", r.Parameters(), ps)
	}
	if r.Histogram().Mass() != 5 {
		t.Fatalf("unexpected mass: %d", r.Histogram().Mass())
	}
}
