package realisation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"ecdnaabc/internal/histogram"
	"ecdnaabc/internal/model"
	"ecdnaabc/internal/params"
)

const histogramGlob = "*.json"

// LoadOptions configures LoadFolder.
type LoadOptions struct {
	// MaxPerSubdir caps the realisations loaded from each subdirectory.
	// Zero means no cap.
	MaxPerSubdir int
	// Observer receives load progress. Nil means NopObserver.
	Observer LoadObserver
	// Materializer overrides the dense-array builder of every loaded
	// realisation.
	Materializer Materializer
}

// LoadFile decodes the parameters encoded in path, loads the histogram stored
// there and bundles both.
func LoadFile(path string, opts ...Option) (*Realisation, error) {
	ps, err := params.Decode(path)
	if err != nil {
		return nil, err
	}
	h, err := histogram.Load(path)
	if err != nil {
		return nil, err
	}
	return New(h, ps, opts...), nil
}

// LoadFolder loads every histogram file found one level below root: each
// immediate subdirectory is one simulation condition holding *.json outputs.
// Subdirectories and files are visited in lexical order. A single file that
// fails to decode or load aborts the whole load; no partial batch is returned.
func LoadFolder(root string, opts LoadOptions) ([]*Realisation, error) {
	if opts.MaxPerSubdir < 0 {
		return nil, &model.PreconditionError{Op: "load folder", Arg: "max per subdir", Reason: fmt.Sprintf("must be >= 0, got %d", opts.MaxPerSubdir)}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &model.PreconditionError{Op: "load folder", Arg: root, Reason: "directory does not exist"}
	}
	if !info.IsDir() {
		return nil, &model.PreconditionError{Op: "load folder", Arg: root, Reason: "not a directory"}
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	var ropts []Option
	if opts.Materializer != nil {
		ropts = append(ropts, WithMaterializer(opts.Materializer))
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	realisations := make([]*Realisation, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		subdir := filepath.Join(root, entry.Name())
		files, err := filepath.Glob(filepath.Join(subdir, histogramGlob))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", subdir, err)
		}
		sort.Strings(files)

		loaded := 0
		for _, file := range files {
			if opts.MaxPerSubdir > 0 && loaded >= opts.MaxPerSubdir {
				break
			}
			r, err := LoadFile(file, ropts...)
			if err != nil {
				return nil, err
			}
			realisations = append(realisations, r)
			loaded++
		}
		observer.Loaded(subdir, loaded)
	}
	observer.Done(root, len(realisations))
	return realisations, nil
}
