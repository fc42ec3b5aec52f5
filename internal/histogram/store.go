package histogram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"ecdnaabc/internal/model"
)

const malformedReason = "malformed histogram file"

// Load reads a histogram file written by the simulator. Two JSON layouts are
// accepted: an object keyed by decimal copy number ({"0": 12, "3": 4}) and an
// array of counts indexed by copy number ([12, 0, 0, 4]).
//
// A missing file is a *model.PreconditionError. Anything unreadable as a
// histogram is a *model.DecodeError; callers must treat it as fatal for the
// whole batch.
func Load(path string) (Histogram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Histogram{}, &model.PreconditionError{Op: "load histogram", Arg: path, Reason: "file does not exist"}
		}
		return Histogram{}, &model.DecodeError{Path: path, Reason: malformedReason, Err: err}
	}
	h, err := Parse(data)
	if err != nil {
		return Histogram{}, &model.DecodeError{Path: path, Reason: malformedReason, Err: err}
	}
	return h, nil
}

// Parse decodes histogram JSON in either accepted layout. Zero counts are
// dropped in both, so only the support is stored.
func Parse(data []byte) (Histogram, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Histogram{}, errors.New("empty document")
	}
	switch trimmed[0] {
	case '{':
		var raw map[string]json.Number
		if err := decodeStrict(trimmed, &raw); err != nil {
			return Histogram{}, err
		}
		bins := make([]Bin, 0, len(raw))
		for key, value := range raw {
			k, err := strconv.Atoi(key)
			if err != nil {
				return Histogram{}, fmt.Errorf("non-integer key %q", key)
			}
			if k < 0 {
				return Histogram{}, fmt.Errorf("negative histogram key %d", k)
			}
			c, err := parseCount(value)
			if err != nil {
				return Histogram{}, fmt.Errorf("key %d: %w", k, err)
			}
			if c == 0 {
				continue
			}
			bins = append(bins, Bin{Key: k, Count: c})
		}
		return FromBins(bins)
	case '[':
		var raw []json.Number
		if err := decodeStrict(trimmed, &raw); err != nil {
			return Histogram{}, err
		}
		bins := make([]Bin, 0, len(raw))
		for k, value := range raw {
			c, err := parseCount(value)
			if err != nil {
				return Histogram{}, fmt.Errorf("index %d: %w", k, err)
			}
			if c == 0 {
				continue
			}
			bins = append(bins, Bin{Key: k, Count: c})
		}
		return FromBins(bins)
	default:
		return Histogram{}, errors.New("expected a JSON object or array")
	}
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after histogram")
	}
	return nil
}

func parseCount(n json.Number) (int, error) {
	if c, err := strconv.Atoi(n.String()); err == nil {
		return c, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("count %s is not an integer", n)
	}
	return int(f), nil
}

// Save writes h in the object layout.
func Save(path string, h Histogram) error {
	raw := make(map[string]int, h.Len())
	for _, b := range h.bins {
		raw[strconv.Itoa(b.Key)] = b.Count
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
