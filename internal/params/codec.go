// Package params decodes the kinetic parameters of a simulated replicate from
// the path its histogram is stored under, and encodes them back.
//
// A path looks like
//
//	runs/10000samples1000000population/1dot1b0_1b1_0d0_0d1_0idx.json
//
// where some directory segment carries the sample and population sizes and the
// filename stem carries the birth rates, death rates and replicate index. A
// literal "." cannot appear inside the stem, so decimals are written as "dot".
package params

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"ecdnaabc/internal/model"
)

const (
	labelB0  = "b0"
	labelB1  = "b1"
	labelD0  = "d0"
	labelD1  = "d1"
	labelIdx = "idx"

	decimalEscape = "dot"
	tokenSep      = "_"
)

// schema is the closed set of kinetic labels in canonical order.
var schema = []string{labelB0, labelB1, labelD0, labelD1, labelIdx}

var (
	sampleDirPattern = regexp.MustCompile(`(?i)^(\d+)samples(\d+)population$`)
	tokenPattern     = regexp.MustCompile(`^(\d+(?:\.\d+)?)([a-z]+[01]?)$`)
)

// Decode recovers the parameter set encoded in path. Decoding is
// all-or-nothing: on failure the zero ParameterSet and a *model.DecodeError
// are returned.
func Decode(path string) (model.ParameterSet, error) {
	sample, population, err := decodeSamplePopulation(path)
	if err != nil {
		return model.ParameterSet{}, err
	}
	kinetic, err := decodeKinetic(path)
	if err != nil {
		return model.ParameterSet{}, err
	}
	idx := kinetic[labelIdx]
	if idx != math.Trunc(idx) {
		return model.ParameterSet{}, &model.DecodeError{
			Path:   path,
			Token:  labelIdx,
			Reason: fmt.Sprintf("replicate index must be a non-negative integer, got %v", idx),
		}
	}
	if idx > math.MaxInt32 {
		return model.ParameterSet{}, &model.DecodeError{
			Path:   path,
			Token:  labelIdx,
			Reason: fmt.Sprintf("replicate index out of range, got %v", idx),
		}
	}
	return model.ParameterSet{
		SampleSize:     sample,
		Population:     population,
		B0:             kinetic[labelB0],
		B1:             kinetic[labelB1],
		D0:             kinetic[labelD0],
		D1:             kinetic[labelD1],
		ReplicateIndex: int(idx),
		SourcePath:     path,
	}, nil
}

func decodeSamplePopulation(path string) (int, int, error) {
	dir := filepath.Dir(filepath.Clean(path))
	for _, segment := range strings.Split(filepath.ToSlash(dir), "/") {
		m := sampleDirPattern.FindStringSubmatch(segment)
		if m == nil {
			continue
		}
		sample, errS := strconv.Atoi(m[1])
		population, errP := strconv.Atoi(m[2])
		if errS != nil || errP != nil {
			return 0, 0, &model.DecodeError{Path: path, Token: segment, Reason: "sample/population out of range: " + segment}
		}
		if sample <= 0 || population <= 0 {
			return 0, 0, &model.DecodeError{Path: path, Token: segment, Reason: "sample/population must be positive: " + segment}
		}
		return sample, population, nil
	}
	return 0, 0, &model.DecodeError{Path: path, Reason: "missing sample/population token"}
}

func decodeKinetic(path string) (map[string]float64, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.ReplaceAll(stem, decimalEscape, ".")

	values := make(map[string]float64, len(schema))
	for _, token := range strings.Split(stem, tokenSep) {
		m := tokenPattern.FindStringSubmatch(token)
		if m == nil {
			return nil, &model.DecodeError{Path: path, Token: token, Reason: "unparseable token: " + token}
		}
		label := m[2]
		if !knownLabel(label) {
			return nil, &model.DecodeError{Path: path, Token: token, Reason: "unknown field " + label}
		}
		if _, dup := values[label]; dup {
			return nil, &model.DecodeError{Path: path, Token: token, Reason: "duplicate field " + label}
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, &model.DecodeError{Path: path, Token: token, Reason: "unparseable token: " + token, Err: err}
		}
		values[label] = value
	}
	for _, label := range schema {
		if _, ok := values[label]; !ok {
			return nil, &model.DecodeError{Path: path, Token: label, Reason: "missing field " + label}
		}
	}
	return values, nil
}

func knownLabel(label string) bool {
	for _, l := range schema {
		if l == label {
			return true
		}
	}
	return false
}

// Encode renders the kinetic fields of p as a canonical filename stem, e.g.
// "1dot1b0_1b1_0d0_0d1_0idx".
func Encode(p model.ParameterSet) string {
	tokens := []string{
		formatRate(p.B0) + labelB0,
		formatRate(p.B1) + labelB1,
		formatRate(p.D0) + labelD0,
		formatRate(p.D1) + labelD1,
		strconv.Itoa(p.ReplicateIndex) + labelIdx,
	}
	return strings.Join(tokens, tokenSep)
}

// EncodeDir renders the sample/population directory segment of p.
func EncodeDir(p model.ParameterSet) string {
	return fmt.Sprintf("%dsamples%dpopulation", p.SampleSize, p.Population)
}

// Path joins root, the sample/population directory and the encoded stem into
// the location a histogram for p is stored at.
func Path(root string, p model.ParameterSet) string {
	return filepath.Join(root, EncodeDir(p), Encode(p)+".json")
}

func formatRate(v float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(v, 'f', -1, 64), ".", decimalEscape)
}
