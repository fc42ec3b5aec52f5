package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	abcapi "ecdnaabc/pkg/ecdnaabc"
)

// runConfig is the YAML form of a summarise invocation. Relative paths are
// resolved against the directory holding the config file.
type runConfig struct {
	RunID        string         `yaml:"run_id"`
	Root         string         `yaml:"root"`
	MaxPerSubdir int            `yaml:"max_per_subdir"`
	Workers      int            `yaml:"workers"`
	Metrics      []string       `yaml:"metrics"`
	Targets      []targetConfig `yaml:"targets"`
	Out          string         `yaml:"out"`
}

type targetConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

func loadRunConfig(path string) (runConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runConfig{}, err
	}
	var rc runConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rc); err != nil && !errors.Is(err, io.EOF) {
		return runConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	rc.Root = resolvePath(base, rc.Root)
	rc.Out = resolvePath(base, rc.Out)
	for i := range rc.Targets {
		rc.Targets[i].Path = resolvePath(base, rc.Targets[i].Path)
		if rc.Targets[i].Name == "" {
			rc.Targets[i].Name = targetName(rc.Targets[i].Path)
		}
	}
	return rc, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func (rc runConfig) request() abcapi.SummariseRequest {
	targets := make([]abcapi.TargetSpec, len(rc.Targets))
	for i, t := range rc.Targets {
		targets[i] = abcapi.TargetSpec{Name: t.Name, Path: t.Path}
	}
	return abcapi.SummariseRequest{
		RunID:        rc.RunID,
		Root:         rc.Root,
		Targets:      targets,
		Metrics:      append([]string(nil), rc.Metrics...),
		MaxPerSubdir: rc.MaxPerSubdir,
		Workers:      rc.Workers,
	}
}

// targetFlags collects repeated --target values.
type targetFlags []targetConfig

func (f *targetFlags) String() string {
	parts := make([]string, len(*f))
	for i, t := range *f {
		parts[i] = t.Name + "=" + t.Path
	}
	return strings.Join(parts, ",")
}

// Set accepts NAME=PATH, or a bare PATH named after its file stem.
func (f *targetFlags) Set(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("target must not be empty")
	}
	name, path, ok := strings.Cut(value, "=")
	if !ok {
		path = value
		name = targetName(path)
	}
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if name == "" || path == "" {
		return fmt.Errorf("invalid target %q: want NAME=PATH", value)
	}
	*f = append(*f, targetConfig{Name: name, Path: path})
	return nil
}

func (f targetFlags) configs() []targetConfig {
	return append([]targetConfig(nil), f...)
}

func targetName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
