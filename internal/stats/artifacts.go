package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ecdnaabc/internal/dataextract"
)

const (
	runIndexFile      = "run_index.json"
	configFile        = "config.json"
	summariesCSVFile  = "summaries.csv"
	summariesJSONFile = "summaries.json"
	metricSummaryFile = "metric_summary.json"
)

type TargetConfig struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type RunConfig struct {
	RunID        string         `json:"run_id"`
	Root         string         `json:"root"`
	MaxPerSubdir int            `json:"max_per_subdir"`
	Targets      []TargetConfig `json:"targets"`
	Metrics      []string       `json:"metrics"`
	Workers      int            `json:"workers"`
	CreatedAtUTC string         `json:"created_at_utc"`
}

type RunArtifacts struct {
	Config        RunConfig             `json:"config"`
	Table         dataextract.TableFile `json:"table"`
	MetricSummary []MetricSummary       `json:"metric_summary,omitempty"`
}

type RunIndexEntry struct {
	RunID        string   `json:"run_id"`
	Root         string   `json:"root"`
	Targets      []string `json:"targets"`
	Metrics      []string `json:"metrics"`
	Realisations int      `json:"realisations"`
	Records      int      `json:"records"`
	Workers      int      `json:"workers"`
	CreatedAtUTC string   `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := dataextract.WriteCSVFile(filepath.Join(runDir, summariesCSVFile), artifacts.Table); err != nil {
		return "", err
	}
	if err := dataextract.WriteTableFile(filepath.Join(runDir, summariesJSONFile), artifacts.Table); err != nil {
		return "", err
	}
	if len(artifacts.MetricSummary) > 0 {
		if err := writeJSON(filepath.Join(runDir, metricSummaryFile), artifacts.MetricSummary); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}
	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{configFile, summariesCSVFile, summariesJSONFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	optional := filepath.Join(src, metricSummaryFile)
	if _, err := os.Stat(optional); err == nil {
		if err := copyFile(optional, filepath.Join(dst, metricSummaryFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, configFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

// ReadRunTable loads the summary table written for runID.
func ReadRunTable(baseDir, runID string) (dataextract.TableFile, bool, error) {
	if strings.TrimSpace(runID) == "" {
		return dataextract.TableFile{}, false, fmt.Errorf("run id is required")
	}
	path := filepath.Join(baseDir, runID, summariesJSONFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return dataextract.TableFile{}, false, nil
		}
		return dataextract.TableFile{}, false, err
	}
	table, err := dataextract.ReadTableFile(path)
	if err != nil {
		return dataextract.TableFile{}, false, err
	}
	return table, true, nil
}

func ReadMetricSummary(baseDir, runID string) ([]MetricSummary, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, metricSummaryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var summary []MetricSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, false, err
	}
	return summary, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
