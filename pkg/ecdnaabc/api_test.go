package ecdnaabc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ecdnaabc/internal/histogram"
	"ecdnaabc/internal/model"
	"ecdnaabc/internal/params"
	"ecdnaabc/internal/telemetry"
)

func seedSimulations(t *testing.T, root string) {
	t.Helper()
	conditions := []model.ParameterSet{
		{SampleSize: 10, Population: 100, B0: 1, B1: 1},
		{SampleSize: 20, Population: 200, B0: 1.5, B1: 1},
	}
	for _, base := range conditions {
		for i := 0; i < 2; i++ {
			ps := base
			ps.ReplicateIndex = i
			h := histogram.MustNew(map[int]int{0: 2, i + 1: 3})
			if err := histogram.Save(params.Path(root, ps), h); err != nil {
				t.Fatalf("seed realisation: %v", err)
			}
		}
	}
}

func writeTarget(t *testing.T, dir, name string, counts map[int]int) TargetSpec {
	t.Helper()
	path := filepath.Join(dir, name+".json")
	if err := histogram.Save(path, histogram.MustNew(counts)); err != nil {
		t.Fatalf("write target: %v", err)
	}
	return TargetSpec{Name: name, Path: path}
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	client, err := New(opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientSummariseRunsAndExport(t *testing.T) {
	base := t.TempDir()
	simRoot := filepath.Join(base, "sims")
	seedSimulations(t, simRoot)
	targets := []TargetSpec{
		writeTarget(t, base, "p1", map[int]int{0: 1, 1: 4}),
		writeTarget(t, base, "p2", map[int]int{2: 5}),
	}

	reg := prometheus.NewRegistry()
	collector := telemetry.NewCollector(reg)
	client := newTestClient(t, Options{
		StoreKind:  "memory",
		RunsDir:    filepath.Join(base, "runs"),
		ExportsDir: filepath.Join(base, "exports"),
		Telemetry:  collector,
		Now:        func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	})

	result, err := client.Summarise(context.Background(), SummariseRequest{
		RunID:   "run-a",
		Root:    simRoot,
		Targets: targets,
		Metrics: []string{"wasserstein", "mean"},
		Workers: 2,
	})
	if err != nil {
		t.Fatalf("summarise: %v", err)
	}
	if result.RunID != "run-a" || result.Realisations != 4 || result.Records != 8 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !slices.Equal(result.Table.Info.Targets, []string{"p1", "p2"}) {
		t.Fatalf("unexpected table targets: %v", result.Table.Info.Targets)
	}
	if !slices.Equal(result.Table.Info.Metrics, []string{"wasserstein", "mean"}) {
		t.Fatalf("unexpected table metrics: %v", result.Table.Info.Metrics)
	}
	if len(result.MetricSummary) != 4 {
		t.Fatalf("expected 4 metric summaries, got %d", len(result.MetricSummary))
	}
	for _, file := range []string{"config.json", "summaries.csv", "summaries.json", "metric_summary.json"} {
		if _, err := os.Stat(filepath.Join(result.ArtifactsDir, file)); err != nil {
			t.Fatalf("expected artifact %s: %v", file, err)
		}
	}

	series, err := testutil.GatherAndCount(reg, "ecdna_summary_records_total")
	if err != nil {
		t.Fatalf("gather telemetry: %v", err)
	}
	if series != 2 {
		t.Fatalf("expected one record series per target, got %d", series)
	}

	runs, err := client.Runs(context.Background(), RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-a" || runs[0].Records != 8 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[0].CreatedAtUTC != "2026-03-01T09:00:00Z" {
		t.Fatalf("unexpected created timestamp: %s", runs[0].CreatedAtUTC)
	}

	table, err := client.Table(context.Background(), "")
	if err != nil {
		t.Fatalf("table latest: %v", err)
	}
	if len(table.Rows) != 8 || table.Info.Name != "run-a" {
		t.Fatalf("unexpected stored table: %+v", table.Info)
	}

	summary, err := client.MetricSummary(context.Background(), "run-a")
	if err != nil {
		t.Fatalf("metric summary: %v", err)
	}
	if len(summary) != 4 || summary[0].Target != "p1" {
		t.Fatalf("unexpected metric summary: %+v", summary)
	}

	exported, err := client.Export(context.Background(), ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.RunID != "run-a" {
		t.Fatalf("unexpected export run id: %s", exported.RunID)
	}
	if _, err := os.Stat(filepath.Join(exported.Directory, "summaries.csv")); err != nil {
		t.Fatalf("expected exported csv: %v", err)
	}
}

func TestClientTableFallsBackToArtifacts(t *testing.T) {
	base := t.TempDir()
	simRoot := filepath.Join(base, "sims")
	seedSimulations(t, simRoot)
	target := writeTarget(t, base, "p1", map[int]int{1: 2})
	runsDir := filepath.Join(base, "runs")

	first := newTestClient(t, Options{RunsDir: runsDir})
	result, err := first.Summarise(context.Background(), SummariseRequest{
		Root:    simRoot,
		Targets: []TargetSpec{target},
	})
	if err != nil {
		t.Fatalf("summarise: %v", err)
	}
	if result.RunID == "" {
		t.Fatal("expected generated run id")
	}
	if !slices.Equal(result.Table.Info.Metrics, []string{"wasserstein", "mean", "frequency", "entropy"}) {
		t.Fatalf("expected default metrics, got %v", result.Table.Info.Metrics)
	}

	// A fresh memory store knows nothing about the run.
	second := newTestClient(t, Options{RunsDir: runsDir})
	table, err := second.Table(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("table from artifacts: %v", err)
	}
	if len(table.Rows) != result.Records {
		t.Fatalf("expected %d rows, got %d", result.Records, len(table.Rows))
	}
	if _, err := second.Table(context.Background(), "missing"); err == nil {
		t.Fatal("expected missing table error")
	}
}

func TestClientSummariseCapsPerSubdir(t *testing.T) {
	base := t.TempDir()
	simRoot := filepath.Join(base, "sims")
	seedSimulations(t, simRoot)
	target := writeTarget(t, base, "p1", map[int]int{1: 2})

	client := newTestClient(t, Options{RunsDir: filepath.Join(base, "runs")})
	result, err := client.Summarise(context.Background(), SummariseRequest{
		RunID:        "capped",
		Root:         simRoot,
		Targets:      []TargetSpec{target},
		Metrics:      []string{"mean"},
		MaxPerSubdir: 1,
	})
	if err != nil {
		t.Fatalf("summarise: %v", err)
	}
	if result.Realisations != 2 || result.Records != 2 {
		t.Fatalf("expected one realisation per subdir, got %+v", result)
	}
}

func TestClientSummariseValidation(t *testing.T) {
	base := t.TempDir()
	target := writeTarget(t, base, "p1", map[int]int{1: 2})
	client := newTestClient(t, Options{RunsDir: filepath.Join(base, "runs")})

	cases := []struct {
		name string
		req  SummariseRequest
	}{
		{name: "missing root", req: SummariseRequest{Targets: []TargetSpec{target}}},
		{name: "no targets", req: SummariseRequest{Root: base}},
		{name: "unnamed target", req: SummariseRequest{Root: base, Targets: []TargetSpec{{Path: target.Path}}}},
		{name: "duplicate target", req: SummariseRequest{Root: base, Targets: []TargetSpec{target, target}}},
		{name: "negative cap", req: SummariseRequest{Root: base, Targets: []TargetSpec{target}, MaxPerSubdir: -1}},
		{name: "negative workers", req: SummariseRequest{Root: base, Targets: []TargetSpec{target}, Workers: -1}},
		{name: "unknown metric", req: SummariseRequest{Root: base, Targets: []TargetSpec{target}, Metrics: []string{"nope"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Summarise(context.Background(), tc.req)
			if !errors.Is(err, model.ErrPrecondition) {
				t.Fatalf("expected precondition error, got %v", err)
			}
		})
	}

	_, err := client.Summarise(context.Background(), SummariseRequest{
		Root:    filepath.Join(base, "missing"),
		Targets: []TargetSpec{target},
	})
	if !errors.Is(err, model.ErrPrecondition) {
		t.Fatalf("expected missing root precondition error, got %v", err)
	}

	_, err = client.Summarise(context.Background(), SummariseRequest{
		Root:    base,
		Targets: []TargetSpec{{Name: "gone", Path: filepath.Join(base, "gone.json")}},
	})
	if err == nil {
		t.Fatal("expected missing target file error")
	}
}

func TestClientSummariseMalformedRealisationWritesNothing(t *testing.T) {
	base := t.TempDir()
	simRoot := filepath.Join(base, "sims")
	seedSimulations(t, simRoot)
	bad := params.Path(simRoot, model.ParameterSet{SampleSize: 10, Population: 100, B0: 1, B1: 1, ReplicateIndex: 9})
	if err := os.WriteFile(bad, []byte(`{"1": `), 0o644); err != nil {
		t.Fatalf("write malformed file: %v", err)
	}
	target := writeTarget(t, base, "p1", map[int]int{1: 2})
	runsDir := filepath.Join(base, "runs")

	client := newTestClient(t, Options{RunsDir: runsDir})
	_, err := client.Summarise(context.Background(), SummariseRequest{
		RunID:   "broken",
		Root:    simRoot,
		Targets: []TargetSpec{target},
	})
	if !errors.Is(err, model.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(runsDir, "broken")); !os.IsNotExist(err) {
		t.Fatalf("expected no artifacts for failed run, got %v", err)
	}
}

func TestClientExportValidation(t *testing.T) {
	client := newTestClient(t, Options{RunsDir: filepath.Join(t.TempDir(), "runs")})

	if _, err := client.Export(context.Background(), ExportRequest{RunID: "a", Latest: true}); err == nil {
		t.Fatal("expected either/or error")
	}
	if _, err := client.Export(context.Background(), ExportRequest{}); err == nil {
		t.Fatal("expected missing selector error")
	}
	if _, err := client.Export(context.Background(), ExportRequest{Latest: true}); err == nil {
		t.Fatal("expected no runs error")
	}
	runs, err := client.Runs(context.Background(), RunsRequest{Limit: 5})
	if err != nil {
		t.Fatalf("runs on empty index: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %+v", runs)
	}
}

func TestClientSummariseArtifactFailureLeavesStoreEmpty(t *testing.T) {
	base := t.TempDir()
	simRoot := filepath.Join(base, "sims")
	seedSimulations(t, simRoot)
	target := writeTarget(t, base, "p1", map[int]int{1: 2})
	runsDir := filepath.Join(base, "runs-file")
	if err := os.WriteFile(runsDir, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("write blocking file: %v", err)
	}

	client := newTestClient(t, Options{RunsDir: runsDir})
	if _, err := client.Summarise(context.Background(), SummariseRequest{
		RunID:   "blocked",
		Root:    simRoot,
		Targets: []TargetSpec{target},
	}); err == nil {
		t.Fatal("expected artifact write error")
	}
	if _, ok, err := client.store.GetSummaryTable(context.Background(), "blocked"); err != nil || ok {
		t.Fatalf("expected no stored table after failed run; ok=%t err=%v", ok, err)
	}
}
