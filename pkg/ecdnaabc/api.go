// Package ecdnaabc is the public entry point for turning simulated ecDNA
// copy-number histograms into ABC summary-statistic tables.
package ecdnaabc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ecdnaabc/internal/abc"
	"ecdnaabc/internal/dataextract"
	"ecdnaabc/internal/histogram"
	"ecdnaabc/internal/metrics"
	"ecdnaabc/internal/model"
	"ecdnaabc/internal/realisation"
	"ecdnaabc/internal/stats"
	"ecdnaabc/internal/storage"
	"ecdnaabc/internal/telemetry"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "ecdnaabc.db"
	defaultRunsLimit  = 20
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
	// Logger receives load progress. Nil discards it.
	Logger *slog.Logger
	// Telemetry, when set, counts loaded realisations and computed records.
	Telemetry *telemetry.Collector
	// Now stamps run creation times. Nil means time.Now.
	Now func() time.Time
}

type Client struct {
	store     storage.Store
	storeMu   sync.Mutex
	storeInit bool

	runsDir    string
	exportsDir string
	logger     *slog.Logger
	telemetry  *telemetry.Collector
	now        func() time.Time
}

type TargetSpec struct {
	Name string
	Path string
}

type SummariseRequest struct {
	RunID        string
	Root         string
	Targets      []TargetSpec
	Metrics      []string
	MaxPerSubdir int
	Workers      int
}

type SummariseResult struct {
	RunID         string
	ArtifactsDir  string
	Realisations  int
	Records       int
	Table         dataextract.TableFile
	MetricSummary []stats.MetricSummary
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Root         string
	Targets      []string
	Metrics      []string
	Realisations int
	Records      int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		runsDir:    runsDir,
		exportsDir: exportsDir,
		logger:     logger,
		telemetry:  opts.Telemetry,
		now:        now,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Summarise loads every realisation under req.Root, compares each one with
// every target and persists the resulting table. A single malformed input
// aborts the run before anything is written.
func (c *Client) Summarise(ctx context.Context, req SummariseRequest) (SummariseResult, error) {
	ms, err := validateSummarise(req)
	if err != nil {
		return SummariseResult{}, err
	}
	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}

	targets := make([]abc.Target, 0, len(req.Targets))
	for _, ts := range req.Targets {
		h, err := histogram.Load(ts.Path)
		if err != nil {
			return SummariseResult{}, fmt.Errorf("target %s: %w", ts.Name, err)
		}
		targets = append(targets, abc.Target{Name: ts.Name, Histogram: h})
	}

	observers := realisation.MultiObserver{realisation.LogObserver{Logger: c.logger}}
	if c.telemetry != nil {
		observers = append(observers, c.telemetry)
	}
	rs, err := realisation.LoadFolder(req.Root, realisation.LoadOptions{
		MaxPerSubdir: req.MaxPerSubdir,
		Observer:     observers,
	})
	if err != nil {
		return SummariseResult{}, err
	}

	records, err := abc.Engine{Workers: req.Workers}.ComputeForTargets(ctx, rs, targets, ms)
	if err != nil {
		return SummariseResult{}, err
	}
	if c.telemetry != nil {
		for _, target := range targets {
			c.telemetry.RecordsComputed(target.Name, len(rs))
		}
	}

	table, err := dataextract.BuildTable(records, runID)
	if err != nil {
		return SummariseResult{}, err
	}
	var summary []stats.MetricSummary
	if len(table.Rows) > 0 {
		summary, err = stats.SummariseTable(table)
		if err != nil {
			return SummariseResult{}, err
		}
	}

	if err := c.ensureStore(ctx); err != nil {
		return SummariseResult{}, err
	}

	metricNames := make([]string, len(ms))
	for i, m := range ms {
		metricNames[i] = m.Name()
	}
	targetConfigs := make([]stats.TargetConfig, len(req.Targets))
	targetNames := make([]string, len(req.Targets))
	for i, ts := range req.Targets {
		targetConfigs[i] = stats.TargetConfig{Name: ts.Name, Path: ts.Path}
		targetNames[i] = ts.Name
	}
	createdAt := c.now().UTC().Format(time.RFC3339)

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:        runID,
			Root:         req.Root,
			MaxPerSubdir: req.MaxPerSubdir,
			Targets:      targetConfigs,
			Metrics:      metricNames,
			Workers:      req.Workers,
			CreatedAtUTC: createdAt,
		},
		Table:         table,
		MetricSummary: summary,
	})
	if err != nil {
		return SummariseResult{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:        runID,
		Root:         req.Root,
		Targets:      targetNames,
		Metrics:      metricNames,
		Realisations: len(rs),
		Records:      len(records),
		Workers:      req.Workers,
		CreatedAtUTC: createdAt,
	}); err != nil {
		return SummariseResult{}, err
	}
	// The store is written last so a stored table always has an indexed run.
	if err := c.store.SaveSummaryTable(ctx, storage.StampVersion(dataextract.ToSummaryTable(runID, table))); err != nil {
		return SummariseResult{}, err
	}

	return SummariseResult{
		RunID:         runID,
		ArtifactsDir:  filepath.Clean(runDir),
		Realisations:  len(rs),
		Records:       len(records),
		Table:         table,
		MetricSummary: summary,
	}, nil
}

func validateSummarise(req SummariseRequest) ([]metrics.Metric, error) {
	if strings.TrimSpace(req.Root) == "" {
		return nil, &model.PreconditionError{Op: "summarise", Arg: "root", Reason: "is required"}
	}
	if req.MaxPerSubdir < 0 {
		return nil, &model.PreconditionError{Op: "summarise", Arg: "max per subdir", Reason: fmt.Sprintf("must be >= 0, got %d", req.MaxPerSubdir)}
	}
	if req.Workers < 0 {
		return nil, &model.PreconditionError{Op: "summarise", Arg: "workers", Reason: fmt.Sprintf("must be >= 0, got %d", req.Workers)}
	}
	if len(req.Targets) == 0 {
		return nil, &model.PreconditionError{Op: "summarise", Arg: "targets", Reason: "at least one target is required"}
	}
	seen := make(map[string]struct{}, len(req.Targets))
	for _, ts := range req.Targets {
		if strings.TrimSpace(ts.Name) == "" || strings.TrimSpace(ts.Path) == "" {
			return nil, &model.PreconditionError{Op: "summarise", Arg: "targets", Reason: "every target needs a name and a path"}
		}
		if _, dup := seen[ts.Name]; dup {
			return nil, &model.PreconditionError{Op: "summarise", Arg: "targets", Reason: fmt.Sprintf("duplicate target %q", ts.Name)}
		}
		seen[ts.Name] = struct{}{}
	}
	if len(req.Metrics) == 0 {
		return metrics.Default(), nil
	}
	ms, err := metrics.Parse(req.Metrics)
	if err != nil {
		return nil, &model.PreconditionError{Op: "summarise", Arg: "metrics", Reason: err.Error()}
	}
	if len(ms) == 0 {
		return metrics.Default(), nil
	}
	return ms, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Root:         e.Root,
			Targets:      append([]string(nil), e.Targets...),
			Metrics:      append([]string(nil), e.Metrics...),
			Realisations: e.Realisations,
			Records:      e.Records,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		latest, err := c.latestRunID()
		if err != nil {
			return ExportSummary{}, err
		}
		runID = latest
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Table returns the summary table of a run. An empty runID selects the latest
// run. The store is consulted first, then the run artifacts on disk.
func (c *Client) Table(ctx context.Context, runID string) (dataextract.TableFile, error) {
	if runID == "" {
		latest, err := c.latestRunID()
		if err != nil {
			return dataextract.TableFile{}, err
		}
		runID = latest
	}

	if err := c.ensureStore(ctx); err != nil {
		return dataextract.TableFile{}, err
	}
	st, ok, err := c.store.GetSummaryTable(ctx, runID)
	if err != nil {
		return dataextract.TableFile{}, err
	}
	if ok {
		return dataextract.FromSummaryTable(st), nil
	}

	table, ok, err := stats.ReadRunTable(c.runsDir, runID)
	if err != nil {
		return dataextract.TableFile{}, err
	}
	if !ok {
		return dataextract.TableFile{}, fmt.Errorf("summary table not found for run id: %s", runID)
	}
	return table, nil
}

// RunConfig returns the configuration recorded for a run. An empty runID
// selects the latest run.
func (c *Client) RunConfig(_ context.Context, runID string) (stats.RunConfig, error) {
	if runID == "" {
		latest, err := c.latestRunID()
		if err != nil {
			return stats.RunConfig{}, err
		}
		runID = latest
	}
	cfg, ok, err := stats.ReadRunConfig(c.runsDir, runID)
	if err != nil {
		return stats.RunConfig{}, err
	}
	if !ok {
		return stats.RunConfig{}, fmt.Errorf("run config not found for run id: %s", runID)
	}
	return cfg, nil
}

// MetricSummary returns the per-target metric spread recorded for a run.
func (c *Client) MetricSummary(_ context.Context, runID string) ([]stats.MetricSummary, error) {
	if runID == "" {
		latest, err := c.latestRunID()
		if err != nil {
			return nil, err
		}
		runID = latest
	}
	summary, ok, err := stats.ReadMetricSummary(c.runsDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("metric summary not found for run id: %s", runID)
	}
	return summary, nil
}

func (c *Client) latestRunID() (string, error) {
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()

	if c.storeInit {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.storeInit = true
	return nil
}
