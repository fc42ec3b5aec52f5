package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"

	"ecdnaabc/internal/config"
	"ecdnaabc/internal/dataextract"
	"ecdnaabc/internal/histogram"
	"ecdnaabc/internal/logger"
	"ecdnaabc/internal/metrics"
	"ecdnaabc/internal/model"
	"ecdnaabc/internal/params"
	"ecdnaabc/internal/realisation"
	"ecdnaabc/internal/telemetry"
	abcapi "ecdnaabc/pkg/ecdnaabc"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env carries process configuration into every command.
type env struct {
	cfg *config.Config
	log *slog.Logger
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.Logger = logger.New(os.Stderr, level)
	e := env{cfg: cfg, log: logger.Logger}
	logger.Debug("running command", "command", args[0], "store", cfg.Store, "runs_dir", cfg.RunsDir)

	switch args[0] {
	case "summarise", "summarize":
		return runSummarise(ctx, e, args[1:])
	case "decode":
		return runDecode(ctx, args[1:])
	case "inspect":
		return runInspect(ctx, args[1:])
	case "runs":
		return runRuns(ctx, e, args[1:])
	case "table":
		return runTable(ctx, e, args[1:])
	case "export":
		return runExport(ctx, e, args[1:])
	case "metrics":
		return runMetrics(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func newClient(e env, storeKind, dbPath string, collector *telemetry.Collector) (*abcapi.Client, error) {
	return abcapi.New(abcapi.Options{
		StoreKind:  storeKind,
		DBPath:     dbPath,
		RunsDir:    e.cfg.RunsDir,
		ExportsDir: e.cfg.ExportsDir,
		Logger:     e.log,
		Telemetry:  collector,
	})
}

func closeClient(client *abcapi.Client) {
	if err := client.Close(); err != nil {
		logger.Error("close summary store", "error", err)
	}
}

func runSummarise(ctx context.Context, e env, args []string) error {
	fs := flag.NewFlagSet("summarise", flag.ContinueOnError)
	storeKind := fs.String("store", e.cfg.Store, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", e.cfg.DBPath, "sqlite database path")
	configPath := fs.String("config", "", "optional run config YAML path")
	root := fs.String("root", "", "simulation root; one subdirectory per condition")
	var targets targetFlags
	fs.Var(&targets, "target", "target histogram as NAME=PATH or PATH (repeatable)")
	metricList := fs.String("metrics", "", "comma-separated metric names (default: "+strings.Join(defaultMetricNames(), ",")+")")
	maxPerSubdir := fs.Int("max-per-subdir", 0, "realisations loaded per subdirectory; 0 means all")
	workers := fs.Int("workers", e.cfg.Workers, "parallel summary workers")
	runID := fs.String("run-id", "", "run id; generated when empty")
	outPath := fs.String("out", "", "optional extra CSV copy of the summary table")
	metricsOut := fs.String("metrics-out", "", "optional prometheus textfile for load counters")
	jsonOut := fs.Bool("json", false, "emit result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	rc := runConfig{Workers: e.cfg.Workers}
	if *configPath != "" {
		loaded, err := loadRunConfig(*configPath)
		if err != nil {
			return err
		}
		rc = loaded
		if rc.Workers == 0 {
			rc.Workers = e.cfg.Workers
		}
	}
	if setFlags["root"] {
		rc.Root = *root
	}
	if setFlags["target"] {
		rc.Targets = targets.configs()
	}
	if setFlags["metrics"] {
		rc.Metrics = splitList(*metricList)
	}
	if setFlags["max-per-subdir"] {
		rc.MaxPerSubdir = *maxPerSubdir
	}
	if setFlags["workers"] {
		rc.Workers = *workers
	}
	if setFlags["run-id"] {
		rc.RunID = *runID
	}
	if setFlags["out"] {
		rc.Out = *outPath
	}

	reg := prometheus.NewRegistry()
	client, err := newClient(e, *storeKind, *dbPath, telemetry.NewCollector(reg))
	if err != nil {
		return err
	}
	defer closeClient(client)

	result, err := client.Summarise(ctx, rc.request())
	if err != nil {
		return err
	}
	if result.Realisations == 0 {
		logger.Warn("no realisations found", "root", rc.Root, "run_id", result.RunID)
	}
	if rc.Out != "" {
		if err := dataextract.WriteCSVFile(rc.Out, result.Table); err != nil {
			return err
		}
	}
	if *metricsOut != "" {
		if err := telemetry.WriteTextfile(*metricsOut, reg); err != nil {
			return err
		}
	}

	if *jsonOut {
		return printJSON(map[string]any{
			"run_id":        result.RunID,
			"artifacts_dir": result.ArtifactsDir,
			"realisations":  result.Realisations,
			"records":       result.Records,
			"targets":       result.Table.Info.Targets,
			"metrics":       result.Table.Info.Metrics,
		})
	}
	fmt.Printf("summarised run_id=%s realisations=%s records=%s artifacts=%s\n",
		result.RunID,
		humanize.Comma(int64(result.Realisations)),
		humanize.Comma(int64(result.Records)),
		result.ArtifactsDir,
	)
	for _, s := range result.MetricSummary {
		fmt.Printf("target=%s metric=%s mean=%.6g std=%.6g min=%.6g best=%s\n", s.Target, s.Metric, s.Mean, s.Std, s.Min, s.BestPath)
	}
	return nil
}

func runDecode(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit parameter sets as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return errors.New("decode requires at least one path")
	}

	decoded := make([]model.ParameterSet, 0, len(paths))
	for _, path := range paths {
		ps, err := params.Decode(path)
		if err != nil {
			return err
		}
		decoded = append(decoded, ps)
	}
	if *jsonOut {
		return printJSON(decoded)
	}
	for _, ps := range decoded {
		cells := make([]string, 0, len(model.ParameterColumns))
		for _, f := range ps.Fields() {
			cells = append(cells, f.Name+"="+model.FormatValue(f.Value))
		}
		fmt.Println(strings.Join(cells, " "))
	}
	return nil
}

func runInspect(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	height := fs.Int("height", 10, "plot height in rows")
	width := fs.Int("width", 60, "plot width in columns; 0 keeps one column per copy number")
	plot := fs.Bool("plot", true, "draw the histogram")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("inspect requires exactly one histogram path")
	}
	path := fs.Arg(0)

	h, err := histogram.Load(path)
	if err != nil {
		return err
	}
	fmt.Printf("path=%s bins=%d cells=%s\n", path, h.Len(), humanize.Comma(int64(h.Mass())))
	if h.Mass() == 0 {
		fmt.Println("empty histogram")
		return nil
	}

	r := realisation.New(h, model.ParameterSet{SourcePath: path})
	mean, err := r.Mean()
	if err != nil {
		return err
	}
	variance, err := r.Variance()
	if err != nil {
		return err
	}
	entropy, err := r.Entropy()
	if err != nil {
		return err
	}
	frequency, err := r.Frequency()
	if err != nil {
		return err
	}
	fmt.Printf("mean=%.6g variance=%.6g entropy=%.6g frequency=%.6g\n", mean, variance, entropy, frequency)

	if *plot {
		fmt.Println(plotHistogram(h, *height, *width))
	}
	return nil
}

// maxPlotPoints bounds the plotted series; wider supports are bucketed.
const maxPlotPoints = 200

// plotHistogram draws cell counts per copy number, filling absent keys with 0.
func plotHistogram(h histogram.Histogram, height, width int) string {
	series, perColumn := histogramSeries(h, maxPlotPoints)
	caption := "cells per ecDNA copy number"
	if perColumn > 1 {
		caption = fmt.Sprintf("%s (%.4g copies per column)", caption, perColumn)
	}
	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Caption(caption),
	}
	if width > 0 {
		opts = append(opts, asciigraph.Width(width))
	}
	return asciigraph.Plot(series, opts...)
}

// histogramSeries spreads the counts of h over at most limit points covering
// copy numbers 0..max key. It also returns the copy-number width of a point.
func histogramSeries(h histogram.Histogram, limit int) ([]float64, float64) {
	keys := h.Keys()
	span := float64(keys[len(keys)-1]) + 1
	bucketed := span > float64(limit)
	points := limit
	if !bucketed {
		points = int(span)
	}
	series := make([]float64, points)
	for _, b := range h.Bins() {
		idx := b.Key
		if bucketed {
			idx = min(int(float64(b.Key)/span*float64(points)), points-1)
		}
		series[idx] += float64(b.Count)
	}
	if len(series) == 1 {
		series = append(series, series[0])
	}
	return series, span / float64(points)
}

func runRuns(ctx context.Context, e env, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	show := fs.String("show", "", "print the recorded configuration of one run id instead of the list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(e, "memory", "", nil)
	if err != nil {
		return err
	}
	defer closeClient(client)

	if *show != "" {
		cfg, err := client.RunConfig(ctx, *show)
		if err != nil {
			return err
		}
		if *jsonOut {
			return printJSON(cfg)
		}
		fmt.Printf("run_id=%s created_at=%s root=%s max_per_subdir=%d workers=%d metrics=%s\n",
			cfg.RunID, cfg.CreatedAtUTC, cfg.Root, cfg.MaxPerSubdir, cfg.Workers, strings.Join(cfg.Metrics, ","))
		for _, target := range cfg.Targets {
			fmt.Printf("target name=%s path=%s\n", target.Name, target.Path)
		}
		return nil
	}

	items, err := client.Runs(ctx, abcapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(items)
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, item := range items {
		fmt.Printf("run_id=%s created_at=%s root=%s targets=%s metrics=%s realisations=%s records=%s\n",
			item.RunID,
			item.CreatedAtUTC,
			item.Root,
			strings.Join(item.Targets, ","),
			strings.Join(item.Metrics, ","),
			humanize.Comma(int64(item.Realisations)),
			humanize.Comma(int64(item.Records)),
		)
	}
	return nil
}

func runTable(ctx context.Context, e env, args []string) error {
	fs := flag.NewFlagSet("table", flag.ContinueOnError)
	storeKind := fs.String("store", e.cfg.Store, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", e.cfg.DBPath, "sqlite database path")
	runID := fs.String("run-id", "", "run id; latest run when empty")
	limit := fs.Int("limit", 0, "max rows to print; 0 prints all")
	summary := fs.Bool("summary", false, "print the per-target metric summary instead of rows")
	csvPath := fs.String("csv", "", "read a summaries CSV file instead of a stored run")
	column := fs.String("column", "", "print only the named column, one value per line")
	jsonOut := fs.Bool("json", false, "emit JSON instead of CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return errors.New("limit must be >= 0")
	}
	if *csvPath != "" && (*runID != "" || *summary) {
		return errors.New("--csv cannot be combined with --run-id or --summary")
	}
	if *csvPath != "" {
		table, err := readCSVTable(*csvPath)
		if err != nil {
			return err
		}
		return printTable(table, *limit, *column, *jsonOut)
	}

	client, err := newClient(e, *storeKind, *dbPath, nil)
	if err != nil {
		return err
	}
	defer closeClient(client)

	if *summary {
		items, err := client.MetricSummary(ctx, *runID)
		if err != nil {
			return err
		}
		if *jsonOut {
			return printJSON(items)
		}
		for _, s := range items {
			fmt.Printf("target=%s metric=%s count=%d mean=%.6g std=%.6g min=%.6g max=%.6g best=%s\n",
				s.Target, s.Metric, s.Count, s.Mean, s.Std, s.Min, s.Max, s.BestPath)
		}
		return nil
	}

	table, err := client.Table(ctx, *runID)
	if err != nil {
		return err
	}
	return printTable(table, *limit, *column, *jsonOut)
}

func readCSVTable(path string) (dataextract.TableFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataextract.TableFile{}, err
	}
	defer f.Close()
	return dataextract.ReadCSV(f, targetName(path))
}

func printTable(table dataextract.TableFile, limit int, column string, jsonOut bool) error {
	table.Rows = dataextract.DumpTable(table, limit)
	if column != "" {
		values, err := table.Column(column)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(values)
		}
		for _, v := range values {
			fmt.Println(v)
		}
		return nil
	}
	if jsonOut {
		return printJSON(table)
	}
	return dataextract.WriteCSV(os.Stdout, table)
}

func runExport(ctx context.Context, e env, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", e.cfg.ExportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := newClient(e, "memory", "", nil)
	if err != nil {
		return err
	}
	defer closeClient(client)

	exported, err := client.Export(ctx, abcapi.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, filepath.Clean(exported.Directory))
	return nil
}

func runMetrics(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("metrics", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	defaults := make(map[string]bool)
	for _, name := range defaultMetricNames() {
		defaults[name] = true
	}
	for _, name := range metrics.Names() {
		m, err := metrics.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Printf("%s equal_support=%t default=%t\n", m.Name(), m.RequiresEqualSupport(), defaults[m.Name()])
	}
	return nil
}

func defaultMetricNames() []string {
	ms := metrics.Default()
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name()
	}
	return names
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: ecdnactl <summarise|decode|inspect|runs|table|export|metrics> [flags]", msg)
}
