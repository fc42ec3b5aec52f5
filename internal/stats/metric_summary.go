package stats

import (
	"fmt"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"ecdnaabc/internal/dataextract"
	"ecdnaabc/internal/model"
)

// MetricSummary describes the spread of one metric column for one target.
type MetricSummary struct {
	Target string  `json:"target"`
	Metric string  `json:"metric"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	// BestPath is the realisation closest to the target under this metric.
	BestPath string `json:"best_path,omitempty"`
}

// SummariseTable reduces every metric column of table per target label, in
// target then metric order.
func SummariseTable(table dataextract.TableFile) ([]MetricSummary, error) {
	targetIdx := slices.Index(table.Info.Columns, model.ColumnTarget)
	if targetIdx < 0 {
		return nil, fmt.Errorf("table has no %s column", model.ColumnTarget)
	}
	pathIdx := slices.Index(table.Info.Columns, model.ColumnPath)

	type group struct {
		values [][]float64
		paths  []string
	}
	metricCols := table.Info.Columns[targetIdx+1:]
	groups := make(map[string]*group)
	order := make([]string, 0)
	for _, row := range table.Rows {
		if len(row.Fields) != len(table.Info.Columns) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", row.Index, len(row.Fields), len(table.Info.Columns))
		}
		label := row.Fields[targetIdx]
		g, ok := groups[label]
		if !ok {
			g = &group{values: make([][]float64, len(metricCols))}
			groups[label] = g
			order = append(order, label)
		}
		for i := range metricCols {
			v, err := strconv.ParseFloat(row.Fields[targetIdx+1+i], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d metric %s: %w", row.Index, metricCols[i], err)
			}
			g.values[i] = append(g.values[i], v)
		}
		path := ""
		if pathIdx >= 0 {
			path = row.Fields[pathIdx]
		}
		g.paths = append(g.paths, path)
	}

	out := make([]MetricSummary, 0, len(order)*len(metricCols))
	for _, label := range order {
		g := groups[label]
		for i, metric := range metricCols {
			values := g.values[i]
			mean, std := stat.PopMeanStdDev(values, nil)
			best := floats.MinIdx(values)
			out = append(out, MetricSummary{
				Target:   label,
				Metric:   metric,
				Count:    len(values),
				Mean:     mean,
				Std:      std,
				Min:      values[best],
				Max:      floats.Max(values),
				BestPath: g.paths[best],
			})
		}
	}
	return out, nil
}
