// Package dataextract converts summary records into tables and moves them
// between CSV, JSON table files and the persisted summary form.
package dataextract

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"ecdnaabc/internal/abc"
	"ecdnaabc/internal/model"
)

type TableInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Targets []string `json:"targets,omitempty"`
	Metrics []string `json:"metrics,omitempty"`
}

type TableRow struct {
	Index  int      `json:"index"`
	Fields []string `json:"fields"`
}

type TableFile struct {
	Info TableInfo  `json:"info"`
	Rows []TableRow `json:"rows"`
}

// BuildTable lays records out as rows under one shared header. Every record
// must carry the same column sequence.
func BuildTable(records []abc.SummaryRecord, name string) (TableFile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "summaries"
	}
	if len(records) == 0 {
		return TableFile{Info: TableInfo{Name: name}}, nil
	}

	columns := records[0].Names()
	rows := make([]TableRow, 0, len(records))
	for i, rec := range records {
		if !slices.Equal(columns, rec.Names()) {
			return TableFile{}, fmt.Errorf("record %d columns %v do not match header %v", i, rec.Names(), columns)
		}
		rows = append(rows, TableRow{Index: i + 1, Fields: rec.Cells()})
	}
	table := TableFile{
		Info: TableInfo{Name: name, Columns: columns},
		Rows: rows,
	}
	inferTableInfo(&table)
	return table, nil
}

// inferTableInfo fills the target labels and metric columns from the header
// and rows.
func inferTableInfo(table *TableFile) {
	table.Info.Targets = nil
	table.Info.Metrics = nil
	targetIdx := slices.Index(table.Info.Columns, model.ColumnTarget)
	if targetIdx < 0 {
		return
	}
	table.Info.Metrics = append([]string(nil), table.Info.Columns[targetIdx+1:]...)
	seen := make(map[string]struct{})
	for _, row := range table.Rows {
		if targetIdx >= len(row.Fields) {
			continue
		}
		label := row.Fields[targetIdx]
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		table.Info.Targets = append(table.Info.Targets, label)
	}
}

// Column returns the cells of the named column in row order.
func (t TableFile) Column(name string) ([]string, error) {
	idx := slices.Index(t.Info.Columns, name)
	if idx < 0 {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row.Fields) {
			out[i] = row.Fields[idx]
		}
	}
	return out, nil
}

func WriteCSV(w io.Writer, table TableFile) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(table.Info.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range table.Rows {
		if err := writer.Write(row.Fields); err != nil {
			return fmt.Errorf("write csv row %d: %w", row.Index, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV parses a summary CSV with a header row. Blank lines are skipped and
// every row must match the header width.
func ReadCSV(in io.Reader, name string) (TableFile, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	name = strings.TrimSpace(name)
	if name == "" {
		name = "summaries"
	}
	header, err := reader.Read()
	if err == io.EOF {
		return TableFile{Info: TableInfo{Name: name}}, nil
	}
	if err != nil {
		return TableFile{}, fmt.Errorf("read table csv header: %w", err)
	}

	rows := make([]TableRow, 0, 1024)
	rowIndex := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return TableFile{}, fmt.Errorf("read table csv row %d: %w", rowIndex, err)
		}
		if blankRecord(record) {
			continue
		}
		if len(record) != len(header) {
			return TableFile{}, fmt.Errorf("table csv row %d has %d fields, header has %d", rowIndex, len(record), len(header))
		}
		rows = append(rows, TableRow{Index: rowIndex, Fields: append([]string(nil), record...)})
		rowIndex++
	}
	table := TableFile{Info: TableInfo{Name: name, Columns: header}, Rows: rows}
	inferTableInfo(&table)
	return table, nil
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// ToSummaryTable converts a table to its persisted form.
func ToSummaryTable(runID string, table TableFile) model.SummaryTable {
	rows := make([][]string, len(table.Rows))
	for i, row := range table.Rows {
		rows[i] = append([]string(nil), row.Fields...)
	}
	return model.SummaryTable{
		RunID:   runID,
		Columns: append([]string(nil), table.Info.Columns...),
		Rows:    rows,
	}
}

// FromSummaryTable rebuilds a table from its persisted form.
func FromSummaryTable(st model.SummaryTable) TableFile {
	rows := make([]TableRow, len(st.Rows))
	for i, fields := range st.Rows {
		rows[i] = TableRow{Index: i + 1, Fields: append([]string(nil), fields...)}
	}
	table := TableFile{
		Info: TableInfo{Name: st.RunID, Columns: append([]string(nil), st.Columns...)},
		Rows: rows,
	}
	inferTableInfo(&table)
	return table
}

func WriteTableFile(path string, table TableFile) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("table file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func ReadTableFile(path string) (TableFile, error) {
	if strings.TrimSpace(path) == "" {
		return TableFile{}, fmt.Errorf("table file path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return TableFile{}, err
	}
	var table TableFile
	if err := json.Unmarshal(data, &table); err != nil {
		return TableFile{}, err
	}
	return table, nil
}

// WriteCSVFile writes the table as CSV to path, creating parent directories.
func WriteCSVFile(path string, table TableFile) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("csv file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, table); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func DumpTable(table TableFile, limit int) []TableRow {
	if limit <= 0 || limit > len(table.Rows) {
		limit = len(table.Rows)
	}
	out := make([]TableRow, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, TableRow{
			Index:  table.Rows[i].Index,
			Fields: append([]string(nil), table.Rows[i].Fields...),
		})
	}
	return out
}
