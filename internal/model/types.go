package model

import "strconv"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// ParameterSet is the kinetic configuration of one simulated replicate, as
// recovered from its storage path.
type ParameterSet struct {
	SampleSize     int     `json:"sample_size"`
	Population     int     `json:"population"`
	B0             float64 `json:"b0"`
	B1             float64 `json:"b1"`
	D0             float64 `json:"d0"`
	D1             float64 `json:"d1"`
	ReplicateIndex int     `json:"idx"`
	SourcePath     string  `json:"path"`
}

// Field is one named scalar cell of a flat record. Value holds a string,
// float64 or int.
type Field struct {
	Name  string
	Value any
}

// Column names of the parameter fields, in record order.
const (
	ColumnSampleSize = "sample_size"
	ColumnPopulation = "population"
	ColumnB0         = "b0"
	ColumnB1         = "b1"
	ColumnD0         = "d0"
	ColumnD1         = "d1"
	ColumnIdx        = "idx"
	ColumnPath       = "path"
	ColumnTarget     = "target"
)

// ParameterColumns lists the parameter columns in the order Fields emits them.
var ParameterColumns = []string{
	ColumnSampleSize,
	ColumnPopulation,
	ColumnB0,
	ColumnB1,
	ColumnD0,
	ColumnD1,
	ColumnIdx,
	ColumnPath,
}

// Fields flattens the parameter set into named cells.
func (p ParameterSet) Fields() []Field {
	return []Field{
		{Name: ColumnSampleSize, Value: p.SampleSize},
		{Name: ColumnPopulation, Value: p.Population},
		{Name: ColumnB0, Value: p.B0},
		{Name: ColumnB1, Value: p.B1},
		{Name: ColumnD0, Value: p.D0},
		{Name: ColumnD1, Value: p.D1},
		{Name: ColumnIdx, Value: p.ReplicateIndex},
		{Name: ColumnPath, Value: p.SourcePath},
	}
}

// FormatValue renders a record cell for tabular output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case nil:
		return ""
	default:
		return ""
	}
}

// SummaryTable is the persisted form of one summarise run.
type SummaryTable struct {
	VersionedRecord
	RunID   string     `json:"run_id"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}
