package abc

import (
	"strconv"

	"ecdnaabc/internal/model"
)

// SummaryRecord is one flat, ordered row of ABC input: the parameter fields,
// the target label, then one distance per metric.
type SummaryRecord struct {
	fields []model.Field
}

func newRecord(ps model.ParameterSet, label string, metricCount int) SummaryRecord {
	fields := make([]model.Field, 0, len(model.ParameterColumns)+1+metricCount)
	fields = append(fields, ps.Fields()...)
	fields = append(fields, model.Field{Name: model.ColumnTarget, Value: label})
	return SummaryRecord{fields: fields}
}

func (r *SummaryRecord) set(name string, v float64) {
	r.fields = append(r.fields, model.Field{Name: name, Value: v})
}

// Len is the number of fields.
func (r SummaryRecord) Len() int { return len(r.fields) }

// Names returns the field names in insertion order.
func (r SummaryRecord) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns a copy of the fields in insertion order.
func (r SummaryRecord) Fields() []model.Field {
	return append([]model.Field(nil), r.fields...)
}

// Get returns the value stored under name.
func (r SummaryRecord) Get(name string) (any, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Float returns a numeric field as float64.
func (r SummaryRecord) Float(name string) (float64, bool) {
	v, ok := r.Get(name)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// String returns the formatted cell stored under name, or "" when absent.
func (r SummaryRecord) String(name string) string {
	v, _ := r.Get(name)
	return model.FormatValue(v)
}

// Cells formats every value in field order.
func (r SummaryRecord) Cells() []string {
	cells := make([]string, len(r.fields))
	for i, f := range r.fields {
		cells[i] = model.FormatValue(f.Value)
	}
	return cells
}
