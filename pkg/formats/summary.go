package formats

import (
	"github.com/ajitpratap0/gtfcol/pkg/columnar"
)

// ColumnSummary describes one column of a table
type ColumnSummary struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	// Cardinality is the dictionary size of categorical columns
	Cardinality int `json:"cardinality,omitempty"`
}

// TableSummary describes one feature table
type TableSummary struct {
	Feature         string          `json:"feature"`
	Rows            int             `json:"rows"`
	Columns         []ColumnSummary `json:"columns"`
	MemoryBytes     int64           `json:"memory_bytes"`
	MemoryPerRecord float64         `json:"memory_per_record"`
}

// Summarize describes table without copying its data
func Summarize(feature string, table *columnar.FeatureTable) TableSummary {
	cols := layout(table)
	s := TableSummary{
		Feature:         feature,
		Rows:            table.Count,
		Columns:         make([]ColumnSummary, len(cols)),
		MemoryBytes:     table.MemoryUsage(),
		MemoryPerRecord: table.MemoryPerRecord(),
	}
	for i, c := range cols {
		s.Columns[i] = ColumnSummary{Name: c.name, Kind: c.kind}
		if c.cat != nil {
			s.Columns[i].Cardinality = c.cat.Cardinality()
		}
	}
	return s
}
