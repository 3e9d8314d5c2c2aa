package formats

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/gtfcol/pkg/columnar"
)

// JSONTable is the document written by the json format. Categorical columns
// carry their dictionary and codes; other columns carry plain values.
type JSONTable struct {
	Feature string       `json:"feature"`
	Rows    int          `json:"rows"`
	Columns []JSONColumn `json:"columns"`
}

// JSONColumn is one column of a JSONTable
type JSONColumn struct {
	Name       string      `json:"name"`
	Kind       string      `json:"kind"`
	Categories []string    `json:"categories,omitempty"`
	Codes      []uint32    `json:"codes,omitempty"`
	Values     interface{} `json:"values,omitempty"`
}

// ToJSONTable converts table into its JSON document form
func ToJSONTable(feature string, table *columnar.FeatureTable) *JSONTable {
	cols := layout(table)
	doc := &JSONTable{Feature: feature, Rows: table.Count, Columns: make([]JSONColumn, len(cols))}
	for i, c := range cols {
		jc := JSONColumn{Name: c.name, Kind: c.kind}
		switch c.kind {
		case KindCategorical:
			jc.Categories = c.cat.Categories()
			jc.Codes = c.cat.Codes()
		case KindVector:
			jc.Values = c.vec
		case KindUint64:
			jc.Values = c.u64
		case KindInt8:
			jc.Values = c.i8
		}
		doc.Columns[i] = jc
	}
	return doc
}

func writeJSON(w io.Writer, feature string, table *columnar.FeatureTable) error {
	return json.NewEncoder(w).Encode(ToJSONTable(feature, table))
}
