// Package columnar implements the in-memory column model that GTF records are
// parsed into.
//
// # Overview
//
// Each GTF feature type ("gene", "transcript", "exon", ...) gets its own
// FeatureTable. A table has four fixed columns that every record fills
// (seqname, start, end, strand) and a growing set of attribute columns that
// are discovered while rows are appended.
//
// Attribute columns come in two kinds:
//   - Categorical: dictionary encoded, for values that repeat across rows
//   - Vector: plain strings, for identifier-like values that rarely repeat
//
// # Dictionary Encoding
//
// A Categorical maps each distinct string to a dense uint32 code assigned in
// first-seen order and stores one code per row:
//
//	c := columnar.NewCategorical()
//	c.Push("protein_coding")
//	c.Push("lncRNA")
//	c.Push("protein_coding")
//
//	c.Codes()      // [0 1 0]
//	c.Categories() // ["protein_coding" "lncRNA"]
//
// Categories is ordered by code, so decoding Codes through it reproduces the
// pushed sequence exactly. Downstream materializers rely on that ordering.
//
// # Late-arriving Columns
//
// When an attribute key first appears on row n > 0 its column is created
// pre-filled with n empty values (for a Categorical the empty string takes
// code 0). After every row, columns that did not receive a value are padded
// with one empty value, so all columns of a table always have Count rows:
//
//	t := columnar.NewFeatureTable(false)
//	t.AppendRow(columnar.Row{Seqname: "1", Start: 11869, End: 14409, Strand: 1},
//		[]columnar.Attribute{{Key: "gene_id", Value: "ENSG00000223972", Kind: columnar.KindVector}})
//	t.AppendRow(columnar.Row{Seqname: "1", Start: 14404, End: 29570, Strand: -1},
//		[]columnar.Attribute{{Key: "gene_source", Value: "havana", Kind: columnar.KindCategorical}})
//
//	t.VecAttributes["gene_id"]              // ["ENSG00000223972" ""]
//	t.CatAttributes["gene_source"].Decode() // ["" "havana"]
//
// Padding costs one pass over the table's attribute columns per row.
package columnar
