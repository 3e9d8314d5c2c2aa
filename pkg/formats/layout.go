package formats

import (
	"strconv"

	"github.com/ajitpratap0/gtfcol/pkg/columnar"
)

// Column kinds as they appear in summaries, JSON output and Arrow field
// metadata
const (
	KindCategorical = "categorical"
	KindVector      = "vector"
	KindUint64      = "uint64"
	KindInt8        = "int8"
)

// metaKind is the Arrow field metadata key holding the column kind
const metaKind = "gtfcol.kind"

// column is one output column of a feature table
type column struct {
	name string
	kind string
	cat  *columnar.Categorical
	vec  []string
	u64  []uint64
	i8   []int8
}

// reserved are the fixed column names; an attribute key equal to one of
// them is written with an "_attr" suffix. A name that is still taken gets
// the first free "_2", "_3", ... suffix.
var reserved = map[string]bool{
	"seqname": true, "start": true, "end": true, "strand": true, "source": true, "frame": true,
}

func layout(t *columnar.FeatureTable) []column {
	cols := make([]column, 0, t.ColumnCount())
	cols = append(cols,
		column{name: "seqname", kind: KindCategorical, cat: t.Seqname},
		column{name: "start", kind: KindUint64, u64: t.Start},
		column{name: "end", kind: KindUint64, u64: t.End},
		column{name: "strand", kind: KindInt8, i8: t.Strand},
	)
	if t.Source != nil {
		cols = append(cols,
			column{name: "source", kind: KindCategorical, cat: t.Source},
			column{name: "frame", kind: KindCategorical, cat: t.Frame},
		)
	}

	used := make(map[string]bool, cap(cols))
	for _, c := range cols {
		used[c.name] = true
	}
	for _, key := range t.CategoricalKeys() {
		cols = append(cols, column{name: attributeName(key, used), kind: KindCategorical, cat: t.CatAttributes[key]})
	}
	for _, key := range t.VectorKeys() {
		cols = append(cols, column{name: attributeName(key, used), kind: KindVector, vec: t.VecAttributes[key]})
	}
	return cols
}

// attributeName picks an output name for key not yet in used and records it
func attributeName(key string, used map[string]bool) string {
	base := key
	if reserved[key] {
		base = key + "_attr"
	}
	name := base
	for n := 2; used[name]; n++ {
		name = base + "_" + strconv.Itoa(n)
	}
	used[name] = true
	return name
}
