package columnar

import (
	"sort"
	"strings"

	"github.com/ajitpratap0/gtfcol/pkg/errors"
)

// Row holds the fixed fields of one GTF record
type Row struct {
	Seqname string
	Source  string
	Start   uint64
	End     uint64
	Strand  int8
	Frame   string
}

// Attribute is one key/value pair that survived attribute rule processing
type Attribute struct {
	Key   string
	Value string
	Kind  ColumnKind
}

// FeatureTable holds every record of one GTF feature type in aligned columns.
// Attribute columns are discovered while rows are appended; a column created
// after row 0 is back-filled with empty values so that at the end of every
// AppendRow all columns have exactly Count entries.
//
// A FeatureTable is not safe for concurrent use.
type FeatureTable struct {
	Seqname *Categorical
	Start   []uint64
	End     []uint64
	Strand  []int8

	// Source and Frame are nil unless the table was created with
	// source/frame retention.
	Source *Categorical
	Frame  *Categorical

	CatAttributes map[string]*Categorical
	VecAttributes map[string][]string

	Count int
}

// NewFeatureTable creates an empty table
func NewFeatureTable(retainSourceFrame bool) *FeatureTable {
	t := &FeatureTable{
		Seqname:       NewCategorical(),
		Start:         make([]uint64, 0, 1024),
		End:           make([]uint64, 0, 1024),
		Strand:        make([]int8, 0, 1024),
		CatAttributes: make(map[string]*Categorical),
		VecAttributes: make(map[string][]string),
	}
	if retainSourceFrame {
		t.Source = NewCategorical()
		t.Frame = NewCategorical()
	}
	return t
}

// AppendRow commits one record. Attributes are pushed in order; when a key
// occurs more than once in attrs only its first value is kept. It returns the
// number of duplicate attributes that were dropped.
func (t *FeatureTable) AppendRow(row Row, attrs []Attribute) int {
	t.Seqname.Push(row.Seqname)
	t.Start = append(t.Start, row.Start)
	t.End = append(t.End, row.End)
	t.Strand = append(t.Strand, row.Strand)
	if t.Source != nil {
		t.Source.Push(row.Source)
		t.Frame.Push(row.Frame)
	}

	duplicates := 0
	for _, attr := range attrs {
		if !t.pushAttribute(attr) {
			duplicates++
		}
	}

	t.Count++
	t.align()
	return duplicates
}

// pushAttribute appends attr to its column, creating the column pre-sized to
// the rows committed so far. It returns false if the column already holds a
// value for the current row.
func (t *FeatureTable) pushAttribute(attr Attribute) bool {
	switch attr.Kind {
	case KindVector:
		col, exists := t.VecAttributes[attr.Key]
		if !exists {
			col = make([]string, t.Count, t.Count+64)
			t.VecAttributes[strings.Clone(attr.Key)] = append(col, strings.Clone(attr.Value))
			return true
		}
		if len(col) > t.Count {
			return false
		}
		t.VecAttributes[attr.Key] = append(col, strings.Clone(attr.Value))
	default:
		col, exists := t.CatAttributes[attr.Key]
		if !exists {
			col = NewPresizedCategorical(t.Count)
			t.CatAttributes[strings.Clone(attr.Key)] = col
		} else if col.Len() > t.Count {
			return false
		}
		col.Push(attr.Value)
	}
	return true
}

// align pads every attribute column that did not receive a value for the
// row just committed
func (t *FeatureTable) align() {
	for _, col := range t.CatAttributes {
		if col.Len() < t.Count {
			col.Push("")
		}
	}
	for key, col := range t.VecAttributes {
		if len(col) < t.Count {
			t.VecAttributes[key] = append(col, "")
		}
	}
}

// CategoricalKeys returns the categorical attribute keys in sorted order
func (t *FeatureTable) CategoricalKeys() []string {
	keys := make([]string, 0, len(t.CatAttributes))
	for k := range t.CatAttributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// VectorKeys returns the vector attribute keys in sorted order
func (t *FeatureTable) VectorKeys() []string {
	keys := make([]string, 0, len(t.VecAttributes))
	for k := range t.VecAttributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ColumnCount returns the number of columns, fixed and attribute
func (t *FeatureTable) ColumnCount() int {
	n := 4 + len(t.CatAttributes) + len(t.VecAttributes)
	if t.Source != nil {
		n += 2
	}
	return n
}

// CheckAlignment verifies that every column holds exactly Count rows
func (t *FeatureTable) CheckAlignment() error {
	check := func(name string, n int) error {
		if n != t.Count {
			return errors.Newf(errors.ErrorTypeInternal, "column %q has %d rows, table has %d", name, n, t.Count)
		}
		return nil
	}

	if err := check("seqname", t.Seqname.Len()); err != nil {
		return err
	}
	if err := check("start", len(t.Start)); err != nil {
		return err
	}
	if err := check("end", len(t.End)); err != nil {
		return err
	}
	if err := check("strand", len(t.Strand)); err != nil {
		return err
	}
	if t.Source != nil {
		if err := check("source", t.Source.Len()); err != nil {
			return err
		}
		if err := check("frame", t.Frame.Len()); err != nil {
			return err
		}
	}
	for _, key := range t.CategoricalKeys() {
		if err := check(key, t.CatAttributes[key].Len()); err != nil {
			return err
		}
	}
	for _, key := range t.VectorKeys() {
		if err := check(key, len(t.VecAttributes[key])); err != nil {
			return err
		}
	}
	return nil
}

// MemoryUsage returns an estimate of the bytes held by the table
func (t *FeatureTable) MemoryUsage() int64 {
	var total int64

	total += 64 // Base struct overhead
	total += t.Seqname.MemoryUsage()
	total += int64(len(t.Start)*8 + len(t.End)*8 + len(t.Strand))
	if t.Source != nil {
		total += t.Source.MemoryUsage() + t.Frame.MemoryUsage()
	}

	for name, col := range t.CatAttributes {
		total += int64(len(name))
		total += col.MemoryUsage()
	}
	for name, col := range t.VecAttributes {
		total += int64(len(name))
		total += vectorMemoryUsage(col)
	}

	return total
}

// MemoryPerRecord returns average memory usage per row
func (t *FeatureTable) MemoryPerRecord() float64 {
	if t.Count == 0 {
		return 0
	}
	return float64(t.MemoryUsage()) / float64(t.Count)
}
