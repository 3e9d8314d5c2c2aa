// Package columnar provides the dictionary-encoded column types used to hold
// parsed GTF records
package columnar

import "strings"

// ColumnKind selects how an attribute column is stored
type ColumnKind int

const (
	// KindCategorical stores values as dictionary codes. Used for keys whose
	// values repeat heavily across rows (gene_biotype, source, ...).
	KindCategorical ColumnKind = iota
	// KindVector stores values as plain strings. Used for identifier-like
	// keys whose values are mostly unique.
	KindVector
)

// String returns the kind name
func (k ColumnKind) String() string {
	switch k {
	case KindCategorical:
		return "categorical"
	case KindVector:
		return "vector"
	default:
		return "unknown"
	}
}

// Categorical is a string column stored as dictionary codes. Codes are dense,
// start at 0 and are assigned in order of first insertion, so code i always
// decodes to the i-th distinct value pushed.
type Categorical struct {
	dict   map[string]uint32
	values []string // distinct values indexed by code
	codes  []uint32
}

// NewCategorical creates an empty categorical column
func NewCategorical() *Categorical {
	return &Categorical{
		dict:  make(map[string]uint32),
		codes: make([]uint32, 0, 64),
	}
}

// NewPresizedCategorical creates a categorical column for a key that first
// appears after n rows were already committed. When n > 0 the empty string
// takes code 0 and the n earlier rows are filled with it.
func NewPresizedCategorical(n int) *Categorical {
	c := NewCategorical()
	if n > 0 {
		c.dict[""] = 0
		c.values = append(c.values, "")
		c.codes = make([]uint32, n, n+64)
	}
	return c
}

// Push appends value, growing the dictionary if the value is new
func (c *Categorical) Push(value string) {
	code, ok := c.dict[value]
	if !ok {
		code = uint32(len(c.values))
		// Clone so the dictionary does not pin the line the value was sliced from
		value = strings.Clone(value)
		c.dict[value] = code
		c.values = append(c.values, value)
	}
	c.codes = append(c.codes, code)
}

// Len returns the number of codes recorded, not the number of distinct values
func (c *Categorical) Len() int { return len(c.codes) }

// Cardinality returns the number of distinct values
func (c *Categorical) Cardinality() int { return len(c.values) }

// Codes returns the code of every row. The slice is owned by the column.
func (c *Categorical) Codes() []uint32 { return c.codes }

// Categories returns the dictionary ordered by code
func (c *Categorical) Categories() []string {
	out := make([]string, len(c.values))
	copy(out, c.values)
	return out
}

// Code returns the code assigned to value
func (c *Categorical) Code(value string) (uint32, bool) {
	code, ok := c.dict[value]
	return code, ok
}

// Value decodes row i
func (c *Categorical) Value(i int) string {
	return c.values[c.codes[i]]
}

// Decode returns every row as a string, in order
func (c *Categorical) Decode() []string {
	out := make([]string, len(c.codes))
	for i, code := range c.codes {
		out[i] = c.values[code]
	}
	return out
}

// MemoryUsage estimates the bytes held by the column
func (c *Categorical) MemoryUsage() int64 {
	var total int64
	for _, v := range c.values {
		total += int64(len(v)) // String bytes
		total += 16 + 4        // header in values + code in dict
	}
	total += int64(len(c.codes) * 4)
	return total
}

// vectorMemoryUsage estimates the bytes held by a plain string column
func vectorMemoryUsage(values []string) int64 {
	var total int64
	for _, v := range values {
		total += int64(len(v))
		total += 16 // string header overhead
	}
	return total
}
