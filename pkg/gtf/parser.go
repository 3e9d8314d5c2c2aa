package gtf

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ajitpratap0/gtfcol/pkg/columnar"
	"github.com/ajitpratap0/gtfcol/pkg/errors"
)

// GTF column positions
const (
	FieldSeqname = iota
	FieldSource
	FieldFeature
	FieldStart
	FieldEnd
	FieldScore
	FieldStrand
	FieldFrame
	FieldAttributes

	numFields
)

var fieldNames = [numFields]string{
	"seqname", "source", "feature", "start", "end", "score", "strand", "frame", "attributes",
}

// required marks the fields the parser needs; source, score and frame may be
// absent from the column model but must still be present on the line
var required = [numFields]bool{true, false, true, true, true, false, true, false, true}

const (
	initialLineBuffer = 64 * 1024
	// MaxLineSize bounds a single GTF line read by ParseReader
	MaxLineSize = 16 * 1024 * 1024
)

// LineSource yields input lines one at a time. *bufio.Scanner satisfies it.
type LineSource interface {
	Scan() bool
	Text() string
	Err() error
}

// Options controls a parse
type Options struct {
	// AcceptedFeatures restricts which feature types get a table. Empty
	// means every feature is accepted.
	AcceptedFeatures []string
	// ZeroBasedStart stores start-1 instead of the 1-based GTF start.
	// End is never converted.
	ZeroBasedStart bool
	// RetainSourceFrame keeps the source and frame fields as categorical
	// columns instead of discarding them.
	RetainSourceFrame bool
}

// Stats counts what a parse consumed and silently dropped
type Stats struct {
	Lines               int64            `json:"lines"`
	Skipped             int64            `json:"skipped"`
	Records             int64            `json:"records"`
	Filtered            int64            `json:"filtered"`
	TagsDropped         int64            `json:"tags_dropped"`
	SuppressedKeys      int64            `json:"suppressed_keys"`
	DuplicateAttributes int64            `json:"duplicate_attributes"`
	RowsByFeature       map[string]int64 `json:"rows_by_feature"`
}

// Result maps feature type to its table
type Result struct {
	Tables map[string]*columnar.FeatureTable
	Stats  Stats
}

// Features returns the feature names in sorted order
func (r *Result) Features() []string {
	names := make([]string, 0, len(r.Tables))
	for name := range r.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns the table for feature
func (r *Result) Table(feature string) (*columnar.FeatureTable, bool) {
	t, ok := r.Tables[feature]
	return t, ok
}

// ParseReader parses GTF text from r
func ParseReader(r io.Reader, opts Options) (*Result, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, initialLineBuffer), MaxLineSize)
	return Parse(sc, opts)
}

// Parse consumes src to the end and returns one table per accepted feature.
// The first malformed line, bad coordinate or read failure aborts the parse;
// no partial result is returned.
func Parse(src LineSource, opts Options) (*Result, error) {
	p := newParser(opts)

	for src.Scan() {
		p.line++
		if err := p.parseLine(src.Text()); err != nil {
			return nil, withLine(err, p.line)
		}
	}
	if err := src.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read line").
			WithDetail("line", p.line+1)
	}

	p.stats.Lines = p.line
	p.stats.RowsByFeature = make(map[string]int64, len(p.tables))
	for name, t := range p.tables {
		p.stats.RowsByFeature[name] = int64(t.Count)
	}

	return &Result{Tables: p.tables, Stats: p.stats}, nil
}

type parser struct {
	opts     Options
	accepted map[string]struct{}
	tables   map[string]*columnar.FeatureTable
	stats    Stats
	line     int64

	fields [numFields]string
	attrs  []columnar.Attribute
	iter   AttributeIterator
}

func newParser(opts Options) *parser {
	accepted := make(map[string]struct{}, len(opts.AcceptedFeatures))
	for _, f := range opts.AcceptedFeatures {
		accepted[f] = struct{}{}
	}
	return &parser{
		opts:     opts,
		accepted: accepted,
		tables:   make(map[string]*columnar.FeatureTable),
		attrs:    make([]columnar.Attribute, 0, 32),
	}
}

func (p *parser) parseLine(line string) error {
	if len(line) == 0 || line[0] == '#' {
		p.stats.Skipped++
		return nil
	}

	if n := splitFields(line, &p.fields); n < numFields {
		return errors.Newf(errors.ErrorTypeMalformedRecord, "failed to find %s", firstMissing(n)).
			WithDetail("fields", n)
	}

	feature := p.fields[FieldFeature]
	table, ok := p.tables[feature]
	if !ok && len(p.accepted) > 0 {
		if _, accept := p.accepted[feature]; !accept {
			p.stats.Filtered++
			return nil
		}
	}

	row, err := p.fixedFields()
	if err != nil {
		return err
	}

	p.attrs = p.attrs[:0]
	p.iter.reset(p.fields[FieldAttributes], feature)
	for p.iter.Next() {
		p.attrs = append(p.attrs, p.iter.Attribute())
	}
	if err := p.iter.Err(); err != nil {
		return err
	}
	tags, suppressedKeys := p.iter.Dropped()
	p.stats.TagsDropped += int64(tags)
	p.stats.SuppressedKeys += int64(suppressedKeys)

	if !ok {
		table = columnar.NewFeatureTable(p.opts.RetainSourceFrame)
		p.tables[strings.Clone(feature)] = table
	}
	p.stats.DuplicateAttributes += int64(table.AppendRow(row, p.attrs))
	p.stats.Records++
	return nil
}

func (p *parser) fixedFields() (columnar.Row, error) {
	start, err := parseCoordinate(p.fields[FieldStart], "start")
	if err != nil {
		return columnar.Row{}, err
	}
	end, err := parseCoordinate(p.fields[FieldEnd], "end")
	if err != nil {
		return columnar.Row{}, err
	}

	if p.opts.ZeroBasedStart {
		if start == 0 {
			return columnar.Row{}, errors.New(errors.ErrorTypeNumericParse, "start must be at least 1 for zero-based conversion").
				WithDetail("field", "start")
		}
		start--
	}

	return columnar.Row{
		Seqname: p.fields[FieldSeqname],
		Source:  p.fields[FieldSource],
		Start:   start,
		End:     end,
		Strand:  decodeStrand(p.fields[FieldStrand]),
		Frame:   p.fields[FieldFrame],
	}, nil
}

func parseCoordinate(s, field string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeNumericParse, "invalid "+field+" coordinate").
			WithDetail("field", field).
			WithDetail("value", s)
	}
	return v, nil
}

func decodeStrand(s string) int8 {
	switch s {
	case "+":
		return 1
	case "-":
		return -1
	default:
		return 0
	}
}

// splitFields splits line on tabs into at most numFields fields; the last
// field keeps any further tabs. It returns the number of fields found.
func splitFields(line string, fields *[numFields]string) int {
	n := 0
	for n < numFields-1 {
		i := strings.IndexByte(line, '\t')
		if i < 0 {
			break
		}
		fields[n] = line[:i]
		line = line[i+1:]
		n++
	}
	fields[n] = line
	return n + 1
}

// firstMissing names the first required field at or after position n
func firstMissing(n int) string {
	for i := n; i < numFields; i++ {
		if required[i] {
			return fieldNames[i]
		}
	}
	return fieldNames[numFields-1]
}

func withLine(err error, line int64) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithDetail("line", line)
	}
	return errors.Wrap(err, errors.ErrorTypeInternal, "parse failed").WithDetail("line", line)
}
