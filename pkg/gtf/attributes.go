package gtf

import (
	"strings"
	"unicode"

	"github.com/ajitpratap0/gtfcol/pkg/columnar"
	"github.com/ajitpratap0/gtfcol/pkg/errors"
)

const (
	featureGene       = "gene"
	featureTranscript = "transcript"

	// maxTags is the number of tag attributes kept per transcript record
	maxTags = 6
)

var tagKeys = [maxTags]string{"tag0", "tag1", "tag2", "tag3", "tag4", "tag5"}

// AttributeIterator walks the `key "value";` segments of a GTF attributes
// field and yields the pairs that survive the attribute rules:
//   - tag is only kept on transcripts; successive tags become tag0..tag5 and
//     any further tag is dropped
//   - gene* keys other than gene_id are dropped unless the feature is gene,
//     and transcript* keys other than transcript_id unless it is transcript
//   - keys ending in _id are routed to vector columns, all others to
//     categorical columns
//
// Pairs are yielded in input order. Keys and values are substrings of the
// input field.
type AttributeIterator struct {
	rest    string
	feature string

	tags       int
	attr       columnar.Attribute
	err        error
	tagDrops   int
	suppressed int
}

// Attributes returns an iterator over the attributes field of a record of
// the given feature type
func Attributes(field, feature string) *AttributeIterator {
	it := &AttributeIterator{}
	it.reset(field, feature)
	return it
}

func (it *AttributeIterator) reset(field, feature string) {
	*it = AttributeIterator{rest: field, feature: feature}
}

// Next advances to the next surviving attribute. It returns false at the end
// of the field or on a malformed segment; check Err afterwards.
func (it *AttributeIterator) Next() bool {
	if it.err != nil {
		return false
	}

	for len(it.rest) > 0 {
		var segment string
		if i := strings.IndexByte(it.rest, ';'); i >= 0 {
			segment, it.rest = it.rest[:i], it.rest[i+1:]
		} else {
			segment, it.rest = it.rest, ""
		}

		segment = strings.TrimLeftFunc(segment, unicode.IsSpace)
		if segment == "" {
			continue
		}

		sp := strings.IndexByte(segment, ' ')
		if sp < 0 {
			it.err = errors.Newf(errors.ErrorTypeMalformedRecord, "attribute %q has no value", segment).
				WithDetail("segment", segment)
			it.rest = ""
			return false
		}
		key := segment[:sp]

		if key == "tag" {
			if it.feature != featureTranscript || it.tags >= maxTags {
				it.tagDrops++
				continue
			}
			key = tagKeys[it.tags]
			it.tags++
		}

		if suppressed(key, it.feature) {
			it.suppressed++
			continue
		}

		kind := columnar.KindCategorical
		if strings.HasSuffix(key, "_id") {
			kind = columnar.KindVector
		}

		it.attr = columnar.Attribute{Key: key, Value: unquote(segment[sp+1:]), Kind: kind}
		return true
	}

	return false
}

// Attribute returns the current attribute
func (it *AttributeIterator) Attribute() columnar.Attribute { return it.attr }

// Err returns the error that stopped iteration, if any
func (it *AttributeIterator) Err() error { return it.err }

// Dropped returns how many tag segments were dropped and how many keys were
// suppressed by the gene/transcript rule so far
func (it *AttributeIterator) Dropped() (tags, suppressedKeys int) {
	return it.tagDrops, it.suppressed
}

// suppressed reports whether key duplicates gene or transcript metadata on a
// record of another feature type
func suppressed(key, feature string) bool {
	if strings.HasPrefix(key, featureGene) && key != "gene_id" && feature != featureGene {
		return true
	}
	if strings.HasPrefix(key, featureTranscript) && key != "transcript_id" && feature != featureTranscript {
		return true
	}
	return false
}

// unquote strips surrounding whitespace and then one leading and one trailing
// double quote. Embedded quotes and escapes are left untouched. Whitespace
// outside the quotes is dropped, so `gene_id  "A"` and `gene_name "X" ;`
// yield A and X where a quote-only trim would keep it.
func unquote(raw string) string {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(v, `"`)
	return strings.TrimSuffix(v, `"`)
}
