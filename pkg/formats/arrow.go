package formats

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/gtfcol/pkg/columnar"
)

// MetaFeature is the schema metadata key holding the GTF feature type
const MetaFeature = "gtfcol.feature"

var dictType = &arrow.DictionaryType{
	IndexType: arrow.PrimitiveTypes.Uint32,
	ValueType: arrow.BinaryTypes.String,
}

// Schema returns the Arrow schema of table. With dictionary set, categorical
// columns are dictionary<uint32, utf8>; otherwise they are plain utf8.
func Schema(feature string, table *columnar.FeatureTable, dictionary bool) *arrow.Schema {
	return schemaFor(feature, layout(table), dictionary)
}

func schemaFor(feature string, cols []column, dictionary bool) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		var dt arrow.DataType
		switch c.kind {
		case KindCategorical:
			dt = arrow.BinaryTypes.String
			if dictionary {
				dt = dictType
			}
		case KindVector:
			dt = arrow.BinaryTypes.String
		case KindUint64:
			dt = arrow.PrimitiveTypes.Uint64
		case KindInt8:
			dt = arrow.PrimitiveTypes.Int8
		}
		fields[i] = arrow.Field{
			Name:     c.name,
			Type:     dt,
			Metadata: arrow.NewMetadata([]string{metaKind}, []string{c.kind}),
		}
	}
	md := arrow.NewMetadata([]string{MetaFeature}, []string{feature})
	return arrow.NewSchema(fields, &md)
}

// ToArrowRecord converts rows [offset, offset+n) of table into an Arrow
// record. The caller must Release the record.
func ToArrowRecord(mem memory.Allocator, feature string, table *columnar.FeatureTable, offset, n int, dictionary bool) arrow.Record {
	cols := layout(table)
	return buildRecord(mem, schemaFor(feature, cols, dictionary), cols, offset, n, dictionary)
}

func buildRecord(mem memory.Allocator, schema *arrow.Schema, cols []column, offset, n int, dictionary bool) arrow.Record {
	arrays := make([]arrow.Array, len(cols))
	for i, c := range cols {
		arrays[i] = buildArray(mem, c, offset, n, dictionary)
	}
	rec := array.NewRecord(schema, arrays, int64(n))
	for _, a := range arrays {
		a.Release()
	}
	return rec
}

func buildArray(mem memory.Allocator, c column, offset, n int, dictionary bool) arrow.Array {
	switch c.kind {
	case KindCategorical:
		if dictionary {
			return dictionaryArray(mem, c.cat, offset, n)
		}
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.Reserve(n)
		for i := offset; i < offset+n; i++ {
			b.Append(c.cat.Value(i))
		}
		return b.NewArray()
	case KindVector:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.AppendValues(c.vec[offset:offset+n], nil)
		return b.NewArray()
	case KindUint64:
		b := array.NewUint64Builder(mem)
		defer b.Release()
		b.AppendValues(c.u64[offset:offset+n], nil)
		return b.NewArray()
	default:
		b := array.NewInt8Builder(mem)
		defer b.Release()
		b.AppendValues(c.i8[offset:offset+n], nil)
		return b.NewArray()
	}
}

// dictionaryArray carries the whole dictionary with every batch so batches
// of one table share an identical dictionary
func dictionaryArray(mem memory.Allocator, cat *columnar.Categorical, offset, n int) arrow.Array {
	ib := array.NewUint32Builder(mem)
	defer ib.Release()
	ib.AppendValues(cat.Codes()[offset:offset+n], nil)
	indices := ib.NewArray()
	defer indices.Release()

	sb := array.NewStringBuilder(mem)
	defer sb.Release()
	sb.AppendValues(cat.Categories(), nil)
	dict := sb.NewArray()
	defer dict.Release()

	return array.NewDictionaryArray(dictType, indices, dict)
}

func writeArrow(w io.Writer, feature string, table *columnar.FeatureTable, cfg *WriterConfig) error {
	mem := allocator(cfg)
	cols := layout(table)
	schema := schemaFor(feature, cols, true)

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return err
	}

	err = batches(table.Count, cfg.BatchSize, func(offset, n int) error {
		rec := buildRecord(mem, schema, cols, offset, n, true)
		defer rec.Release()
		return fw.Write(rec)
	})
	if err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}
