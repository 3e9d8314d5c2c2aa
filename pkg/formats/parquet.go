package formats

import (
	"io"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/gtfcol/pkg/columnar"
)

// writeParquet materializes categorical columns batch by batch and lets
// Parquet dictionary pages re-encode them
func writeParquet(w io.Writer, feature string, table *columnar.FeatureTable, cfg *WriterConfig) error {
	mem := allocator(cfg)
	cols := layout(table)
	schema := schemaFor(feature, cols, false)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(cfg.ParquetCompression),
		parquet.WithDictionaryDefault(true),
		parquet.WithAllocator(mem),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(mem),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(schema, w, props, arrowProps)
	if err != nil {
		return err
	}

	err = batches(table.Count, cfg.BatchSize, func(offset, n int) error {
		rec := buildRecord(mem, schema, cols, offset, n, false)
		defer rec.Release()
		return fw.Write(rec)
	})
	if err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}
