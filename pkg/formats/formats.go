// Package formats writes parsed feature tables to files. Each table is
// written to its own file in one of four formats:
//
//   - arrow: Arrow IPC file; categorical columns stay dictionary encoded
//   - parquet: Parquet file with dictionary pages for every string column
//   - avro: Avro object container file, one record per row
//   - json: a single columnar JSON document holding codes and categories
//
// Column order is the same in every format: seqname, start, end, strand,
// then source and frame when they were retained, then categorical
// attributes and vector attributes, each in key order.
package formats

import (
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/compress"

	"github.com/ajitpratap0/gtfcol/pkg/columnar"
	"github.com/ajitpratap0/gtfcol/pkg/errors"
)

// Format names an output file format
type Format string

const (
	// None writes nothing
	None Format = "none"
	// Arrow is the Arrow IPC file format
	Arrow Format = "arrow"
	// Parquet is Apache Parquet
	Parquet Format = "parquet"
	// Avro is the Avro object container format
	Avro Format = "avro"
	// JSON is a columnar JSON document
	JSON Format = "json"
)

// ParseFormat parses a format name. The empty string means None.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return None, nil
	case None, Arrow, Parquet, Avro, JSON:
		return f, nil
	default:
		return "", errors.Newf(errors.ErrorTypeValidation, "unsupported output format %q", s)
	}
}

// Extension returns the file extension for f, including the dot
func (f Format) Extension() string {
	switch f {
	case Arrow:
		return ".arrow"
	case Parquet:
		return ".parquet"
	case Avro:
		return ".avro"
	case JSON:
		return ".json"
	default:
		return ""
	}
}

// ParseParquetCompression maps a codec name to a Parquet compression codec
func ParseParquetCompression(s string) (compress.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	default:
		return compress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeValidation, "unsupported parquet compression %q", s)
	}
}

// WriterConfig configures WriteTable
type WriterConfig struct {
	Format Format
	// BatchSize is the number of rows per Arrow record batch, Parquet row
	// group chunk or Avro block
	BatchSize int
	// ParquetCompression is applied to every Parquet column chunk
	ParquetCompression compress.Compression
	// AvroCompression is null, deflate or snappy
	AvroCompression string
	// Allocator backs Arrow buffers; the Go allocator is used when nil
	Allocator memory.Allocator
}

// DefaultWriterConfig returns the configuration used when none is given
func DefaultWriterConfig(format Format) *WriterConfig {
	return &WriterConfig{
		Format:             format,
		BatchSize:          64 * 1024,
		ParquetCompression: compress.Codecs.Snappy,
		AvroCompression:    "deflate",
	}
}

// WriteTable writes table to w in the configured format and returns the
// number of bytes written. w is not closed.
func WriteTable(w io.Writer, feature string, table *columnar.FeatureTable, cfg *WriterConfig) (int64, error) {
	if cfg == nil {
		cfg = DefaultWriterConfig(Arrow)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultWriterConfig(cfg.Format).BatchSize
	}
	if err := table.CheckAlignment(); err != nil {
		return 0, err
	}

	cw := &countingWriter{w: w}
	var err error
	switch cfg.Format {
	case Arrow:
		err = writeArrow(cw, feature, table, cfg)
	case Parquet:
		err = writeParquet(cw, feature, table, cfg)
	case Avro:
		err = writeAvro(cw, feature, table, cfg)
	case JSON:
		err = writeJSON(cw, feature, table)
	default:
		err = errors.Newf(errors.ErrorTypeCapability, "cannot write format %q", cfg.Format)
	}
	if err != nil {
		if _, ok := err.(*errors.Error); !ok {
			err = errors.Wrap(err, errors.ErrorTypeFile, "failed to write "+string(cfg.Format)+" table")
		}
		return cw.n, err.(*errors.Error).WithDetail("feature", feature)
	}
	return cw.n, nil
}

// countingWriter counts bytes and hides any Close method of the underlying
// writer from format libraries that close their sink
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func allocator(cfg *WriterConfig) memory.Allocator {
	if cfg.Allocator != nil {
		return cfg.Allocator
	}
	return memory.NewGoAllocator()
}

func batches(rows, size int, fn func(offset, n int) error) error {
	for off := 0; off < rows; off += size {
		n := size
		if off+n > rows {
			n = rows - off
		}
		if err := fn(off, n); err != nil {
			return err
		}
	}
	return nil
}
