// Package gtfcol converts GTF gene annotations into per-feature columnar
// tables.
//
// A GTF file is read line by line and every record is routed to the table of
// its feature type (gene, transcript, exon, ...). Each table keeps the fixed
// fields as typed columns and grows one column per attribute key as keys are
// discovered, back-filling earlier rows with empty values so that all
// columns stay aligned.
//
// # Column model
//
// Within a table:
//   - seqname, and source and frame when retained, are categorical columns
//   - start and end are uint64; start may be stored zero-based
//   - strand is int8: 1 for "+", -1 for "-", 0 otherwise
//   - keys ending in _id are plain string (vector) columns
//   - every other key is a categorical column
//
// Categorical columns hold dictionary codes assigned in order of first
// appearance. A column created after its table already had rows reserves
// code 0 for the empty string.
//
// # Attribute rules
//
// Repeated tag attributes on transcripts become tag0 through tag5; further
// tags, and tags on any other feature, are dropped. gene* keys other than
// gene_id are kept only on genes and transcript* keys other than
// transcript_id only on transcripts.
//
// # Usage
//
// The gtfcol command parses local, stdin, s3:// and gs:// inputs, gzip, zstd,
// lz4 or snappy compressed, and writes each table as Arrow IPC, Parquet, Avro
// or JSON:
//
//	gtfcol parse --format parquet -o tables/ Homo_sapiens.GRCh38.110.gtf.gz
//	gtfcol inspect --features gene,transcript s3://annotations/gencode.v44.gtf.gz
//
// As a library:
//
//	result, err := gtf.ParseReader(r, gtf.Options{AcceptedFeatures: []string{"gene"}})
//	if err != nil {
//		return err
//	}
//	genes, _ := result.Table("gene")
//	_, err = formats.WriteTable(w, "gene", genes, formats.DefaultWriterConfig(formats.Parquet))
//
// # Packages
//
//   - pkg/gtf: line parser and attribute rules
//   - pkg/columnar: categorical columns and feature tables
//   - pkg/formats: Arrow, Parquet, Avro and JSON writers
//   - pkg/source: input URIs and decompression
//   - pkg/config: YAML and GTFCOL_* environment configuration
//   - internal/pipeline: concurrent per-input parse and write
package gtfcol
