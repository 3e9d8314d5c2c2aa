// Package gtf parses Ensembl GTF annotation text into per-feature column
// tables.
//
// # Overview
//
// Parse reads one line at a time, splits it into the nine tab-separated GTF
// fields and appends the record to the columnar.FeatureTable of its feature
// type (column 3). Tables are created the first time a feature is seen.
// The attributes field is run through AttributeIterator, which applies the
// Ensembl attribute rules before the pairs reach the table.
//
// # Basic Usage
//
//	f, err := os.Open("Homo_sapiens.GRCh38.110.gtf")
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//
//	result, err := gtf.ParseReader(f, gtf.Options{
//		AcceptedFeatures: []string{"gene", "transcript"},
//	})
//	if err != nil {
//		return err
//	}
//	genes, _ := result.Table("gene")
//	fmt.Println(genes.Count, genes.VecAttributes["gene_id"][0])
//
// Any type with Scan, Text and Err methods can be used as input through
// Parse; *bufio.Scanner is the usual choice.
//
// # Coordinates
//
// Start and end are kept as the 1-based inclusive values found in the file.
// Options.ZeroBasedStart subtracts one from every start; end is unchanged,
// which yields half-open 0-based intervals.
//
// # Errors
//
// Parsing stops at the first problem and returns no result:
//   - errors.ErrorTypeMalformedRecord: fewer than nine fields, or an
//     attribute segment without a value
//   - errors.ErrorTypeNumericParse: start or end is not an unsigned integer
//   - errors.ErrorTypeIO: the line source failed
//
// Every error carries the 1-based line number in its "line" detail.
//
// Records of features rejected by AcceptedFeatures, tag attributes beyond
// the sixth, and suppressed gene/transcript keys are not errors; they are
// counted in Result.Stats.
package gtf
