// Package config provides the configuration for gtfcol runs.
//
// A single Config structure covers every stage of a run:
//
//   - Input: how sources are opened and decompressed
//   - Parse: which features are kept and how coordinates are stored
//   - Output: which format tables are written in and where
//   - Logging, Metrics, Tracing: observability settings
//
// # Loading
//
// LoadFile reads a YAML file over Default and validates the result. ${VAR}
// references in the file are replaced with environment values before
// parsing:
//
//	cfg, err := config.LoadFile("gtfcol.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// LoadWithEnv additionally lets GTFCOL_* environment variables override any
// key. Nested keys join with an underscore, so output.format is read from
// GTFCOL_OUTPUT_FORMAT:
//
//	// GTFCOL_OUTPUT_FORMAT=parquet GTFCOL_WORKERS=2 gtfcol parse ...
//	cfg, err := config.LoadWithEnv("")
//
// # Example Configuration
//
//	input:
//	  compression: auto
//	  memory_map: true
//	  s3_region: ${AWS_REGION}
//
//	parse:
//	  accepted_features: [gene, transcript, exon]
//	  zero_based_start: false
//	  retain_source_frame: false
//
//	output:
//	  format: parquet
//	  dir: ./tables
//	  parquet_compression: zstd
//
//	logging:
//	  level: info
//	  encoding: json
//
//	workers: 4
package config
