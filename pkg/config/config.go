package config

import (
	"runtime"

	"github.com/ajitpratap0/gtfcol/pkg/errors"
	"github.com/ajitpratap0/gtfcol/pkg/formats"
	"github.com/ajitpratap0/gtfcol/pkg/gtf"
	"github.com/ajitpratap0/gtfcol/pkg/source"
)

// Config is the complete configuration of a gtfcol run
type Config struct {
	Input   InputConfig   `yaml:"input" json:"input" mapstructure:"input"`
	Parse   ParseConfig   `yaml:"parse" json:"parse" mapstructure:"parse"`
	Output  OutputConfig  `yaml:"output" json:"output" mapstructure:"output"`
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing" mapstructure:"tracing"`

	// Workers bounds how many inputs are parsed at the same time
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`
}

// InputConfig controls how inputs are opened
type InputConfig struct {
	// Compression is auto, none, gzip, zstd, lz4 or snappy
	Compression string `yaml:"compression" json:"compression" mapstructure:"compression"`
	// MemoryMap reads local files through mmap
	MemoryMap bool `yaml:"memory_map" json:"memory_map" mapstructure:"memory_map"`
	// S3Region overrides the region resolved by the AWS SDK
	S3Region string `yaml:"s3_region" json:"s3_region" mapstructure:"s3_region"`
	// S3Endpoint points s3:// URIs at an S3-compatible service
	S3Endpoint string `yaml:"s3_endpoint" json:"s3_endpoint" mapstructure:"s3_endpoint"`
	// S3Concurrency above 1 downloads s3:// objects in parallel parts
	S3Concurrency int `yaml:"s3_concurrency" json:"s3_concurrency" mapstructure:"s3_concurrency"`
	// GCSCredentialsFile is a service account key for gs:// URIs
	GCSCredentialsFile string `yaml:"gcs_credentials_file" json:"gcs_credentials_file" mapstructure:"gcs_credentials_file"`
	// GCSEndpoint points gs:// URIs at an emulator
	GCSEndpoint string `yaml:"gcs_endpoint" json:"gcs_endpoint" mapstructure:"gcs_endpoint"`
}

// ParseConfig mirrors gtf.Options
type ParseConfig struct {
	AcceptedFeatures  []string `yaml:"accepted_features" json:"accepted_features" mapstructure:"accepted_features"`
	ZeroBasedStart    bool     `yaml:"zero_based_start" json:"zero_based_start" mapstructure:"zero_based_start"`
	RetainSourceFrame bool     `yaml:"retain_source_frame" json:"retain_source_frame" mapstructure:"retain_source_frame"`
}

// OutputConfig controls where parsed tables are written
type OutputConfig struct {
	// Format is none, arrow, parquet, avro or json. Empty leaves the choice
	// to the command: parse writes arrow, inspect writes nothing.
	Format string `yaml:"format" json:"format" mapstructure:"format"`
	// Dir receives one file per input and feature
	Dir string `yaml:"dir" json:"dir" mapstructure:"dir"`
	// ParquetCompression is snappy, zstd, gzip or none
	ParquetCompression string `yaml:"parquet_compression" json:"parquet_compression" mapstructure:"parquet_compression"`
}

// LoggingConfig is passed to logger.New
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level" mapstructure:"level"`
	Encoding    string `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
	Development bool   `yaml:"development" json:"development" mapstructure:"development"`
}

// MetricsConfig controls the prometheus textfile export
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	TextfilePath string `yaml:"textfile_path" json:"textfile_path" mapstructure:"textfile_path"`
}

// TracingConfig controls OpenTelemetry tracing
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	ServiceName  string  `yaml:"service_name" json:"service_name" mapstructure:"service_name"`
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate" mapstructure:"sampling_rate"`
}

// Default returns a configuration that parses every feature with 1-based
// coordinates and writes nothing.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Compression: string(source.CompressionAuto),
		},
		Parse: ParseConfig{
			AcceptedFeatures: []string{},
		},
		Output: OutputConfig{
			Format:             "",
			Dir:                ".",
			ParquetCompression: "snappy",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Tracing: TracingConfig{
			ServiceName:  "gtfcol",
			SamplingRate: 1.0,
		},
		Workers: runtime.NumCPU(),
	}
}

// Validate checks the configuration for values no stage can work with
func (c *Config) Validate() error {
	if _, err := source.ParseCompression(c.Input.Compression); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid input.compression")
	}
	if c.Input.S3Concurrency < 0 {
		return errors.New(errors.ErrorTypeConfig, "input.s3_concurrency must not be negative").
			WithDetail("s3_concurrency", c.Input.S3Concurrency)
	}
	format, err := formats.ParseFormat(c.Output.Format)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid output.format")
	}
	if format != formats.None && c.Output.Dir == "" {
		return errors.New(errors.ErrorTypeConfig, "output.dir is required when output.format is set")
	}
	if _, err := formats.ParseParquetCompression(c.Output.ParquetCompression); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid output.parquet_compression")
	}
	if c.Workers <= 0 {
		return errors.New(errors.ErrorTypeConfig, "workers must be positive").WithDetail("workers", c.Workers)
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errors.New(errors.ErrorTypeConfig, "tracing.sampling_rate must be between 0 and 1").
			WithDetail("sampling_rate", c.Tracing.SamplingRate)
	}
	if c.Metrics.Enabled && c.Metrics.TextfilePath == "" {
		return errors.New(errors.ErrorTypeConfig, "metrics.textfile_path is required when metrics are enabled")
	}
	return nil
}

// ParseOptions converts the parse section into gtf.Options
func (c *Config) ParseOptions() gtf.Options {
	return gtf.Options{
		AcceptedFeatures:  c.Parse.AcceptedFeatures,
		ZeroBasedStart:    c.Parse.ZeroBasedStart,
		RetainSourceFrame: c.Parse.RetainSourceFrame,
	}
}

// SourceOptions converts the input section into source.Options. The
// compression name has already been checked by Validate.
func (c *Config) SourceOptions() source.Options {
	compression, _ := source.ParseCompression(c.Input.Compression)
	return source.Options{
		Compression:        compression,
		MemoryMap:          c.Input.MemoryMap,
		S3Region:           c.Input.S3Region,
		S3Endpoint:         c.Input.S3Endpoint,
		S3Concurrency:      c.Input.S3Concurrency,
		GCSCredentialsFile: c.Input.GCSCredentialsFile,
		GCSEndpoint:        c.Input.GCSEndpoint,
	}
}
