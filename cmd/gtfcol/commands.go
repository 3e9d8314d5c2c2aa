package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ajitpratap0/gtfcol/internal/pipeline"
	"github.com/ajitpratap0/gtfcol/pkg/config"
	"github.com/ajitpratap0/gtfcol/pkg/errors"
	"github.com/ajitpratap0/gtfcol/pkg/formats"
	"github.com/ajitpratap0/gtfcol/pkg/logger"
	"github.com/ajitpratap0/gtfcol/pkg/metrics"
	"github.com/ajitpratap0/gtfcol/pkg/observability"
	"github.com/ajitpratap0/gtfcol/pkg/source"
)

// globalFlags are shared by every command that runs a pipeline
type globalFlags struct {
	configFile  string
	logLevel    string
	logEncoding string
	metricsFile string
	trace       bool
	timeout     time.Duration
	cpuProfile  string
	memProfile  string
}

// parseFlags mirror the config keys they override
type parseFlags struct {
	features           []string
	zeroBased          bool
	retainSourceFrame  bool
	compression        string
	memoryMap          bool
	s3Region           string
	s3Endpoint         string
	s3Concurrency      int
	gcsCredentials     string
	gcsEndpoint        string
	format             string
	outDir             string
	parquetCompression string
	workers            int
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "gtfcol",
		Short: "gtfcol - columnar GTF annotation parser",
		Long: `gtfcol parses GTF gene annotation files into one columnar table per
feature type (gene, transcript, exon, ...). Repeated values are dictionary
encoded, attribute keys become columns, and tables can be written as Arrow,
Parquet, Avro or JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configFile, "config", "c", "", "Path to a YAML configuration file")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&g.logEncoding, "log-encoding", "", "Log encoding (json, console)")
	pf.StringVar(&g.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when the run ends")
	pf.BoolVar(&g.trace, "trace", false, "Export OpenTelemetry spans to stderr")
	pf.DurationVar(&g.timeout, "timeout", 0, "Abort the run after this long (0 disables)")
	pf.StringVar(&g.cpuProfile, "cpuprofile", "", "Write a CPU profile to this file")
	pf.StringVar(&g.memProfile, "memprofile", "", "Write a heap profile to this file when the run ends")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gtfcol v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newParseCmd(g, stdin), newInspectCmd(g, stdin))
	return root
}

func newParseCmd(g *globalFlags, stdin io.Reader) *cobra.Command {
	f := &parseFlags{}
	cmd := &cobra.Command{
		Use:   "parse [flags] INPUT...",
		Short: "Parse GTF inputs and write one file per feature table",
		Long: `Parse GTF inputs and write one file per feature table.

Inputs may be local paths, file:// URIs, "-" for stdin, s3://bucket/key or
gs://bucket/object. gzip, zstd, lz4 and snappy input is detected
automatically. A JSON report per input is printed to stdout. Tables are
written as Arrow unless a format is set by flag, config or
GTFCOL_OUTPUT_FORMAT; format none only reports.

Example:
  gtfcol parse --features gene,transcript --format parquet --out-dir tables Homo_sapiens.GRCh38.110.gtf.gz`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, g, f)
			if err != nil {
				return err
			}
			if cfg.Output.Format == "" {
				cfg.Output.Format = string(formats.Arrow)
			}
			reports, err := runPipeline(cmd.Context(), cfg, g, stdin, args)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reports)
		},
	}
	addParseFlags(cmd.Flags(), f, true)
	return cmd
}

func newInspectCmd(g *globalFlags, stdin io.Reader) *cobra.Command {
	f := &parseFlags{}
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect [flags] INPUT...",
		Short: "Parse GTF inputs and describe the resulting tables",
		Long: `Parse GTF inputs without writing anything and print, per feature table,
the row count, estimated memory and every column with its kind and
dictionary size.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, g, f)
			if err != nil {
				return err
			}
			cfg.Output.Format = string(formats.None)
			reports, err := runPipeline(cmd.Context(), cfg, g, stdin, args)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			return printReports(cmd.OutOrStdout(), reports)
		},
	}
	addParseFlags(cmd.Flags(), f, false)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print reports as JSON")
	return cmd
}

func addParseFlags(fs *pflag.FlagSet, f *parseFlags, output bool) {
	fs.StringSliceVarP(&f.features, "features", "f", nil, "Feature types to keep (default all)")
	fs.BoolVar(&f.zeroBased, "zero-based", false, "Store start coordinates zero-based")
	fs.BoolVar(&f.retainSourceFrame, "retain-source-frame", false, "Keep the source and frame fields as columns")
	fs.StringVar(&f.compression, "compression", "", "Input compression (auto, none, gzip, zstd, lz4, snappy)")
	fs.BoolVar(&f.memoryMap, "mmap", false, "Read local inputs through a memory map")
	fs.StringVar(&f.s3Region, "s3-region", "", "AWS region for s3:// inputs")
	fs.StringVar(&f.s3Endpoint, "s3-endpoint", "", "Endpoint of an S3-compatible service")
	fs.IntVar(&f.s3Concurrency, "s3-concurrency", 0, "Download s3:// inputs in this many parallel parts")
	fs.StringVar(&f.gcsCredentials, "gcs-credentials", "", "Service account key file for gs:// inputs")
	fs.StringVar(&f.gcsEndpoint, "gcs-endpoint", "", "Endpoint of a GCS emulator")
	fs.IntVarP(&f.workers, "workers", "w", 0, "Inputs processed in parallel (default number of CPUs)")
	if output {
		fs.StringVar(&f.format, "format", "", "Output format (arrow, parquet, avro, json, none)")
		fs.StringVarP(&f.outDir, "out-dir", "o", "", "Directory receiving output files")
		fs.StringVar(&f.parquetCompression, "parquet-compression", "", "Parquet codec (snappy, zstd, gzip, brotli, lz4, none)")
	}
}

// resolveConfig layers defaults, the config file, GTFCOL_* variables and
// explicitly set flags, in that order
func resolveConfig(cmd *cobra.Command, g *globalFlags, f *parseFlags) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(g.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("features", func() { cfg.Parse.AcceptedFeatures = f.features })
	set("zero-based", func() { cfg.Parse.ZeroBasedStart = f.zeroBased })
	set("retain-source-frame", func() { cfg.Parse.RetainSourceFrame = f.retainSourceFrame })
	set("compression", func() { cfg.Input.Compression = f.compression })
	set("mmap", func() { cfg.Input.MemoryMap = f.memoryMap })
	set("s3-region", func() { cfg.Input.S3Region = f.s3Region })
	set("s3-endpoint", func() { cfg.Input.S3Endpoint = f.s3Endpoint })
	set("s3-concurrency", func() { cfg.Input.S3Concurrency = f.s3Concurrency })
	set("gcs-credentials", func() { cfg.Input.GCSCredentialsFile = f.gcsCredentials })
	set("gcs-endpoint", func() { cfg.Input.GCSEndpoint = f.gcsEndpoint })
	set("workers", func() { cfg.Workers = f.workers })
	set("format", func() { cfg.Output.Format = f.format })
	set("out-dir", func() { cfg.Output.Dir = f.outDir })
	set("parquet-compression", func() { cfg.Output.ParquetCompression = f.parquetCompression })
	set("log-level", func() { cfg.Logging.Level = g.logLevel })
	set("log-encoding", func() { cfg.Logging.Encoding = g.logEncoding })
	set("metrics-file", func() {
		cfg.Metrics.Enabled = g.metricsFile != ""
		cfg.Metrics.TextfilePath = g.metricsFile
	})
	set("trace", func() { cfg.Tracing.Enabled = g.trace })

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPipeline(ctx context.Context, cfg *config.Config, g *globalFlags, stdin io.Reader, inputs []string) ([]*pipeline.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if g.cpuProfile != "" {
		stop, err := startCPUProfile(g.cpuProfile)
		if err != nil {
			return nil, err
		}
		defer stop()
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Encoding:    cfg.Logging.Encoding,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create logger")
	}
	defer func() { _ = log.Sync() }()

	ctx = context.WithValue(ctx, logger.RunIDKey, uuid.NewString())
	ctx = context.WithValue(ctx, logger.FormatKey, cfg.Output.Format)
	runLog := logger.WithContext(ctx, log)

	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: version,
			SamplingRate:   cfg.Tracing.SamplingRate,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize tracing")
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				runLog.Warn("failed to flush spans", zap.Error(err))
			}
		}()
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	format, _ := formats.ParseFormat(cfg.Output.Format)
	parquetCompression, _ := formats.ParseParquetCompression(cfg.Output.ParquetCompression)
	writer := formats.DefaultWriterConfig(format)
	writer.ParquetCompression = parquetCompression

	sourceOpts := cfg.SourceOptions()
	sourceOpts.Stdin = stdin

	p := pipeline.New(&pipeline.Config{
		Source:  sourceOpts,
		Parse:   cfg.ParseOptions(),
		Writer:  writer,
		OutDir:  cfg.Output.Dir,
		Workers: cfg.Workers,
	}, log, collector)

	reports, runErr := p.Run(ctx, inputs)

	if collector != nil {
		if err := collector.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			runLog.Warn("failed to write metrics", zap.String("path", cfg.Metrics.TextfilePath), zap.Error(err))
		}
	}
	if g.memProfile != "" {
		if err := writeHeapProfile(g.memProfile); err != nil {
			runLog.Warn("failed to write heap profile", zap.Error(err))
		}
	}
	return reports, runErr
}

func printReports(w io.Writer, reports []*pipeline.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t(%s, %d lines, %d records, %d filtered)\n",
			inputName(r.Input), r.Compression, r.Stats.Lines, r.Stats.Records, r.Stats.Filtered)
		for _, t := range r.Tables {
			fmt.Fprintf(tw, "  %s\t%d rows\t%d bytes\t%.1f bytes/row\n", t.Feature, t.Rows, t.MemoryBytes, t.MemoryPerRecord)
			for _, c := range t.Columns {
				if c.Cardinality > 0 {
					fmt.Fprintf(tw, "    %s\t%s\t%d categories\n", c.Name, c.Kind, c.Cardinality)
				} else {
					fmt.Fprintf(tw, "    %s\t%s\t\n", c.Name, c.Kind)
				}
			}
		}
	}
	return tw.Flush()
}

// inputName renders the stdin URI the way output files name it
func inputName(input string) string {
	if input == source.Stdin {
		return "stdin"
	}
	return input
}

func startCPUProfile(path string) (func(), error) {
	f, err := os.Create(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create CPU profile").WithDetail("path", path)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to start CPU profile")
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return err
	}
	defer f.Close()

	runtime.GC() // Get up-to-date statistics
	return pprof.WriteHeapProfile(f)
}
