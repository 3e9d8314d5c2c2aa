// Package pipeline runs gtfcol over a set of inputs. Each input is opened
// through the source layer, parsed into per-feature tables and optionally
// written out, one file per feature. Inputs are processed concurrently up
// to a worker limit; the first failure cancels the rest.
//
// # Basic Usage
//
//	p := pipeline.New(&pipeline.Config{
//	    Parse:   gtf.Options{AcceptedFeatures: []string{"gene"}},
//	    Writer:  formats.DefaultWriterConfig(formats.Parquet),
//	    OutDir:  "tables",
//	    Workers: 4,
//	}, logger, collector)
//
//	reports, err := p.Run(ctx, []string{"a.gtf.gz", "s3://bucket/b.gtf"})
package pipeline

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/gtfcol/pkg/errors"
	"github.com/ajitpratap0/gtfcol/pkg/formats"
	"github.com/ajitpratap0/gtfcol/pkg/gtf"
	"github.com/ajitpratap0/gtfcol/pkg/logger"
	"github.com/ajitpratap0/gtfcol/pkg/metrics"
	"github.com/ajitpratap0/gtfcol/pkg/observability"
	"github.com/ajitpratap0/gtfcol/pkg/source"
)

// Config controls a pipeline run
type Config struct {
	Source source.Options
	Parse  gtf.Options
	// Writer selects the output format; nil or formats.None writes nothing
	Writer *formats.WriterConfig
	// OutDir receives <input base>.<feature><ext> for every table
	OutDir string
	// Workers bounds how many inputs are processed at once
	Workers int
	// KeepTables keeps parsed tables on each Report; otherwise they are
	// released once summarized and written
	KeepTables bool
}

// Report describes what happened to one input
type Report struct {
	Input       string                 `json:"input"`
	Compression source.Compression     `json:"compression"`
	BytesRead   int64                  `json:"bytes_read"`
	Stats       gtf.Stats              `json:"stats"`
	Tables      []formats.TableSummary `json:"tables"`
	Outputs     []string               `json:"outputs,omitempty"`
	Duration    time.Duration          `json:"duration_ns"`

	// Result holds the parsed tables when Config.KeepTables is set
	Result *gtf.Result `json:"-"`
}

// Pipeline processes GTF inputs
type Pipeline struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New creates a pipeline. A nil logger discards logs and a nil collector
// records no metrics.
func New(cfg *Config, log *zap.Logger, collector *metrics.Collector) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pipeline{logger: log, metrics: collector}
	if cfg != nil {
		p.cfg = *cfg
	}
	if p.cfg.Workers <= 0 {
		p.cfg.Workers = 1
	}
	return p
}

// Run processes inputs and returns one report per input in input order. On
// failure the first error is returned and no reports.
func (p *Pipeline) Run(ctx context.Context, inputs []string) ([]*Report, error) {
	if len(inputs) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "no inputs given")
	}
	if p.writing() {
		if err := checkOutputNames(inputs); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(p.cfg.OutDir, 0755); err != nil { //nolint:gosec
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
				WithDetail("dir", p.cfg.OutDir)
		}
	}

	ctx, span := observability.StartSpan(ctx, "gtfcol.run")
	span.SetAttribute("gtfcol.inputs", len(inputs))
	span.SetAttribute("gtfcol.workers", p.cfg.Workers)

	log := logger.WithContext(ctx, p.logger)
	start := time.Now()
	log.Info("starting run",
		zap.Int("inputs", len(inputs)),
		zap.Int("workers", p.cfg.Workers),
		zap.String("format", string(p.format())))

	reports := make([]*Report, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			report, err := p.Process(gctx, input)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}

	err := g.Wait()
	span.Finish(err)
	if err != nil {
		log.Error("run failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	log.Info("run completed",
		zap.Int("inputs", len(inputs)),
		zap.Duration("duration", time.Since(start)))
	return reports, nil
}

// Process opens, parses and writes a single input
func (p *Pipeline) Process(ctx context.Context, input string) (*Report, error) {
	ctx = context.WithValue(ctx, logger.InputKey, input)
	log := logger.WithContext(ctx, p.logger)
	ctx, span := observability.StartSpan(ctx, "gtfcol.input")
	span.SetAttribute("gtfcol.input", input)

	report, err := p.process(ctx, input, log)
	span.Finish(err)
	if err != nil {
		log.Error("input failed", zap.Error(err))
		return nil, withInput(err, input)
	}

	span.SetAttribute("gtfcol.records", report.Stats.Records)
	log.Info("input completed",
		zap.Int64("records", report.Stats.Records),
		zap.Int64("filtered", report.Stats.Filtered),
		zap.Int("tables", len(report.Tables)),
		zap.Int64("bytes_read", report.BytesRead),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (p *Pipeline) process(ctx context.Context, input string, log *zap.Logger) (*Report, error) {
	start := time.Now()

	rc, compression, err := source.OpenDetect(ctx, input, p.cfg.Source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	log.Debug("input opened", zap.String("compression", string(compression)))

	reader := &meteredReader{ctx: ctx, r: rc}
	timer := metrics.NewTimer("parse")
	var result *gtf.Result
	err = observability.Trace(ctx, "gtf.parse", func(ctx context.Context, span *observability.Span) error {
		var perr error
		result, perr = gtf.ParseReader(reader, p.cfg.Parse)
		if perr == nil {
			span.SetAttribute("gtf.lines", result.Stats.Lines)
			span.SetAttribute("gtf.features", len(result.Tables))
		}
		return perr
	})
	bytesRead := reader.n
	if p.metrics != nil {
		p.metrics.AddBytesRead(bytesRead)
		var stats *gtf.Stats
		if result != nil {
			stats = &result.Stats
		}
		p.metrics.ObserveParse(stats, timer.Stop(), err)
	}
	if err != nil {
		return nil, err
	}

	if result.Stats.TagsDropped > 0 || result.Stats.DuplicateAttributes > 0 {
		log.Debug("attributes dropped",
			zap.Int64("tags_dropped", result.Stats.TagsDropped),
			zap.Int64("duplicate_attributes", result.Stats.DuplicateAttributes))
	}

	report := &Report{
		Input:       input,
		Compression: compression,
		BytesRead:   bytesRead,
		Stats:       result.Stats,
		Tables:      make([]formats.TableSummary, 0, len(result.Tables)),
	}

	for _, feature := range result.Features() {
		table := result.Tables[feature]
		report.Tables = append(report.Tables, formats.Summarize(feature, table))
		if p.metrics != nil {
			p.metrics.ObserveTableMemory(feature, table.MemoryUsage())
		}

		if !p.writing() {
			continue
		}
		out, err := p.writeTable(ctx, input, feature, result, log)
		if err != nil {
			return nil, err
		}
		report.Outputs = append(report.Outputs, out)
	}

	if p.cfg.KeepTables {
		report.Result = result
	}
	report.Duration = time.Since(start)
	return report, nil
}

func (p *Pipeline) writeTable(ctx context.Context, input, feature string, result *gtf.Result, log *zap.Logger) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeIO, "run cancelled")
	}

	out := OutputPath(p.cfg.OutDir, input, feature, p.format())
	timer := metrics.NewTimer("write")

	var written int64
	err := observability.Trace(ctx, "gtf.write", func(ctx context.Context, span *observability.Span) error {
		span.SetAttribute("gtf.feature", feature)
		span.SetAttribute("gtf.output", out)

		f, err := os.Create(out) //nolint:gosec // G304: output path built from configured dir
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to create output file").WithDetail("path", out)
		}
		written, err = formats.WriteTable(f, feature, result.Tables[feature], p.cfg.Writer)
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = errors.Wrap(closeErr, errors.ErrorTypeFile, "failed to close output file").WithDetail("path", out)
		}
		if err != nil {
			_ = os.Remove(out)
		}
		return err
	})
	if err != nil {
		return "", err
	}

	if p.metrics != nil {
		p.metrics.ObserveWrite(string(p.format()), written, timer.Stop())
	}
	log.Debug("table written",
		zap.String("feature", feature),
		zap.String("path", out),
		zap.Int64("bytes", written))
	return out, nil
}

func (p *Pipeline) format() formats.Format {
	if p.cfg.Writer == nil || p.cfg.Writer.Format == "" {
		return formats.None
	}
	return p.cfg.Writer.Format
}

func (p *Pipeline) writing() bool {
	return p.format() != formats.None
}

// inputSuffixes are stripped from input names, innermost last
var inputSuffixes = []string{".gz", ".bgz", ".zst", ".lz4", ".sz", ".snappy", ".gtf", ".gff", ".txt"}

// BaseName derives the output file stem for input
func BaseName(input string) string {
	if input == source.Stdin {
		return "stdin"
	}
	name := input
	if loc, err := source.ParseURI(input); err == nil {
		if loc.Key != "" {
			name = loc.Key
		} else if loc.Path != "" {
			name = loc.Path
		}
	}
	name = path.Base(filepath.ToSlash(name))
	for _, suffix := range inputSuffixes {
		name = strings.TrimSuffix(name, suffix)
	}
	if name == "" || name == "." || name == "/" {
		return "input"
	}
	return name
}

// OutputPath returns the file a table is written to
func OutputPath(dir, input, feature string, format formats.Format) string {
	return filepath.Join(dir, BaseName(input)+"."+safeFileName(feature)+format.Extension())
}

func safeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 || r == ':' {
			return '_'
		}
		return r
	}, s)
}

// checkOutputNames rejects input sets whose outputs would overwrite each other
func checkOutputNames(inputs []string) error {
	seen := make(map[string]string, len(inputs))
	for _, input := range inputs {
		base := BaseName(input)
		if prev, ok := seen[base]; ok {
			return errors.Newf(errors.ErrorTypeConfig, "inputs %q and %q share output name %q", prev, input, base)
		}
		seen[base] = input
	}
	return nil
}

func withInput(err error, input string) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithDetail("input", input)
	}
	return errors.Wrap(err, errors.ErrorTypeInternal, "input failed").WithDetail("input", input)
}

// meteredReader counts bytes and stops reading once ctx is done
type meteredReader struct {
	ctx context.Context
	r   io.Reader
	n   int64
}

func (m *meteredReader) Read(p []byte) (int, error) {
	if err := m.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := m.r.Read(p)
	m.n += int64(n)
	return n, err
}
