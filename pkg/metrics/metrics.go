// Package metrics collects Prometheus metrics for gtfcol runs.
//
// gtfcol is a batch tool, so metrics are not scraped; a Collector keeps
// its metrics on a private registry and WriteTextfile dumps them in the
// text exposition format for the node_exporter textfile collector.
//
// # Basic Usage
//
//	collector := metrics.NewCollector()
//
//	timer := metrics.NewTimer("parse")
//	result, err := gtf.ParseReader(r, opts)
//	collector.ObserveParse(&result.Stats, timer.Stop(), err)
//
//	if err := collector.WriteTextfile("/var/lib/node_exporter/gtfcol.prom"); err != nil {
//	    return err
//	}
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/gtfcol/pkg/gtf"
)

// Namespace prefixes every metric name
const Namespace = "gtfcol"

// Collector holds the metrics of one run. All methods are safe for
// concurrent use.
type Collector struct {
	registry *prometheus.Registry

	inputs              *prometheus.CounterVec
	bytesRead           prometheus.Counter
	linesRead           prometheus.Counter
	linesSkipped        prometheus.Counter
	recordsParsed       *prometheus.CounterVec
	recordsFiltered     prometheus.Counter
	tagsDropped         prometheus.Counter
	suppressedKeys      prometheus.Counter
	duplicateAttributes prometheus.Counter
	parseLatency        *prometheus.HistogramVec
	tablesWritten       *prometheus.CounterVec
	bytesWritten        *prometheus.CounterVec
	writeLatency        *prometheus.HistogramVec
	tableMemory         *prometheus.GaugeVec
}

var latencyBuckets = []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// NewCollector creates a collector with its own registry, including the Go
// runtime collector
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		inputs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "inputs_total",
			Help:      "Inputs processed, by outcome",
		}, []string{"status"}),
		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "input_bytes_total",
			Help:      "Decompressed bytes read from inputs",
		}),
		linesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "lines_total",
			Help:      "Lines read from inputs",
		}),
		linesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "lines_skipped_total",
			Help:      "Blank and comment lines skipped",
		}),
		recordsParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_parsed_total",
			Help:      "Records appended to a feature table",
		}, []string{"feature"}),
		recordsFiltered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_filtered_total",
			Help:      "Records dropped because their feature was not accepted",
		}),
		tagsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tags_dropped_total",
			Help:      "tag attributes dropped on non-transcripts or past the tag limit",
		}),
		suppressedKeys: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "suppressed_keys_total",
			Help:      "gene and transcript keys suppressed on other feature types",
		}),
		duplicateAttributes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "duplicate_attributes_total",
			Help:      "Repeated keys within one record that were ignored",
		}),
		parseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time to parse one input",
			Buckets:   latencyBuckets,
		}, []string{"status"}),
		tablesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tables_written_total",
			Help:      "Feature tables written, by format",
		}, []string{"format"}),
		bytesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "output_bytes_total",
			Help:      "Bytes written to output files, by format",
		}, []string{"format"}),
		writeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "write_duration_seconds",
			Help:      "Time to write one feature table",
			Buckets:   latencyBuckets,
		}, []string{"format"}),
		tableMemory: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "table_memory_bytes",
			Help:      "Estimated memory held by the most recent table of each feature",
		}, []string{"feature"}),
	}
}

// Registry returns the registry the collector's metrics live on
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveParse records one parse. stats may be nil when the parse failed.
func (c *Collector) ObserveParse(stats *gtf.Stats, d time.Duration, err error) {
	status := statusLabel(err)
	c.inputs.WithLabelValues(status).Inc()
	c.parseLatency.WithLabelValues(status).Observe(d.Seconds())
	if stats == nil {
		return
	}

	c.linesRead.Add(float64(stats.Lines))
	c.linesSkipped.Add(float64(stats.Skipped))
	c.recordsFiltered.Add(float64(stats.Filtered))
	c.tagsDropped.Add(float64(stats.TagsDropped))
	c.suppressedKeys.Add(float64(stats.SuppressedKeys))
	c.duplicateAttributes.Add(float64(stats.DuplicateAttributes))
	for feature, rows := range stats.RowsByFeature {
		c.recordsParsed.WithLabelValues(feature).Add(float64(rows))
	}
}

// AddBytesRead records decompressed input bytes
func (c *Collector) AddBytesRead(n int64) {
	c.bytesRead.Add(float64(n))
}

// ObserveTableMemory records the estimated size of a feature table
func (c *Collector) ObserveTableMemory(feature string, bytes int64) {
	c.tableMemory.WithLabelValues(feature).Set(float64(bytes))
}

// ObserveWrite records one written table
func (c *Collector) ObserveWrite(format string, bytes int64, d time.Duration) {
	c.tablesWritten.WithLabelValues(format).Inc()
	c.bytesWritten.WithLabelValues(format).Add(float64(bytes))
	c.writeLatency.WithLabelValues(format).Observe(d.Seconds())
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Timer measures the duration of one operation
type Timer struct {
	name  string
	start time.Time
}

// NewTimer starts a timer
func NewTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Name returns the operation name the timer was started for
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the time elapsed since the timer started
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
