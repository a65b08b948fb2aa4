package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds the Prometheus metrics of batch runs.
type Metrics struct {
	reg *prometheus.Registry

	filesTotal      *prometheus.CounterVec
	rowsTotal       prometheus.Counter
	deletedTotal    prometheus.Counter
	inputBytes      prometheus.Counter
	outputBytes     prometheus.Counter
	fileDuration    prometheus.Histogram
	lastRunFinished prometheus.Gauge
}

// NewMetrics creates the metrics on a registry of their own.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,

		filesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbc_files_total",
				Help: "Total number of converted files",
			},
			[]string{"status"},
		),
		rowsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dbc_rows_total",
			Help: "Total number of rows written",
		}),
		deletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dbc_deleted_records_total",
			Help: "Total number of deleted records seen",
		}),
		inputBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "dbc_input_bytes_total",
			Help: "Total size of the compressed input files in bytes",
		}),
		outputBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "dbc_output_bytes_total",
			Help: "Total size of the written output in bytes",
		}),
		fileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dbc_file_duration_seconds",
			Help:    "Conversion duration per file in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		lastRunFinished: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dbc_last_run_finished_timestamp_seconds",
			Help: "Unix time the last batch run finished",
		}),
	}
}

// Record records the outcome of one file.
func (m *Metrics) Record(res Result) {
	status := statusSuccess
	if res.Err != nil {
		status = statusError
	}
	m.filesTotal.WithLabelValues(status).Inc()
	m.rowsTotal.Add(float64(res.Stats.Rows))
	m.deletedTotal.Add(float64(res.Stats.Deleted))
	m.inputBytes.Add(float64(res.Stats.InputBytes))
	m.outputBytes.Add(float64(res.Stats.OutputBytes))
	m.fileDuration.Observe(res.Duration.Seconds())
}

func (m *Metrics) finishRun() {
	m.lastRunFinished.SetToCurrentTime()
}

// WriteTextfile writes the metrics in the text format, for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
