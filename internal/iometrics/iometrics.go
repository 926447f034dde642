// Package iometrics collects Prometheus metrics of a backbone build.
//
// Metrics live in their own registry. A build is a batch job without an
// HTTP endpoint, so the registry is written to a file in the text
// exposition format, which node_exporter can pick up with its textfile
// collector.
package iometrics

import (
	"strconv"
	"time"

	"github.com/gnames/gnnub/pkg/ent/issue"
	"github.com/gnames/gnnub/pkg/match"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gnnub"

// Metrics of one build. All methods are safe for concurrent use.
type Metrics struct {
	reg *prometheus.Registry

	// MatchesTotal counts match outcomes.
	// Labels: kind (no_match, matched, ambiguous), weak (true, false)
	MatchesTotal *prometheus.CounterVec

	// IssuesTotal counts issues recorded on backbone nodes.
	// Labels: issue
	IssuesTotal *prometheus.CounterVec

	// ImportsTotal counts dataset imports.
	// Labels: status (ok, failed)
	ImportsTotal *prometheus.CounterVec

	// ImportDurationSeconds measures reading and ingesting of a dataset.
	ImportDurationSeconds prometheus.Histogram

	// BackboneNodes is the size of the backbone after the last
	// finalization.
	BackboneNodes prometheus.Gauge
}

// New creates Metrics registered in a new registry.
func New() *Metrics {
	res := &Metrics{
		reg: prometheus.NewRegistry(),
		MatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "matches_total",
				Help:      "Match outcomes of source usages.",
			},
			[]string{"kind", "weak"},
		),
		IssuesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "issues_total",
				Help:      "Issues recorded on backbone usages.",
			},
			[]string{"issue"},
		),
		ImportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Dataset imports by status.",
			},
			[]string{"status"},
		),
		ImportDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_duration_seconds",
				Help:      "Duration of a dataset import.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		BackboneNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backbone_nodes",
				Help:      "Number of backbone usages.",
			},
		),
	}
	res.reg.MustRegister(
		res.MatchesTotal,
		res.IssuesTotal,
		res.ImportsTotal,
		res.ImportDurationSeconds,
		res.BackboneNodes,
	)
	return res
}

// ObserveMatch implements ingest.Observer.
func (m *Metrics) ObserveMatch(kind match.Kind, weak bool) {
	m.MatchesTotal.WithLabelValues(kind.String(), strconv.FormatBool(weak)).Inc()
}

// ObserveIssue implements ingest.Observer.
func (m *Metrics) ObserveIssue(iss issue.Issue) {
	m.IssuesTotal.WithLabelValues(iss.String()).Inc()
}

// ObserveImport records a finished dataset import.
func (m *Metrics) ObserveImport(d time.Duration, err error) {
	st := "ok"
	if err != nil {
		st = "failed"
	}
	m.ImportsTotal.WithLabelValues(st).Inc()
	m.ImportDurationSeconds.Observe(d.Seconds())
}

// SetNodes records the backbone size.
func (m *Metrics) SetNodes(n int) {
	m.BackboneNodes.Set(float64(n))
}

// Registry gives access to collected metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// WriteToTextfile writes all metrics to path atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return WriteError(path, err)
	}
	return nil
}
