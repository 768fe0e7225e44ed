package core

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingest",
		Name:      "rows_total",
		Help:      "Rows processed by entity kind and outcome.",
	}, []string{"kind", "outcome"})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingest",
		Name:      "sessions_total",
		Help:      "Import sessions by requested target.",
	}, []string{"target"})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ingest",
		Name:      "session_duration_seconds",
		Help:      "Wall time of import sessions.",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	suggestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingest",
		Name:      "suggestions_total",
		Help:      "External column suggestion requests by result.",
	}, []string{"result"})

	headerDetectTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingest",
		Name:      "header_detect_total",
		Help:      "Header row detection attempts by result.",
	}, []string{"result"})
)

func recordRows(kind EntityKind, c Counts) {
	k := string(kind)
	add := func(outcome string, n int) {
		if n > 0 {
			rowsTotal.With(prometheus.Labels{"kind": k, "outcome": outcome}).Add(float64(n))
		}
	}
	add("inserted", c.Inserted)
	add("updated", c.Updated)
	add("staged", c.Staged)
	add("errored", c.Errored)
	add("duplicate", c.Duplicates)
}

func recordSession(target string, d time.Duration) {
	if target == "" {
		target = "auto"
	}
	sessionsTotal.WithLabelValues(target).Inc()
	sessionDuration.Observe(d.Seconds())
}

func recordSuggestion(result string) {
	suggestionsTotal.WithLabelValues(result).Inc()
}

func recordHeaderDetect(result string) {
	headerDetectTotal.WithLabelValues(result).Inc()
}

// WriteMetricsTextfile writes the default registry in the node_exporter
// textfile format.
func WriteMetricsTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
