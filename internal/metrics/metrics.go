// Package metrics holds the per-run counters of a roster conversion.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ewroster"

// Event kinds used as the "kind" label.
const (
	KindFlight = "flight"
	KindDuty   = "duty"
	KindOff    = "off"
)

// Run is a set of counters registered on a private registry, so several
// sessions in one process never share state.
type Run struct {
	reg *prometheus.Registry

	Events         *prometheus.CounterVec
	Duplicates     prometheus.Counter
	Unrecognized   prometheus.Counter
	PagesProcessed prometheus.Counter
	PagesSkipped   prometheus.Counter
	InvalidDays    prometheus.Counter
	EventErrors    prometheus.Counter
	UnknownZones   prometheus.Counter
}

func New() *Run {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Run{
		reg: reg,
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Events added to the calendar, by kind.",
		}, []string{"kind"}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_duplicate_total",
			Help:      "Events dropped because an identical one was already emitted.",
		}),
		Unrecognized: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_unrecognized_total",
			Help:      "Column lines matching no rule.",
		}),
		PagesProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_processed_total",
			Help:      "Pages whose columns were parsed.",
		}),
		PagesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_skipped_total",
			Help:      "Pages skipped because of a header marker.",
		}),
		InvalidDays: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "day_markers_invalid_total",
			Help:      "Day markers that did not form a valid date.",
		}),
		EventErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_errors_total",
			Help:      "Events that failed to build and were skipped.",
		}),
		UnknownZones: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timezones_unknown_total",
			Help:      "Resolved timezone identifiers unknown to the runtime.",
		}),
	}
}

// WriteTextfile writes all counters in the text exposition format, suitable
// for the node exporter textfile collector.
func (r *Run) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
