// Package metrics registers the collector's Prometheus instrumentation on the
// default registry, exposed through the ops endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "histories_collector_events_received_total",
		Help: "Group message events received from the event source",
	})

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "histories_collector_events_dropped_total",
			Help: "Group message events dropped before archiving",
		},
		[]string{"reason"},
	)

	DocumentsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "histories_collector_documents_written_total",
		Help: "Documents successfully created in the message store",
	})

	WriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "histories_collector_write_failures_total",
		Help: "Document writes rejected or failed",
	})

	AttachmentProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "histories_collector_attachment_probes_total",
			Help: "Attachment size probes by outcome",
		},
		[]string{"outcome"},
	)

	AttachmentFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "histories_collector_attachment_fetches_total",
			Help: "Attachment spool fetches by outcome",
		},
		[]string{"outcome"},
	)

	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "histories_collector_parse_duration_seconds",
		Help:    "Time spent parsing one message chain including attachment handling",
		Buckets: prometheus.DefBuckets,
	})
)
