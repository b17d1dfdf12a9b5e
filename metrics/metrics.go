// Package metrics exposes Prometheus counters for ingestion and showcases.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LinksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boomerbox_links_processed_total",
		Help: "Instagram links handled by the ingestion pipeline, by outcome",
	}, []string{"outcome"})

	ItemsPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boomerbox_media_items_posted_total",
		Help: "Media items re-uploaded as attachments",
	})

	MessagesModerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boomerbox_messages_moderated_total",
		Help: "Submission channel messages deleted for carrying no media",
	})

	ResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boomerbox_resolve_duration_seconds",
		Help:    "Duration of cobalt resolution requests",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
	}, []string{"result"})

	Showcases = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boomerbox_showcases_total",
		Help: "Showcase runs, by outcome",
	}, []string{"outcome"})
)
