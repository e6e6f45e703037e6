package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kitchensink_events_total",
		Help: "Total webhook events routed, by event kind.",
	}, []string{"kind"})
	EventFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kitchensink_event_failures_total",
		Help: "Total webhook events whose handler failed, by event kind.",
	}, []string{"kind"})

	TranscodeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kitchensink_transcode_duration_seconds",
		Help:    "Wall time of preview conversions, by media type.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"media"})

	MediaEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kitchensink_media_evicted_total",
		Help: "Total downloaded files removed by the retention sweep.",
	})
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EventsTotal, EventFailures,
			TranscodeDuration,
			MediaEvicted,
		)
	})
}
