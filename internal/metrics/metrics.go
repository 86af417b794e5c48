package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ukprayer",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route and status code.",
		},
		[]string{"route", "status"},
	)

	conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ukprayer",
			Name:      "conversions_total",
			Help:      "Count of UTC to local conversions by node kind.",
		},
		[]string{"kind"},
	)

	feedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ukprayer",
			Name:      "feed_events_total",
			Help:      "Count of calendar events emitted in feeds.",
		},
	)

	feedSkippedDays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ukprayer",
			Name:      "feed_skipped_days_total",
			Help:      "Count of feed days skipped because the table has no record for them.",
		},
	)
)

// Register registers metrics with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, conversions, feedEvents, feedSkippedDays)
	})
}

func IncHTTPRequest(route string, status int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func IncConversion(kind string) {
	conversions.WithLabelValues(kind).Inc()
}

func AddFeedEvents(n int) {
	feedEvents.Add(float64(n))
}

func IncFeedSkippedDay() {
	feedSkippedDays.Inc()
}
