package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "shootcast"

// Collector holds the metrics of one run on its own registry.
type Collector struct {
	Registry *prometheus.Registry

	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
	LocationsReported       prometheus.Gauge
	LastRunTimestamp        prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		Registry: reg,

		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Upstream fetches by source and result",
			},
			[]string{"source", "result"},
		),

		UpstreamRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Upstream fetch duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"source"},
		),

		LocationsReported: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "locations_reported",
				Help:      "Locations written to the last artifact",
			},
		),

		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last artifact was written",
			},
		),
	}
}

// ObserveUpstream records one fetch from source.
func (c *Collector) ObserveUpstream(source string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.UpstreamRequestsTotal.WithLabelValues(source, result).Inc()
	c.UpstreamRequestDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (c *Collector) RecordRun(locations int, at time.Time) {
	c.LocationsReported.Set(float64(locations))
	c.LastRunTimestamp.Set(float64(at.Unix()))
}

// Push sends the registry to a Pushgateway under job.
func (c *Collector) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(c.Registry).PushContext(ctx)
}
