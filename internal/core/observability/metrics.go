package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Coverage outcomes.
const (
	OutcomeDownloaded = "downloaded"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
	OutcomeEmitted    = "emitted"
)

var (
	coveragesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wcs_coverages_total",
			Help: "Coverages processed by command and outcome.",
		},
		[]string{"command", "outcome"},
	)

	downloadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wcs_download_bytes_total",
			Help: "Bytes written to coverage files.",
		},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wcs_upstream_latency_seconds",
			Help:    "Latency of WCS requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
		},
		[]string{"request"},
	)
)

// Init registers the collectors with reg. Collectors already present are kept.
func Init(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{coveragesTotal, downloadBytesTotal, upstreamLatencySeconds, cacheOpsTotal} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveUpstreamLatency(request string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(request).Observe(durationSeconds)
}

func IncCoverage(command, outcome string) {
	coveragesTotal.WithLabelValues(command, outcome).Inc()
}

func AddDownloadBytes(n int64) {
	if n > 0 {
		downloadBytesTotal.Add(float64(n))
	}
}

var cacheOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wcs_cache_ops_total",
		Help: "Capabilities cache operations by op and result.",
	},
	[]string{"op", "result"},
)

// ObserveCacheOp counts a cache operation; result is "hit", "miss", "ok" or "error".
func ObserveCacheOp(op, result string) {
	cacheOpsTotal.WithLabelValues(op, result).Inc()
}
