package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sidecar",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests served",
		},
		[]string{"path", "code"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sidecar",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

// requestMetrics observes every request under its route pattern rather
// than its raw URL, keeping the label set bounded.
func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		path := ctx.Path()
		requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(path, strconv.Itoa(ctx.Response().Status)).Inc()
		return err
	}
}
