package blocks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blocksAssembledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sidecar",
			Subsystem: "blocks",
			Name:      "assembled_total",
			Help:      "Total number of blocks fully assembled",
		},
	)
	feeDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sidecar",
			Subsystem: "blocks",
			Name:      "fee_degraded_total",
			Help:      "Total number of extrinsics whose partial fee was unavailable",
		},
	)
)
