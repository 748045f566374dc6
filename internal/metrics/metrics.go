// Package metrics 暴露分类相关的 prometheus 指标。
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	classificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intentbot_classifications_total",
		Help: "Classification outcomes by site and confidence tier.",
	}, []string{"site", "tier"})

	handoffsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intentbot_handoffs_total",
		Help: "Human handoffs signalled by the engine.",
	})

	classifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intentbot_classify_duration_seconds",
		Help:    "Wall time of a single classification call.",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveClassification(siteID int, tier string, seconds float64) {
	classificationsTotal.WithLabelValues(strconv.Itoa(siteID), tier).Inc()
	classifyDuration.Observe(seconds)
}

func ObserveHandoff() {
	handoffsTotal.Inc()
}
