package media

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var normalizeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "shiro_media_normalize_duration_sec",
	Help: "Duration of media normalization, by media kind",
}, []string{"kind"})

var normalizeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shiro_media_normalize_failures",
	Help: "Number of degraded media normalizations, by media kind and stage",
}, []string{"kind", "stage"})
