package detector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var detectAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "shiro_detect_api_duration_sec",
	Help: "Duration of inference-service classification calls",
})

var detectAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shiro_detect_api_count",
	Help: "Number of inference-service classification calls, by HTTP status code",
}, []string{"status"})
