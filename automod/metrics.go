package automod

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shiro_pipeline_runs",
	Help: "Number of moderation pipeline runs, by media kind and outcome",
}, []string{"kind", "outcome"})

var deletionsByCategory = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shiro_deletions_by_category",
	Help: "Number of delete decisions, by triggering category",
}, []string{"category"})

var detectFrameFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "shiro_detect_frame_failures",
	Help: "Number of frames whose classification failed and degraded to empty",
})

var verdictCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "shiro_verdict_cache_hits",
	Help: "Number of pipeline runs short-circuited by a cached verdict",
})
