// Package automod runs the per-message moderation pipeline: normalize the
// media into frames, classify each frame, aggregate the signals, and apply
// policy. The caller owns everything after the decision (deletion,
// notification, audit persistence).
package automod

import (
	"context"
	"log/slog"
	"time"

	"github.com/samurais-network/shiro/automod/detector"
	"github.com/samurais-network/shiro/automod/media"
	"github.com/samurais-network/shiro/automod/policy"
	"github.com/samurais-network/shiro/automod/signal"
	"github.com/samurais-network/shiro/automod/verdictstore"

	"golang.org/x/sync/errgroup"
)

// Engine executes pipeline runs. Concurrent runs share only the read-only
// policy snapshot, the (pooled) detector, and the verdict store; frames and
// temp artifacts are private to each run.
type Engine struct {
	Logger     *slog.Logger
	Normalizer *media.Normalizer
	Detector   detector.Detector
	Rules      *signal.RuleSet
	Policy     policy.Config

	// Verdicts is optional: when set, sources with a stable UniqueID skip
	// the pipeline on a cache hit and store their outcome afterwards.
	Verdicts verdictstore.Store

	// DetectTimeout bounds the classification stage per message.
	DetectTimeout time.Duration

	// SkinHeuristic enables the model-free skin-ratio signal.
	SkinHeuristic bool
}

// Outcome is the result of one pipeline run: the decision plus the signal
// record it was derived from, for audit logging by the caller.
type Outcome struct {
	Decision policy.Decision     `json:"decision"`
	Signal   signal.SignalRecord `json:"signal"`
	Cached   bool                `json:"cached,omitempty"`
}

// ProcessMedia runs the full pipeline for one inbound media item.
//
// Stage failures degrade rather than propagate: a failed download or an
// unreachable classifier yields a degraded record and a keep decision.
// Errors of omission are preferred over false deletions.
//
// NOTE: for now, this function basically never errors, just logs and returns
// a usable (possibly degraded) outcome. Should think through error
// propagation better.
func (eng *Engine) ProcessMedia(ctx context.Context, item media.MediaItem) (out *Outcome, err error) {
	logger := eng.logger().With("kind", item.Kind, "source", item.SourceID)
	start := time.Now()

	// recover panics from media decoding or rule evaluation, like an HTTP
	// server would; a crashed run degrades to keep
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline run panicked", "err", r)
			out = &Outcome{Signal: signal.SignalRecord{Degraded: true, SourceKind: string(item.Kind)}}
			err = nil
		}
	}()

	if cached := eng.checkVerdictCache(ctx, item, logger); cached != nil {
		return cached, nil
	}

	frames, normErr := eng.Normalizer.Normalize(ctx, item)
	if normErr != nil {
		logger.Warn("normalization degraded", "err", normErr)
	}

	sets := eng.detectFrames(ctx, frames, logger)

	rec := signal.Aggregate(eng.Rules, sets, string(item.Kind), eng.Policy.MinConfidence)
	if eng.SkinHeuristic && !rec.Degraded {
		rec.Categories[signal.CategorySkinRatio] = signal.SkinScore(maxSkinRatio(frames))
	}

	decision := policy.Decide(rec, eng.Policy)

	eng.recordOutcome(ctx, item, rec, decision)
	logger.Info("moderation decision",
		"delete", decision.ShouldDelete,
		"category", decision.Category,
		"score", decision.Score,
		"degraded", rec.Degraded,
		"frames", rec.FrameCount,
		"categories", rec.Categories,
		"duration", time.Since(start),
	)

	return &Outcome{Decision: decision, Signal: rec}, nil
}

// Flag records a reviewer decision that a source is prohibited, so future
// sends of the same source delete without re-classification.
func (eng *Engine) Flag(ctx context.Context, uniqueID string) error {
	if eng.Verdicts == nil {
		return nil
	}
	return eng.Verdicts.Flag(ctx, uniqueID)
}

func (eng *Engine) checkVerdictCache(ctx context.Context, item media.MediaItem, logger *slog.Logger) *Outcome {
	if eng.Verdicts == nil || item.UniqueID == "" {
		return nil
	}
	v, err := eng.Verdicts.Get(ctx, item.UniqueID)
	if err != nil {
		logger.Warn("verdict cache read failed", "err", err)
		return nil
	}
	if v == nil {
		return nil
	}
	verdictCacheHits.Inc()
	logger.Info("verdict cache hit", "uniqueID", item.UniqueID, "delete", v.ShouldDelete, "flagged", v.Flagged)
	return &Outcome{
		Decision: policy.Decision{ShouldDelete: v.ShouldDelete, Category: v.Category, Score: v.Score},
		Signal:   signal.SignalRecord{SourceKind: string(item.Kind)},
		Cached:   true,
	}
}

// detectFrames classifies all frames concurrently. Per-frame failures leave
// a nil entry; the aggregator treats an all-nil result as degraded.
func (eng *Engine) detectFrames(ctx context.Context, frames []media.Frame, logger *slog.Logger) []signal.DetectionSet {
	if len(frames) == 0 {
		return nil
	}

	timeout := eng.DetectTimeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sets := make([]signal.DetectionSet, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	for i, frame := range frames {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("frame detection panicked", "frame", frame.Index, "err", r)
				}
			}()
			dets, err := eng.Detector.Detect(gctx, frame.Data)
			if err != nil {
				// contained: this frame degrades, the run continues
				logger.Warn("frame detection failed", "frame", frame.Index, "enhancement", frame.Enhancement, "err", err)
				detectFrameFailures.Inc()
				return nil
			}
			ds := make(signal.DetectionSet, len(dets))
			for _, d := range dets {
				ds.Add(d.Label, d.Confidence)
			}
			sets[i] = ds
			return nil
		})
	}
	g.Wait()
	return sets
}

func (eng *Engine) recordOutcome(ctx context.Context, item media.MediaItem, rec signal.SignalRecord, d policy.Decision) {
	outcome := "keep"
	switch {
	case rec.Degraded:
		outcome = "degraded"
	case d.ShouldDelete:
		outcome = "delete"
	}
	pipelineRuns.WithLabelValues(string(item.Kind), outcome).Inc()
	if d.ShouldDelete {
		deletionsByCategory.WithLabelValues(d.Category).Inc()
	}

	if eng.Verdicts != nil && item.UniqueID != "" && !rec.Degraded {
		v := verdictstore.Verdict{
			ShouldDelete: d.ShouldDelete,
			Category:     d.Category,
			Score:        d.Score,
			CheckedAt:    time.Now(),
		}
		if err := eng.Verdicts.Put(ctx, item.UniqueID, v); err != nil {
			eng.logger().Warn("verdict cache write failed", "uniqueID", item.UniqueID, "err", err)
		}
	}
}

func maxSkinRatio(frames []media.Frame) float64 {
	var max float64
	for _, f := range frames {
		// enhancement variants distort color; measure base frames only
		if f.Enhancement != media.EnhanceNone {
			continue
		}
		if r := signal.SkinRatio(f.Img); r > max {
			max = r
		}
	}
	return max
}

func (eng *Engine) logger() *slog.Logger {
	if eng.Logger != nil {
		return eng.Logger
	}
	return slog.Default()
}
