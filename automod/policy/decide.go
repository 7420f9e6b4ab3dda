package policy

import (
	"sort"

	"github.com/samurais-network/shiro/automod/signal"
)

// Decision is the policy verdict for one media item. Persistence and any
// user-facing action belong to the caller.
type Decision struct {
	ShouldDelete bool `json:"shouldDelete"`

	// Category and Score attribute the triggering rule, for audit logging.
	// Category is "composite" when the weighted-sum rule fired.
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// CompositeCategory is the attribution used when the weighted-sum rule
// fires rather than any single category threshold.
const CompositeCategory = "composite"

// Decide evaluates the aggregated signal against the config snapshot.
//
// Pure function of its inputs: no I/O, no side effects, deterministic.
// Evaluation order: degraded check, zero-tolerance categories, primary
// category thresholds, composite weighted sum, keep. Missing categories
// read as score zero; nothing in here can fail.
func Decide(sig signal.SignalRecord, cfg Config) Decision {
	// never delete on absence of evidence
	if sig.Degraded {
		return Decision{}
	}

	boost := 1.0
	if b, ok := cfg.SourceBoost[sig.SourceKind]; ok && b > 0 {
		boost = b
	}
	score := func(cat string) float64 {
		s := sig.Score(cat) * boost
		if s > 1 {
			s = 1
		}
		return s
	}

	// zero-tolerance categories trump everything else
	for _, cat := range cfg.ZeroTolerance {
		if thr, ok := cfg.Thresholds[cat]; ok {
			if s := score(cat); s >= thr {
				return Decision{ShouldDelete: true, Category: cat, Score: s}
			}
		}
	}

	zeroTol := make(map[string]bool, len(cfg.ZeroTolerance))
	for _, cat := range cfg.ZeroTolerance {
		zeroTol[cat] = true
	}

	// primary categories, in a fixed priority order followed by any extra
	// configured categories (sorted, for determinism)
	ordered := []string{signal.CategoryExplicit, signal.CategoryPartialNudity}
	var rest []string
	for cat := range cfg.Thresholds {
		if zeroTol[cat] || cat == signal.CategoryExplicit || cat == signal.CategoryPartialNudity {
			continue
		}
		rest = append(rest, cat)
	}
	sort.Strings(rest)
	ordered = append(ordered, rest...)

	for _, cat := range ordered {
		thr, ok := cfg.Thresholds[cat]
		if !ok {
			continue
		}
		s := score(cat)
		if s < thr {
			continue
		}
		// partial nudity needs a weak corroborating signal before a
		// borderline score is trusted on its own
		if cat == signal.CategoryPartialNudity {
			if score(signal.CategoryExplicit) < cfg.CorroborationFloor &&
				score(signal.CategorySkinRatio) < cfg.CorroborationFloor {
				continue
			}
		}
		return Decision{ShouldDelete: true, Category: cat, Score: s}
	}

	// composite: several moderate signals can add up to a removal even when
	// no single category clears its own threshold
	if len(cfg.CompositeWeights) > 0 {
		var sum float64
		for cat, w := range cfg.CompositeWeights {
			sum += w * score(cat)
		}
		if sum >= cfg.CompositeCutoff {
			return Decision{ShouldDelete: true, Category: CompositeCategory, Score: sum}
		}
	}

	return Decision{}
}
