// Package policy decides whether a media item should be removed, given an
// aggregated content signal and an immutable configuration snapshot.
package policy

import (
	"github.com/samurais-network/shiro/automod/signal"
)

// Config is a process-wide, read-only snapshot of moderation tuning. Loaded
// once at startup; different deployments tune the same engine from
// permissive to aggressive by swapping values, never by changing code.
type Config struct {
	// Thresholds maps category name to the direct-deletion threshold.
	Thresholds map[string]float64

	// ZeroTolerance lists categories that trigger deletion on their own,
	// regardless of any other score. Their thresholds are deliberately
	// lower than the general categories'.
	ZeroTolerance []string

	// MinConfidence is the noise floor applied during aggregation: any
	// single detection below it is ignored entirely.
	MinConfidence float64

	// CorroborationFloor gates the partial-nudity category: a borderline
	// partial-nudity score only counts if the explicit or skin-ratio
	// signal is at least weakly present. Suppresses false positives from
	// skin-tone heuristics alone.
	CorroborationFloor float64

	// CompositeWeights and CompositeCutoff define the weighted-sum rule
	// that catches content where no single category is conclusive but
	// several are moderately present.
	CompositeWeights map[string]float64
	CompositeCutoff  float64

	// SourceBoost multiplies category scores by source kind before
	// evaluation (e.g. stickers slightly boosted). Provenance is an
	// explicit input here, never inferred from file names.
	SourceBoost map[string]float64
}

// DefaultConfig is the balanced production profile.
func DefaultConfig() Config {
	return Config{
		Thresholds: map[string]float64{
			signal.CategoryExplicit:      0.45,
			signal.CategoryPartialNudity: 0.6,
			signal.CategoryChildAbuse:    0.25,
			signal.CategoryViolence:      0.35,
			signal.CategoryDrugs:         0.6,
		},
		ZeroTolerance: []string{
			signal.CategoryChildAbuse,
			signal.CategoryViolence,
		},
		MinConfidence:      0.25,
		CorroborationFloor: 0.2,
		CompositeWeights: map[string]float64{
			signal.CategoryExplicit:      0.5,
			signal.CategoryPartialNudity: 0.4,
			signal.CategoryChildAbuse:    0.9,
			signal.CategoryViolence:      0.7,
			signal.CategoryDrugs:         0.3,
		},
		CompositeCutoff: 0.5,
		SourceBoost:     map[string]float64{},
	}
}

// StrictConfig maximizes recall on subtle content: lower thresholds, lower
// composite cutoff, sticker sources boosted.
func StrictConfig() Config {
	cfg := DefaultConfig()
	cfg.Thresholds[signal.CategoryExplicit] = 0.35
	cfg.Thresholds[signal.CategoryPartialNudity] = 0.45
	cfg.Thresholds[signal.CategoryChildAbuse] = 0.15
	cfg.Thresholds[signal.CategoryViolence] = 0.25
	cfg.Thresholds[signal.CategoryDrugs] = 0.45
	cfg.MinConfidence = 0.2
	cfg.CompositeCutoff = 0.4
	cfg.SourceBoost = map[string]float64{
		signal.SourceKindStaticSticker:   1.15,
		signal.SourceKindVideoSticker:    1.15,
		signal.SourceKindAnimatedSticker: 1.15,
	}
	return cfg
}

// LenientConfig reduces false positives: higher thresholds and a stronger
// corroboration requirement.
func LenientConfig() Config {
	cfg := DefaultConfig()
	cfg.Thresholds[signal.CategoryExplicit] = 0.6
	cfg.Thresholds[signal.CategoryPartialNudity] = 0.75
	cfg.Thresholds[signal.CategoryViolence] = 0.5
	cfg.MinConfidence = 0.35
	cfg.CorroborationFloor = 0.35
	cfg.CompositeCutoff = 0.65
	return cfg
}

// Profile returns a named tuning profile, falling back to the default.
func Profile(name string) Config {
	switch name {
	case "strict":
		return StrictConfig()
	case "lenient":
		return LenientConfig()
	default:
		return DefaultConfig()
	}
}
