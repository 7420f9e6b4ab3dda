package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samurais-network/shiro/automod/signal"
)

func record(categories map[string]float64) signal.SignalRecord {
	return signal.SignalRecord{
		Categories: categories,
		Labels:     map[string]float64{},
		FrameCount: 1,
		SourceKind: signal.SourceKindPhoto,
	}
}

func TestDecideAllZeroKeeps(t *testing.T) {
	assert := assert.New(t)
	d := Decide(record(map[string]float64{}), DefaultConfig())
	assert.False(d.ShouldDelete)
	assert.Empty(d.Category)
}

func TestDecideExplicitThreshold(t *testing.T) {
	assert := assert.New(t)

	// scenario: explicit well above its threshold, everything else zero
	d := Decide(record(map[string]float64{signal.CategoryExplicit: 0.8}), DefaultConfig())
	assert.True(d.ShouldDelete)
	assert.Equal(signal.CategoryExplicit, d.Category)
	assert.InDelta(0.8, d.Score, 0.0001)
}

func TestDecideZeroToleranceDominates(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultConfig()

	// child-safety scores above their (deliberately low) threshold delete
	// even with every other category at zero
	d := Decide(record(map[string]float64{signal.CategoryChildAbuse: 0.3}), cfg)
	assert.True(d.ShouldDelete)
	assert.Equal(signal.CategoryChildAbuse, d.Category)

	d = Decide(record(map[string]float64{signal.CategoryViolence: 0.4}), cfg)
	assert.True(d.ShouldDelete)
	assert.Equal(signal.CategoryViolence, d.Category)
}

func TestDecideDegradedNeverDeletes(t *testing.T) {
	assert := assert.New(t)

	sig := record(map[string]float64{
		signal.CategoryChildAbuse: 0.99,
		signal.CategoryExplicit:   0.99,
	})
	sig.Degraded = true

	// the degraded flag dominates even nonzero scores
	d := Decide(sig, DefaultConfig())
	assert.False(d.ShouldDelete)

	d = Decide(sig, StrictConfig())
	assert.False(d.ShouldDelete)
}

func TestDecidePartialNudityNeedsCorroboration(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultConfig()

	// above threshold but no explicit or skin signal at all: keep
	d := Decide(record(map[string]float64{signal.CategoryPartialNudity: 0.65}), cfg)
	assert.False(d.ShouldDelete)

	// weak explicit corroboration flips it
	d = Decide(record(map[string]float64{
		signal.CategoryPartialNudity: 0.65,
		signal.CategoryExplicit:      0.25,
	}), cfg)
	assert.True(d.ShouldDelete)
	assert.Equal(signal.CategoryPartialNudity, d.Category)

	// skin-ratio heuristic corroborates too
	d = Decide(record(map[string]float64{
		signal.CategoryPartialNudity: 0.65,
		signal.CategorySkinRatio:     0.7,
	}), cfg)
	assert.True(d.ShouldDelete)
}

func TestDecideBorderlineSuggestiveKeeps(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultConfig()

	// below-threshold suggestive with a trace explicit signal: keep, and
	// the composite sum stays under the cutoff
	d := Decide(record(map[string]float64{
		signal.CategoryExplicit:      0.1,
		signal.CategoryPartialNudity: 0.3,
	}), cfg)
	assert.False(d.ShouldDelete)
}

func TestDecideComposite(t *testing.T) {
	assert := assert.New(t)

	cfg := Config{
		Thresholds: map[string]float64{
			signal.CategoryExplicit:      0.45,
			signal.CategoryPartialNudity: 0.6,
			signal.CategoryChildAbuse:    0.45,
		},
		CompositeWeights: map[string]float64{
			signal.CategoryExplicit:      0.5,
			signal.CategoryPartialNudity: 0.4,
			signal.CategoryChildAbuse:    0.9,
		},
		CompositeCutoff: 0.5,
	}

	// 0.3*0.5 + 0.3*0.4 + 0.1*0.9 = 0.36: keep
	d := Decide(record(map[string]float64{
		signal.CategoryExplicit:      0.3,
		signal.CategoryPartialNudity: 0.3,
		signal.CategoryChildAbuse:    0.1,
	}), cfg)
	assert.False(d.ShouldDelete)

	// raise child_abuse to 0.4: 0.15 + 0.12 + 0.36 = 0.63: delete via
	// composite, no single category clearing its own threshold
	d = Decide(record(map[string]float64{
		signal.CategoryExplicit:      0.3,
		signal.CategoryPartialNudity: 0.3,
		signal.CategoryChildAbuse:    0.4,
	}), cfg)
	assert.True(d.ShouldDelete)
	assert.Equal(CompositeCategory, d.Category)
	assert.InDelta(0.63, d.Score, 0.0001)
}

func TestDecideMonotonic(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultConfig()

	// raising a category score never flips delete back to keep
	for _, cat := range []string{
		signal.CategoryExplicit,
		signal.CategoryChildAbuse,
		signal.CategoryViolence,
	} {
		base := map[string]float64{cat: cfg.Thresholds[cat]}
		if cat == signal.CategoryPartialNudity {
			base[signal.CategoryExplicit] = cfg.CorroborationFloor
		}
		assert.True(Decide(record(base), cfg).ShouldDelete, cat)

		for s := cfg.Thresholds[cat]; s <= 1.0; s += 0.05 {
			stepped := map[string]float64{cat: s}
			assert.True(Decide(record(stepped), cfg).ShouldDelete, cat)
		}
	}
}

func TestDecideSourceBoost(t *testing.T) {
	assert := assert.New(t)
	cfg := StrictConfig()

	sig := record(map[string]float64{signal.CategoryExplicit: 0.32})
	sig.SourceKind = signal.SourceKindStaticSticker

	// 0.32 * 1.15 = 0.368 >= 0.35 strict threshold
	d := Decide(sig, cfg)
	assert.True(d.ShouldDelete)
	assert.Equal(signal.CategoryExplicit, d.Category)

	// same score from a photo stays below threshold
	sig.SourceKind = signal.SourceKindPhoto
	assert.False(Decide(sig, cfg).ShouldDelete)
}

func TestProfilesShareOneEngine(t *testing.T) {
	assert := assert.New(t)

	sig := record(map[string]float64{signal.CategoryExplicit: 0.5})

	// same record, different tuning, opposite outcomes; no code change
	assert.True(Decide(sig, DefaultConfig()).ShouldDelete)
	assert.False(Decide(sig, LenientConfig()).ShouldDelete)

	assert.Equal(DefaultConfig(), Profile("default"))
	assert.Equal(StrictConfig(), Profile("strict"))
	assert.Equal(LenientConfig(), Profile("lenient"))
}
