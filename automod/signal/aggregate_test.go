package signal

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateBasics(t *testing.T) {
	assert := assert.New(t)
	rules := DefaultRules()

	sets := []DetectionSet{
		{"FEMALE_BREAST_EXPOSED": 0.81, "FACE_FEMALE": 0.99},
		{"FEMALE_BREAST_EXPOSED": 0.65, "BUTTOCKS_COVERED": 0.4},
	}

	rec := Aggregate(rules, sets, SourceKindPhoto, 0.25)
	assert.False(rec.Degraded)
	assert.Equal(2, rec.FrameCount)
	assert.Equal(SourceKindPhoto, rec.SourceKind)

	// per-category max across frames
	assert.InDelta(0.81, rec.Score(CategoryExplicit), 0.0001)
	assert.InDelta(0.4, rec.Score(CategoryPartialNudity), 0.0001)
	assert.Zero(rec.Score(CategoryViolence))

	// merged label map keeps the max
	assert.InDelta(0.81, rec.Labels["female_breast_exposed"], 0.0001)
	assert.InDelta(0.99, rec.Labels["face_female"], 0.0001)
}

func TestAggregateConfidenceFloor(t *testing.T) {
	assert := assert.New(t)
	rules := DefaultRules()

	sets := []DetectionSet{
		{"weapon": 0.2},
	}
	rec := Aggregate(rules, sets, SourceKindPhoto, 0.25)
	// sub-floor detections are dropped entirely, from labels too
	assert.Zero(rec.Score(CategoryViolence))
	assert.Empty(rec.Labels)
	assert.False(rec.Degraded)
}

func TestAggregateDegraded(t *testing.T) {
	assert := assert.New(t)
	rules := DefaultRules()

	// all frames failed detection
	rec := Aggregate(rules, []DetectionSet{nil, nil}, SourceKindVideoSticker, 0.25)
	assert.True(rec.Degraded)
	assert.Zero(rec.FrameCount)

	// no frames at all
	rec = Aggregate(rules, nil, SourceKindVideoSticker, 0.25)
	assert.True(rec.Degraded)

	// an empty (but successful) detection set is not degraded
	rec = Aggregate(rules, []DetectionSet{{}}, SourceKindVideoSticker, 0.25)
	assert.False(rec.Degraded)
	assert.Equal(1, rec.FrameCount)
}

func TestAggregateIdempotent(t *testing.T) {
	assert := assert.New(t)
	rules := DefaultRules()

	sets := []DetectionSet{
		{"MALE_GENITALIA_EXPOSED": 0.7, "blood_on_face": 0.5},
		nil,
		{"syringe": 0.33},
	}
	a := Aggregate(rules, sets, SourceKindStaticSticker, 0.25)
	b := Aggregate(rules, sets, SourceKindStaticSticker, 0.25)
	assert.Equal(a, b)
}

func TestCategoryRuleMatching(t *testing.T) {
	assert := assert.New(t)
	rules := DefaultRules()

	// case-insensitive substring semantics
	assert.Contains(rules.MatchCategories("FEMALE_GENITALIA_EXPOSED"), CategoryExplicit)
	assert.Contains(rules.MatchCategories("weapon_knife"), CategoryViolence)
	assert.Contains(rules.MatchCategories("Child_Present"), CategoryChildAbuse)
	assert.Empty(rules.MatchCategories("FACE_FEMALE"))

	// one label can hit several categories
	cats := rules.MatchCategories("child_exposed_underwear")
	assert.Contains(cats, CategoryChildAbuse)
	assert.Contains(cats, CategoryPartialNudity)
}

func TestCompileRulesBadPattern(t *testing.T) {
	_, err := CompileRules([]CategoryRule{{Category: "x", Patterns: []string{"("}}})
	require.Error(t, err)
}

func TestDetectionSetKeepsMax(t *testing.T) {
	assert := assert.New(t)
	ds := make(DetectionSet)
	ds.Add("weapon", 0.4)
	ds.Add("weapon", 0.9)
	ds.Add("weapon", 0.1)
	assert.InDelta(0.9, ds["weapon"], 0.0001)
}

func TestSkinRatio(t *testing.T) {
	assert := assert.New(t)

	skin := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			// a typical skin tone, well inside the HSV range
			skin.Set(x, y, color.NRGBA{R: 224, G: 172, B: 105, A: 255})
		}
	}
	assert.InDelta(1.0, SkinRatio(skin), 0.01)

	blue := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			blue.Set(x, y, color.NRGBA{B: 255, A: 255})
		}
	}
	assert.Zero(SkinRatio(blue))
}

func TestSkinScoreCutpoints(t *testing.T) {
	assert := assert.New(t)
	assert.InDelta(0.95, SkinScore(0.5), 0.0001)
	assert.InDelta(0.7, SkinScore(0.3), 0.0001)
	assert.Less(SkinScore(0.1), 0.1)
	assert.Zero(SkinScore(0))
}
