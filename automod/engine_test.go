package automod

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samurais-network/shiro/automod/detector"
	"github.com/samurais-network/shiro/automod/media"
	"github.com/samurais-network/shiro/automod/signal"
)

func testPhoto(t *testing.T) media.MediaItem {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 220, 220))
	for y := 0; y < 220; y++ {
		for x := 0; x < 220; x++ {
			img.Set(x, y, color.NRGBA{R: 40, G: 90, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return media.MediaItem{
		Kind:     media.KindPhoto,
		SourceID: "file123",
		Data:     buf.Bytes(),
	}
}

func TestEngineDeletesExplicit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	det := &FixedDetector{Detections: []detector.Detection{
		{Label: "FEMALE_GENITALIA_EXPOSED", Confidence: 0.92},
		{Label: "FACE_FEMALE", Confidence: 0.99},
	}}
	eng := EngineTestFixture(det)

	out, err := eng.ProcessMedia(ctx, testPhoto(t))
	require.NoError(t, err)
	assert.True(out.Decision.ShouldDelete)
	assert.Equal(signal.CategoryExplicit, out.Decision.Category)
	assert.InDelta(0.92, out.Decision.Score, 0.0001)
	assert.False(out.Signal.Degraded)
	assert.Equal(1, out.Signal.FrameCount)
}

func TestEngineKeepsCleanContent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	det := &FixedDetector{Detections: []detector.Detection{
		{Label: "FACE_FEMALE", Confidence: 0.99},
	}}
	eng := EngineTestFixture(det)

	out, err := eng.ProcessMedia(ctx, testPhoto(t))
	require.NoError(t, err)
	assert.False(out.Decision.ShouldDelete)
	assert.False(out.Signal.Degraded)
}

func TestEngineDetectorFailureDegradesToKeep(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	det := &FixedDetector{Err: errors.New("model down")}
	eng := EngineTestFixture(det)

	out, err := eng.ProcessMedia(ctx, testPhoto(t))
	require.NoError(t, err)
	assert.False(out.Decision.ShouldDelete)
	assert.True(out.Signal.Degraded)
}

func TestEngineNormalizeFailureDegradesToKeep(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	det := &FixedDetector{Detections: []detector.Detection{
		{Label: "FEMALE_GENITALIA_EXPOSED", Confidence: 0.99},
	}}
	eng := EngineTestFixture(det)

	// total normalization failure: no frames, no detector calls, keep
	out, err := eng.ProcessMedia(ctx, media.MediaItem{
		Kind: media.KindPhoto,
		Data: []byte("not an image"),
	})
	require.NoError(t, err)
	assert.False(out.Decision.ShouldDelete)
	assert.True(out.Signal.Degraded)
	assert.Zero(det.Calls)
}

func TestEngineVerdictCache(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	det := &FixedDetector{Detections: []detector.Detection{
		{Label: "MALE_GENITALIA_EXPOSED", Confidence: 0.9},
	}}
	eng := EngineTestFixture(det)

	item := testPhoto(t)
	item.UniqueID = "uniq-1"

	out, err := eng.ProcessMedia(ctx, item)
	require.NoError(t, err)
	assert.True(out.Decision.ShouldDelete)
	assert.False(out.Cached)
	firstCalls := det.Calls

	// same source again: served from the verdict store, no classification
	out, err = eng.ProcessMedia(ctx, item)
	require.NoError(t, err)
	assert.True(out.Decision.ShouldDelete)
	assert.True(out.Cached)
	assert.Equal(firstCalls, det.Calls)
}

func TestEngineFlaggedSourceDeletesWithoutPipeline(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	det := &FixedDetector{}
	eng := EngineTestFixture(det)

	require.NoError(t, eng.Flag(ctx, "uniq-bad"))

	item := testPhoto(t)
	item.UniqueID = "uniq-bad"
	out, err := eng.ProcessMedia(ctx, item)
	require.NoError(t, err)
	assert.True(out.Decision.ShouldDelete)
	assert.True(out.Cached)
	assert.Zero(det.Calls)
}

func TestEngineSkinHeuristicContributes(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// detector finds nothing; skin-ratio still produces a category score
	det := &FixedDetector{}
	eng := EngineTestFixture(det)
	eng.SkinHeuristic = true

	img := image.NewNRGBA(image.Rect(0, 0, 220, 220))
	for y := 0; y < 220; y++ {
		for x := 0; x < 220; x++ {
			img.Set(x, y, color.NRGBA{R: 224, G: 172, B: 105, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	out, err := eng.ProcessMedia(ctx, media.MediaItem{Kind: media.KindStaticSticker, Data: buf.Bytes()})
	require.NoError(t, err)
	assert.False(out.Signal.Degraded)
	assert.InDelta(0.95, out.Signal.Score(signal.CategorySkinRatio), 0.01)
	// the heuristic alone must not delete: no corroborated category crossed
	assert.False(out.Decision.ShouldDelete)
}
