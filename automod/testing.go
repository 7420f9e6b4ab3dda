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
)

// FixedDetector returns the same detections (or error) for every frame.
// For tests and local dry runs without an inference service.
type FixedDetector struct {
	Detections []detector.Detection
	Err        error
	Calls      int
}

var _ detector.Detector = (*FixedDetector)(nil)

func (f *FixedDetector) Detect(ctx context.Context, img []byte) ([]detector.Detection, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Detections, nil
}

// EngineTestFixture returns a fully-wired engine with in-memory stores and
// the given detector, suitable for pipeline tests.
func EngineTestFixture(det detector.Detector) *Engine {
	return &Engine{
		Logger:     slog.Default(),
		Normalizer: media.NewNormalizer(media.Config{}, nil, nil),
		Detector:   det,
		Rules:      signal.DefaultRules(),
		Policy:     policy.DefaultConfig(),
		Verdicts:   verdictstore.NewMemStore(100, time.Hour),
	}
}
