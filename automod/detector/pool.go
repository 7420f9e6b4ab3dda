package detector

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// PooledDetector funnels Detect calls through a weighted semaphore. The
// underlying model is a shared, read-mostly resource; bounding in-flight
// calls keeps one slow classification from monopolizing it across
// concurrent pipeline runs.
type PooledDetector struct {
	inner Detector
	sem   *semaphore.Weighted
}

var _ Detector = (*PooledDetector)(nil)

func Pooled(inner Detector, size int) *PooledDetector {
	if size <= 0 {
		size = 4
	}
	return &PooledDetector{
		inner: inner,
		sem:   semaphore.NewWeighted(int64(size)),
	}
}

func (p *PooledDetector) Detect(ctx context.Context, img []byte) ([]Detection, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)
	return p.inner.Detect(ctx, img)
}
