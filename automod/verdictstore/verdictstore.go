// Package verdictstore caches moderation outcomes keyed by the source's
// stable unique ID, so a sticker that was already classified (or manually
// flagged by a reviewer) skips the full pipeline on re-send.
package verdictstore

import (
	"context"
	"time"
)

// Verdict is the cached outcome for one media source.
type Verdict struct {
	ShouldDelete bool      `json:"shouldDelete"`
	Category     string    `json:"category,omitempty"`
	Score        float64   `json:"score,omitempty"`
	Flagged      bool      `json:"flagged,omitempty"`
	CheckedAt    time.Time `json:"checkedAt"`
}

// Store is the verdict cache. Get returns (nil, nil) on a miss. Flag marks
// a source as reviewer-confirmed prohibited; flagged verdicts always delete
// and are never overwritten by pipeline output.
type Store interface {
	Get(ctx context.Context, uniqueID string) (*Verdict, error)
	Put(ctx context.Context, uniqueID string, v Verdict) error
	Flag(ctx context.Context, uniqueID string) error
}
