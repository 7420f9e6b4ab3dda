package verdictstore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type MemStore struct {
	data *expirable.LRU[string, Verdict]
}

var _ Store = (*MemStore)(nil)

func NewMemStore(capacity int, ttl time.Duration) *MemStore {
	return &MemStore{
		data: expirable.NewLRU[string, Verdict](capacity, nil, ttl),
	}
}

func (s *MemStore) Get(ctx context.Context, uniqueID string) (*Verdict, error) {
	v, ok := s.data.Get(uniqueID)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *MemStore) Put(ctx context.Context, uniqueID string, v Verdict) error {
	if prev, ok := s.data.Get(uniqueID); ok && prev.Flagged {
		return nil
	}
	s.data.Add(uniqueID, v)
	return nil
}

func (s *MemStore) Flag(ctx context.Context, uniqueID string) error {
	s.data.Add(uniqueID, Verdict{
		ShouldDelete: true,
		Flagged:      true,
		CheckedAt:    time.Now(),
	})
	return nil
}
