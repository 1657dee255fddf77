package fetch

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/d1nch8g/ample/source"
)

// Shared de-duplicates fetches of the same location across distinct Sources.
// Concurrent fetches collapse into one call; successful results are kept for ttl.
type Shared struct {
	next  source.Fetcher
	group singleflight.Group
	cache *cache.Cache
}

var _ source.Fetcher = (*Shared)(nil)

// NewShared wraps next. A zero ttl disables result caching.
func NewShared(next source.Fetcher, ttl time.Duration) *Shared {
	s := &Shared{next: next}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// Fetch returns the cached bytes for location or performs a single shared fetch
func (s *Shared) Fetch(ctx context.Context, location string) ([]byte, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(location); ok {
			return v.([]byte), nil
		}
	}

	ch := s.group.DoChan(location, func() (any, error) {
		data, err := s.next.Fetch(context.WithoutCancel(ctx), location)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.SetDefault(location, data)
		}
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Forget drops any cached result for location
func (s *Shared) Forget(location string) {
	s.group.Forget(location)
	if s.cache != nil {
		s.cache.Delete(location)
	}
}
