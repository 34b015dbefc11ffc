package store

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const (
	keyContracts       = "contracts"
	keyContractPrefix  = "contract:"
	keyEmails          = "emails"
	cacheMaxEntries    = 1 << 10
	cacheCounterFactor = 10
)

// CachedStore keeps recent reads of another Store in an in-process
// ristretto cache for a fixed TTL. Misses, including ErrNotFound, are not
// cached.
type CachedStore struct {
	next  Store
	cache *ristretto.Cache[string, any]
	ttl   time.Duration
}

func NewCachedStore(next Store, ttl time.Duration) (*CachedStore, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: cacheMaxEntries * cacheCounterFactor,
		MaxCost:     cacheMaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedStore{next: next, cache: c, ttl: ttl}, nil
}

func (s *CachedStore) ListContractSummaries(ctx context.Context) ([]ContractSummary, error) {
	return cachedRead(s, keyContracts, func() ([]ContractSummary, error) {
		return s.next.ListContractSummaries(ctx)
	})
}

func (s *CachedStore) GetContractSummary(ctx context.Context, id string) (*ContractSummary, error) {
	return cachedRead(s, keyContractPrefix+id, func() (*ContractSummary, error) {
		return s.next.GetContractSummary(ctx, id)
	})
}

func (s *CachedStore) ListEmails(ctx context.Context) ([]Email, error) {
	return cachedRead(s, keyEmails, func() ([]Email, error) {
		return s.next.ListEmails(ctx)
	})
}

func (s *CachedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *CachedStore) Close() error {
	s.cache.Close()
	return s.next.Close()
}

// Unwrap returns the cached backend.
func (s *CachedStore) Unwrap() Store {
	return s.next
}

// cachedRead returns the cached value for key or loads and caches it.
// Callers share the returned value and must not modify it.
func cachedRead[T any](s *CachedStore, key string, load func() (T, error)) (T, error) {
	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	s.cache.SetWithTTL(key, v, 1, s.ttl)
	s.cache.Wait()
	return v, nil
}
