package services

import (
	"context"
	"sync"
)

// CachingCodeResolver memoizes classifier lookups for one process run. The
// backing resolver hits the network; insurer and product code tables change
// rarely enough that one fetch per (field, code) pair per run is plenty.
type CachingCodeResolver struct {
	backend CodeResolver

	mu    sync.Mutex
	cache map[string]string
}

func NewCachingCodeResolver(backend CodeResolver) *CachingCodeResolver {
	return &CachingCodeResolver{
		backend: backend,
		cache:   make(map[string]string),
	}
}

func (r *CachingCodeResolver) ResolveCode(ctx context.Context, raw, fieldName string) (string, error) {
	key := fieldName + "\x00" + raw

	r.mu.Lock()
	label, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return label, nil
	}

	label, err := r.backend.ResolveCode(ctx, raw, fieldName)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.cache[key] = label
	r.mu.Unlock()
	return label, nil
}
