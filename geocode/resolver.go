package geocode

import (
	"context"
	"time"

	"photodb/logging"
	"photodb/types"
)

// Lookuper is the external reverse-geocoding call.
type Lookuper interface {
	Lookup(ctx context.Context, coords types.Coordinates) (string, error)
}

// Resolver answers place lookups from the cache, falling back to the
// external service on a miss. The resolver mutex spans the whole
// check-then-fetch sequence: two concurrent callers missing on the same
// key must not both reach the external service.
type Resolver struct {
	cache  *Cache
	client Lookuper

	// RetryDelay is the backoff before the single retry of a transient
	// failure.
	RetryDelay time.Duration

	sem chan struct{}
}

// NewResolver creates a resolver over an injected cache and client.
func NewResolver(cache *Cache, client Lookuper) *Resolver {
	return &Resolver{
		cache:      cache,
		client:     client,
		RetryDelay: 2 * time.Second,
		sem:        make(chan struct{}, 1),
	}
}

// Resolve returns the place description for a coordinate pair. Each
// distinct quantized key reaches the external service at most once per
// cache lifetime; failures are reported upward and never cached.
func (r *Resolver) Resolve(ctx context.Context, coords types.Coordinates) (string, error) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-r.sem }()

	key := r.cache.Key(coords)
	if place, ok := r.cache.Get(key); ok {
		logging.Debug("geocode cache hit for %s", key)
		return place, nil
	}

	place, err := r.client.Lookup(ctx, coords)
	if err != nil && IsRetryable(err) {
		logging.Warning("geocoding %s failed (%v), retrying once", key, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.RetryDelay):
		}
		place, err = r.client.Lookup(ctx, coords)
	}
	if err != nil {
		return "", err
	}

	r.cache.Put(key, place)
	return place, nil
}
