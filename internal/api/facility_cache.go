package api

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/godilite/swachh-scan/pkg/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultFacilityTTL = 10 * time.Minute
	defaultSetTimeout  = 5 * time.Second

	facilityKeyPrefix = "facility:"
)

// addTTLJitter adds up to ±15s random jitter to TTL to avoid mass expiration.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 30*time.Second {
		return ttl
	}
	jitter := time.Duration(rand.Intn(30)-15) * time.Second
	return ttl + jitter
}

// CachedFacilityResolver is a read-through cache in front of a
// FacilityResolver. Concurrent misses for the same code share one backend
// call. Only successful lookups are stored.
type CachedFacilityResolver struct {
	next    FacilityResolver
	cache   Cacher
	logger  *zap.Logger
	sfGroup singleflight.Group
	ttl     time.Duration
}

func NewCachedFacilityResolver(next FacilityResolver, c Cacher, logger *zap.Logger, ttl time.Duration) *CachedFacilityResolver {
	if next == nil {
		panic("nil FacilityResolver provided to NewCachedFacilityResolver")
	}
	if c == nil {
		panic("nil Cacher provided to NewCachedFacilityResolver")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultFacilityTTL
	}
	return &CachedFacilityResolver{
		next:   next,
		cache:  c,
		logger: logger.Named("facility-cache"),
		ttl:    ttl,
	}
}

func facilityKey(code string) string {
	return facilityKeyPrefix + code
}

func (r *CachedFacilityResolver) ResolveFacility(ctx context.Context, code string) (Facility, error) {
	key := facilityKey(code)

	var cached Facility
	err := r.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		r.logger.Debug("cache hit", zap.String("key", key))
		return cached, nil
	case errors.Is(err, cache.ErrMiss):
		r.logger.Debug("cache miss", zap.String("key", key))
	default:
		r.logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := r.sfGroup.Do(key, func() (any, error) {
		return r.fetchAndStore(ctx, key, code)
	})
	if err != nil {
		return Facility{}, err
	}

	facility, ok := v.(Facility)
	if !ok {
		r.logger.Error("singleflight type mismatch", zap.String("key", key))
		return Facility{}, fmt.Errorf("type mismatch for key %q", key)
	}
	if shared {
		r.logger.Debug("singleflight shared result", zap.String("key", key))
	}
	return facility, nil
}

func (r *CachedFacilityResolver) fetchAndStore(ctx context.Context, key, code string) (Facility, error) {
	facility, err := r.next.ResolveFacility(ctx, code)
	if err != nil {
		return Facility{}, err
	}

	go func(f Facility) {
		setCtx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
		defer cancel()

		ttl := addTTLJitter(r.ttl)
		if err := r.cache.Set(setCtx, key, f, ttl); err != nil {
			r.logger.Warn("failed to set cache on miss", zap.String("key", key), zap.Error(err))
		} else {
			r.logger.Debug("cache populated on miss", zap.String("key", key), zap.Duration("ttl", ttl))
		}
	}(facility)

	return facility, nil
}
