package api

import (
	"context"
	"time"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type FacilityResolver interface {
	ResolveFacility(ctx context.Context, code string) (Facility, error)
}
