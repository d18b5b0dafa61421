// Package geo models the "ask the platform, tolerate absence" geolocation
// capability used when submitting feedback. Callers always get either a
// position or Unavailable; failures never surface as errors.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrNoPosition = errors.New("position unavailable")

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Valid reports whether the coordinates are finite and within range.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Result is either a position or Unavailable.
type Result struct {
	coords    Coordinates
	available bool
}

// Unavailable is the Result used whenever no position could be obtained.
var Unavailable = Result{}

// At builds an available Result.
func At(lat, lng float64) Result {
	return Result{coords: Coordinates{Lat: lat, Lng: lng}, available: true}
}

func (r Result) Coordinates() (Coordinates, bool) {
	return r.coords, r.available
}

func (r Result) Available() bool {
	return r.available
}

// Pointers returns lat/lng as nullable values for wire encoding.
func (r Result) Pointers() (lat, lng *float64) {
	if !r.available {
		return nil, nil
	}
	la, ln := r.coords.Lat, r.coords.Lng
	return &la, &ln
}

// Locator asks some platform for the current position.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Coordinates, error)

func (f LocatorFunc) Locate(ctx context.Context) (Coordinates, error) {
	return f(ctx)
}

// Resolve runs loc with a bounded wait. Errors, panics, timeouts, invalid
// positions and a nil locator all collapse to Unavailable.
func Resolve(ctx context.Context, loc Locator, timeout time.Duration) Result {
	if loc == nil {
		return Unavailable
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		coords Coordinates
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("locator panic: %v", r)}
			}
		}()
		c, err := loc.Locate(ctx)
		done <- outcome{coords: c, err: err}
	}()

	select {
	case <-ctx.Done():
		return Unavailable
	case o := <-done:
		if o.err != nil || !o.coords.Valid() {
			return Unavailable
		}
		return At(o.coords.Lat, o.coords.Lng)
	}
}

// FormLocator returns the position the browser reported through the
// feedback form's hidden fields. Blank or malformed values mean the browser
// had no position, was denied, or timed out.
func FormLocator(lat, lng string) Locator {
	return LocatorFunc(func(ctx context.Context) (Coordinates, error) {
		lat, lng = strings.TrimSpace(lat), strings.TrimSpace(lng)
		if lat == "" || lng == "" {
			return Coordinates{}, ErrNoPosition
		}
		la, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return Coordinates{}, fmt.Errorf("parse latitude: %w", err)
		}
		ln, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return Coordinates{}, fmt.Errorf("parse longitude: %w", err)
		}
		return Coordinates{Lat: la, Lng: ln}, nil
	})
}
