// Package locate acquires the device position for a new post.
package locate

import (
	"context"
	"errors"
	"fmt"

	"backend-catmap/internal/shared/geo"
)

var (
	ErrLocation        = errors.New("location unavailable")
	ErrLocationDenied  = fmt.Errorf("%w: permission denied", ErrLocation)
	ErrLocationTimeout = fmt.Errorf("%w: timed out", ErrLocation)
)

// Locator makes one fresh position request per call. Implementations must
// honour ctx; a cached fix is never returned.
type Locator interface {
	Locate(ctx context.Context) (geo.Coordinate, error)
}

// Func adapts a plain function to Locator.
type Func func(ctx context.Context) (geo.Coordinate, error)

func (f Func) Locate(ctx context.Context) (geo.Coordinate, error) {
	c, err := f(ctx)
	if err != nil {
		return geo.Coordinate{}, classify(ctx, err)
	}
	if !geo.ValidCoordinate(c.Lat, c.Lng) {
		return geo.Coordinate{}, fmt.Errorf("%w: device reported %v,%v", ErrLocation, c.Lat, c.Lng)
	}
	return c, nil
}

// Fixed reports the same position every time, e.g. from DEVICE_LOCATION.
type Fixed geo.Coordinate

func (f Fixed) Locate(ctx context.Context) (geo.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return geo.Coordinate{}, classify(ctx, err)
	}
	return geo.Coordinate(f), nil
}

// Denied is the locator for a device with no position permission.
type Denied struct{}

func (Denied) Locate(context.Context) (geo.Coordinate, error) {
	return geo.Coordinate{}, ErrLocationDenied
}

func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrLocation):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrLocationTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrLocation, err)
	}
}
