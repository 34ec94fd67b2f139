// Package locate resolves the coordinate a search is centered on.
package locate

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"YakinikuMap/src/types"
)

var (
	ErrUnsupported         = errors.New("geolocation is not supported")
	ErrPermissionDenied    = errors.New("geolocation permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("geolocation timed out")
)

// Geolocator produces the device position once.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (types.Coordinate, error)
}

type Resolution struct {
	Coordinate types.Coordinate
	FromDevice bool
	// Err is why the default coordinate was used, nil otherwise.
	Err        error
}

// Resolve asks g for the current position exactly once. A nil g, or any
// error from it, yields types.DefaultCoordinate.
func Resolve(ctx context.Context, g Geolocator) Resolution {
	if g == nil {
		log.Warn().Err(ErrUnsupported).Msg("using default location")
		return Resolution{Coordinate: types.DefaultCoordinate, Err: ErrUnsupported}
	}

	coord, err := g.CurrentPosition(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to get current location, using default location")
		return Resolution{Coordinate: types.DefaultCoordinate, Err: err}
	}
	return Resolution{Coordinate: coord, FromDevice: true}
}

// Fixed always reports the same coordinate.
type Fixed types.Coordinate

func (f Fixed) CurrentPosition(context.Context) (types.Coordinate, error) {
	return types.Coordinate(f), nil
}

// Failed always reports err.
type Failed struct{ Err error }

func (f Failed) CurrentPosition(context.Context) (types.Coordinate, error) {
	return types.Coordinate{}, f.Err
}

// Error codes reported by the browser's PositionError (2 is
// POSITION_UNAVAILABLE); 0 is used by the page when navigator.geolocation
// is missing.
const (
	codeUnsupported      = 0
	codePermissionDenied = 1
	codeTimeout          = 3
)

// FromQuery builds a Geolocator from what the browser reported in q. It
// returns nil when geolocation is unsupported or nothing was reported.
func FromQuery(q url.Values) Geolocator {
	if code := q.Get("geo_error"); code != "" {
		n, err := strconv.Atoi(code)
		if err != nil {
			return Failed{Err: ErrPositionUnavailable}
		}
		switch n {
		case codeUnsupported:
			return nil
		case codePermissionDenied:
			return Failed{Err: ErrPermissionDenied}
		case codeTimeout:
			return Failed{Err: ErrTimeout}
		default:
			return Failed{Err: ErrPositionUnavailable}
		}
	}

	if q.Get("lat") == "" || q.Get("lng") == "" {
		return nil
	}
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		return Failed{Err: ErrPositionUnavailable}
	}
	return Fixed{Lat: lat, Lng: lng}
}
