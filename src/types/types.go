package types

import (
	"context"
	"fmt"
)

const (
	DefaultQuery  = "焼肉"
	DefaultRadius = 1000

	InitialZoom  = 13
	FocusZoom    = 16
	PhotoMaxSize = 400
)

// DefaultCoordinate is Sapporo, Chuo-ku. Used whenever the device position
// cannot be obtained.
var DefaultCoordinate = Coordinate{Lat: 43.0645, Lng: 141.3469}

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lng)
}

type Photo struct {
	Reference string `json:"reference"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

type PlaceResult struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Address          string     `json:"address,omitempty"`
	FormattedAddress string     `json:"formatted_address,omitempty"`
	Photos           []Photo    `json:"photos,omitempty"`
	Rating           *float64   `json:"rating,omitempty"`
	RatingCount      int        `json:"rating_count,omitempty"`
	Location         Coordinate `json:"location"`
}

// LocalNote is the user's own rating and memo for one place.
type LocalNote struct {
	Rating float64 `json:"rating"`
	Memo   string  `json:"memo"`
}

type Status string

const (
	StatusOK             Status = "OK"
	StatusZeroResults    Status = "ZERO_RESULTS"
	StatusRequestDenied  Status = "REQUEST_DENIED"
	StatusInvalidRequest Status = "INVALID_REQUEST"
	StatusOverQueryLimit Status = "OVER_QUERY_LIMIT"
	StatusUnknownError   Status = "UNKNOWN_ERROR"
)

// StatusTargetBlocked has been seen reported for referrer-restricted keys
// but is not part of the documented Places status list.
const StatusTargetBlocked Status = "APITARGETBLOCKEDMAPERROR"

type TextQuery struct {
	Location Coordinate
	Radius   uint
	Query    string
}

// Searcher runs one text search. A non-OK status is reported through the
// Status return; err is reserved for failures that happen before a request
// could be issued.
type Searcher interface {
	TextSearch(ctx context.Context, q TextQuery) ([]PlaceResult, Status, error)
}
