// Package session holds the map view a user is looking at. A MapSession is
// passed explicitly to everything that reads or moves the map.
package session

import (
	"context"
	"image"

	"github.com/google/uuid"

	"YakinikuMap/src/types"
)

const markerTitle = "Current location"

type Marker struct {
	Position types.Coordinate `json:"position"`
	Title    string           `json:"title"`
}

type MapSession struct {
	ID     string           `json:"id"`
	Center types.Coordinate `json:"center"`
	Zoom   int              `json:"zoom"`
	Marker Marker           `json:"marker"`
}

// Bootstrap creates a session centered on coord with a marker on it.
func Bootstrap(coord types.Coordinate) *MapSession {
	return &MapSession{
		ID:     uuid.New().String(),
		Center: coord,
		Zoom:   types.InitialZoom,
		Marker: Marker{Position: coord, Title: markerTitle},
	}
}

// Recenter moves the view to coord and zooms in. The marker stays where the
// user is.
func (s *MapSession) Recenter(coord types.Coordinate) {
	s.Center = coord
	s.Zoom = types.FocusZoom
}

// Renderer draws the current view of a session.
type Renderer interface {
	RenderMap(ctx context.Context, s *MapSession) (image.Image, error)
}
