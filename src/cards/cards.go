// Package cards builds the per-restaurant cards shown under the map.
package cards

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/umahmood/haversine"

	"YakinikuMap/src/notes"
	"YakinikuMap/src/session"
	"YakinikuMap/src/types"
)

const (
	NoPhoto        = "No photo available"
	UnknownAddress = "Address unknown"

	RatingMin = 1
	RatingMax = 5
)

type Card struct {
	PlaceID     string           `json:"place_id"`
	Name        string           `json:"name"`
	Address     string           `json:"address"`
	PhotoURL    string           `json:"photo_url,omitempty"`
	PhotoAlt    string           `json:"photo_alt,omitempty"`
	Rating      *float64         `json:"rating,omitempty"`
	RatingCount int              `json:"rating_count,omitempty"`
	Note        types.LocalNote  `json:"note"`
	Location    types.Coordinate `json:"location"`
	DistanceKm  float64          `json:"distance_km"`
}

// HasPhoto reports whether the card shows a photo rather than the NoPhoto
// text.
func (c Card) HasPhoto() bool { return c.PhotoURL != "" }

// Build lays out one card. It does no I/O; note is whatever is stored for
// the place (or the zero note).
func Build(place types.PlaceResult, note types.LocalNote, origin types.Coordinate) Card {
	c := Card{
		PlaceID:    place.ID,
		Name:       place.Name,
		Address:    address(place),
		Note:       note,
		Location:   place.Location,
		Rating:     place.Rating,
		DistanceKm: distanceKm(origin, place.Location),
	}
	if c.Rating != nil {
		c.RatingCount = place.RatingCount
	}
	if len(place.Photos) > 0 {
		c.PhotoURL = PhotoURL(place.Photos[0].Reference)
		c.PhotoAlt = place.Name + " photo"
	}
	return c
}

// PhotoURL is the local path the photo handler serves ref from.
func PhotoURL(ref string) string {
	q := url.Values{}
	q.Set("ref", ref)
	q.Set("maxwidth", strconv.Itoa(types.PhotoMaxSize))
	q.Set("maxheight", strconv.Itoa(types.PhotoMaxSize))
	return "/photo?" + q.Encode()
}

func address(place types.PlaceResult) string {
	switch {
	case place.Address != "":
		return place.Address
	case place.FormattedAddress != "":
		return place.FormattedAddress
	default:
		return UnknownAddress
	}
}

func distanceKm(a, b types.Coordinate) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lng},
		haversine.Coord{Lat: b.Lat, Lon: b.Lng},
	)
	return km
}

// Target is the tag name of the element a click landed on.
type Target string

const (
	TargetButton   Target = "BUTTON"
	TargetTextarea Target = "TEXTAREA"
	TargetInput    Target = "INPUT"
)

// IsControl reports whether t is one of the card's interactive controls.
func (t Target) IsControl() bool {
	switch t {
	case TargetButton, TargetTextarea, TargetInput:
		return true
	}
	return false
}

// NoteSaver persists a LocalNote.
type NoteSaver interface {
	Save(ctx context.Context, placeID string, note types.LocalNote) error
}

type Handlers struct {
	// Save stores the editor's values and returns the acknowledgment to show.
	Save  func(ctx context.Context, ratingInput, memo string) (types.LocalNote, string, error)
	// Click recenters the map on the place unless target is a control. It
	// reports whether the map moved.
	Click func(target Target) bool
}

// Wire binds the card's save and click actions to a note store and a map
// session.
func Wire(card Card, saver NoteSaver, s *session.MapSession) Handlers {
	placeID, name, location := card.PlaceID, card.Name, card.Location
	return Handlers{
		Save: func(ctx context.Context, ratingInput, memo string) (types.LocalNote, string, error) {
			note := types.LocalNote{Rating: notes.ParseRating(ratingInput), Memo: memo}
			if err := saver.Save(ctx, placeID, note); err != nil {
				return types.LocalNote{}, "", err
			}
			return note, SavedMessage(name), nil
		},
		Click: func(target Target) bool {
			if target.IsControl() {
				return false
			}
			s.Recenter(location)
			return true
		},
	}
}

func SavedMessage(name string) string {
	return fmt.Sprintf("Saved the note for %q.", name)
}
