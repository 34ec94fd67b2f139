// Package finder wires the whole flow: resolve a location, open a map
// session on it, search, and lay out one card per result.
package finder

import (
	"context"

	"github.com/rs/zerolog/log"

	"YakinikuMap/src/cards"
	"YakinikuMap/src/locate"
	"YakinikuMap/src/places"
	"YakinikuMap/src/session"
	"YakinikuMap/src/types"
)

// NoteLoader reads the stored note for a place.
type NoteLoader interface {
	Load(ctx context.Context, placeID string) (types.LocalNote, error)
}

type Finder struct {
	Places *places.Client
	Notes  NoteLoader
}

type Result struct {
	Session *session.MapSession
	Board   *cards.Board
	Outcome places.Outcome

	// Location is only set by Start.
	Location locate.Resolution
}

// Start resolves the location through g and then bootstraps on it.
func (f *Finder) Start(ctx context.Context, g locate.Geolocator) Result {
	res := locate.Resolve(ctx, g)
	r := f.Bootstrap(ctx, res.Coordinate)
	r.Location = res
	return r
}

// Bootstrap opens a map session centered on coord and runs the search.
func (f *Finder) Bootstrap(ctx context.Context, coord types.Coordinate) Result {
	s := session.Bootstrap(coord)
	board := &cards.Board{}
	outcome := f.Places.Search(ctx, coord, &boardView{ctx: ctx, board: board, notes: f.Notes, origin: coord})
	return Result{Session: s, Board: board, Outcome: outcome}
}

type boardView struct {
	ctx    context.Context
	board  *cards.Board
	notes  NoteLoader
	origin types.Coordinate
}

func (v *boardView) SetStatus(text string) { v.board.SetStatus(text) }

func (v *boardView) Reset() { v.board.Reset() }

func (v *boardView) Render(place types.PlaceResult) {
	note, err := v.notes.Load(v.ctx, place.ID)
	if err != nil {
		log.Warn().Err(err).Str("place_id", place.ID).Msg("showing card without saved note")
		note = types.LocalNote{}
	}
	v.board.Append(cards.Build(place, note, v.origin))
}
