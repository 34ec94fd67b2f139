// Package places runs the restaurant text search and turns the API status
// into something a user can read.
package places

import (
	"context"
	"errors"
	"fmt"

	"github.com/honeycombio/beeline-go"
	"github.com/rs/zerolog/log"

	"YakinikuMap/src/types"
)

const (
	MsgSearching    = "Searching for yakiniku restaurants..."
	MsgNoResults    = "No results found."
	MsgAccessDenied = "Access denied: check the API key restrictions and that the key configured for this site is the right one."
	MsgFatal        = "A fatal initialization error occurred. Check the server log."
)

type Kind int

const (
	Success Kind = iota
	Empty
	AccessDenied
	Failed
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Empty:
		return "empty"
	case AccessDenied:
		return "access_denied"
	case Failed:
		return "failed"
	case Fatal:
		return "fatal"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// SetupError means the search could not even be issued, for instance
// because the backend client could not be constructed.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string { return "search setup: " + e.Err.Error() }
func (e *SetupError) Unwrap() error { return e.Err }

type Outcome struct {
	Kind    Kind
	Status  types.Status
	Results []types.PlaceResult
	Err     error
}

// Message is the status line shown for the outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case Success:
		return fmt.Sprintf("Found %d yakiniku restaurants.", len(o.Results))
	case Empty:
		return MsgNoResults
	case AccessDenied:
		return MsgAccessDenied
	case Fatal:
		return MsgFatal
	default:
		return fmt.Sprintf("Search failed. Status: %s", o.Status)
	}
}

// Classify maps an API status and result count to an outcome kind.
func Classify(status types.Status, n int) Kind {
	switch {
	case status == types.StatusOK && n > 0:
		return Success
	case status == types.StatusOK, status == types.StatusZeroResults:
		return Empty
	case status == types.StatusRequestDenied, status == types.StatusTargetBlocked:
		return AccessDenied
	default:
		return Failed
	}
}

// View is the status line and result container a search reports into.
type View interface {
	SetStatus(text string)
	Reset()
	Render(place types.PlaceResult)
}

type Client struct {
	Searcher types.Searcher
	Query    string
	Radius   uint
}

func NewClient(s types.Searcher, query string, radius uint) *Client {
	if query == "" {
		query = types.DefaultQuery
	}
	if radius == 0 {
		radius = types.DefaultRadius
	}
	return &Client{Searcher: s, Query: query, Radius: radius}
}

// Search issues one text search around coord and reports into view. It is
// never retried.
func (c *Client) Search(ctx context.Context, coord types.Coordinate, view View) Outcome {
	ctx, span := beeline.StartSpan(ctx, "places.search")
	defer span.Send()
	span.AddField("query", c.Query)
	span.AddField("radius", c.Radius)

	view.SetStatus(MsgSearching)
	view.Reset()

	outcome := c.run(ctx, coord)
	span.AddField("outcome", outcome.Kind.String())
	span.AddField("status", string(outcome.Status))

	view.SetStatus(outcome.Message())
	if outcome.Kind == Success {
		for _, place := range outcome.Results {
			view.Render(place)
		}
	}
	return outcome
}

func (c *Client) run(ctx context.Context, coord types.Coordinate) Outcome {
	if c.Searcher == nil {
		err := &SetupError{Err: errors.New("no search backend configured")}
		log.Error().Err(err).Msg("fatal initialization error")
		return Outcome{Kind: Fatal, Err: err}
	}

	results, status, err := c.Searcher.TextSearch(ctx, types.TextQuery{
		Location: coord,
		Radius:   c.Radius,
		Query:    c.Query,
	})
	if err != nil {
		var setupErr *SetupError
		if !errors.As(err, &setupErr) {
			err = &SetupError{Err: err}
		}
		log.Error().Err(err).Msg("fatal initialization error")
		return Outcome{Kind: Fatal, Err: err}
	}

	kind := Classify(status, len(results))
	switch kind {
	case Success:
		log.Info().Int("count", len(results)).Msg("search finished")
	case Empty:
		log.Info().Msg("search returned no results")
	default:
		log.Warn().Str("status", string(status)).Msg("search failed")
	}
	return Outcome{Kind: kind, Status: status, Results: results}
}
