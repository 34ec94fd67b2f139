package places

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"

	"github.com/honeycombio/beeline-go"
	"github.com/rs/zerolog/log"
	gmaps "googlemaps.github.io/maps"

	"YakinikuMap/src/session"
	"YakinikuMap/src/types"
)

const mapSize = "640x400"

// PhotoFetcher downloads a place photo bounded to maxWidth x maxHeight.
type PhotoFetcher interface {
	Photo(ctx context.Context, ref string, maxWidth, maxHeight uint) (contentType string, body io.ReadCloser, err error)
}

// Google talks to the Google Maps Platform web services. The underlying
// client is created on first use so that a missing key surfaces as a
// SetupError from the search rather than at startup.
type Google struct {
	apiKey string

	once   sync.Once
	client *gmaps.Client
	err    error
}

func NewGoogle(apiKey string) *Google {
	return &Google{apiKey: apiKey}
}

func (g *Google) mapsClient() (*gmaps.Client, error) {
	g.once.Do(func() {
		g.client, g.err = gmaps.NewClient(gmaps.WithAPIKey(g.apiKey))
		if g.err != nil {
			g.err = &SetupError{Err: fmt.Errorf("create maps client: %w", g.err)}
		}
	})
	return g.client, g.err
}

func (g *Google) TextSearch(ctx context.Context, q types.TextQuery) ([]types.PlaceResult, types.Status, error) {
	client, err := g.mapsClient()
	if err != nil {
		return nil, "", err
	}

	resp, err := client.TextSearch(ctx, &gmaps.TextSearchRequest{
		Query:    q.Query,
		Location: &gmaps.LatLng{Lat: q.Location.Lat, Lng: q.Location.Lng},
		Radius:   q.Radius,
	})
	if err != nil {
		status := StatusFromError(err)
		log.Debug().Err(err).Str("status", string(status)).Msg("text search returned an error")
		return nil, status, nil
	}

	results := make([]types.PlaceResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, fromGoogle(r))
	}
	if len(results) == 0 {
		return results, types.StatusZeroResults, nil
	}
	return results, types.StatusOK, nil
}

// StatusFromError recovers the API status from an error returned by the
// maps client, which formats them as "maps: STATUS - message".
func StatusFromError(err error) types.Status {
	rest, ok := strings.CutPrefix(err.Error(), "maps: ")
	if !ok {
		return types.StatusUnknownError
	}
	status, _, _ := strings.Cut(rest, " - ")
	status = strings.TrimSpace(status)
	if status == "" || strings.ContainsAny(status, " :") {
		return types.StatusUnknownError
	}
	return types.Status(status)
}

func fromGoogle(r gmaps.PlacesSearchResult) types.PlaceResult {
	p := types.PlaceResult{
		ID:               r.PlaceID,
		Name:             r.Name,
		Address:          r.Vicinity,
		FormattedAddress: r.FormattedAddress,
		RatingCount:      r.UserRatingsTotal,
		Location: types.Coordinate{
			Lat: r.Geometry.Location.Lat,
			Lng: r.Geometry.Location.Lng,
		},
	}
	if r.Rating > 0 {
		rating := float64(r.Rating)
		p.Rating = &rating
	}
	for _, photo := range r.Photos {
		p.Photos = append(p.Photos, types.Photo{
			Reference: photo.PhotoReference,
			Width:     photo.Width,
			Height:    photo.Height,
		})
	}
	return p
}

func (g *Google) Photo(ctx context.Context, ref string, maxWidth, maxHeight uint) (string, io.ReadCloser, error) {
	ctx, span := beeline.StartSpan(ctx, "places.photo")
	defer span.Send()

	if ref == "" {
		return "", nil, errors.New("empty photo reference")
	}
	client, err := g.mapsClient()
	if err != nil {
		return "", nil, err
	}
	resp, err := client.PlacePhoto(ctx, &gmaps.PlacePhotoRequest{
		PhotoReference: ref,
		MaxWidth:       maxWidth,
		MaxHeight:      maxHeight,
	})
	if err != nil {
		span.AddField("error", err)
		return "", nil, fmt.Errorf("fetch photo: %w", err)
	}
	return resp.ContentType, resp.Data, nil
}

// RenderMap draws the session view with the Static Maps API.
func (g *Google) RenderMap(ctx context.Context, s *session.MapSession) (image.Image, error) {
	ctx, span := beeline.StartSpan(ctx, "places.static_map")
	defer span.Send()

	client, err := g.mapsClient()
	if err != nil {
		return nil, err
	}
	img, err := client.StaticMap(ctx, &gmaps.StaticMapRequest{
		Center:  s.Center.String(),
		Zoom:    s.Zoom,
		Size:    mapSize,
		Format:  "png8",
		MapType: "roadmap",
		Markers: []gmaps.Marker{{
			Location: []gmaps.LatLng{{Lat: s.Marker.Position.Lat, Lng: s.Marker.Position.Lng}},
			Label:    "H",
			Color:    "red",
		}},
	})
	if err != nil {
		span.AddField("error", err)
		return nil, fmt.Errorf("render static map: %w", err)
	}
	return img, nil
}
