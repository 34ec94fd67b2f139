package locate

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"YakinikuMap/src/types"
)

type countingGeolocator struct {
	calls int
	coord types.Coordinate
	err   error
}

func (c *countingGeolocator) CurrentPosition(context.Context) (types.Coordinate, error) {
	c.calls++
	return c.coord, c.err
}

func TestResolveDeniedFallsBackToDefault(t *testing.T) {
	g := &countingGeolocator{err: ErrPermissionDenied}
	res := Resolve(context.Background(), g)
	if res.Coordinate != (types.Coordinate{Lat: 43.0645, Lng: 141.3469}) {
		t.Fatalf("got %+v, want default coordinate", res.Coordinate)
	}
	if res.FromDevice {
		t.Fatal("FromDevice should be false after a denial")
	}
	if !errors.Is(res.Err, ErrPermissionDenied) {
		t.Fatalf("Err = %v, want ErrPermissionDenied", res.Err)
	}
	if g.calls != 1 {
		t.Fatalf("geolocator called %d times, want 1", g.calls)
	}
}

func TestResolveUnsupported(t *testing.T) {
	res := Resolve(context.Background(), nil)
	if res.Coordinate != types.DefaultCoordinate {
		t.Fatalf("got %+v, want default coordinate", res.Coordinate)
	}
	if !errors.Is(res.Err, ErrUnsupported) {
		t.Fatalf("Err = %v, want ErrUnsupported", res.Err)
	}
}

func TestResolveDevicePosition(t *testing.T) {
	want := types.Coordinate{Lat: 35.6812, Lng: 139.7671}
	g := &countingGeolocator{coord: want}
	res := Resolve(context.Background(), g)
	if res.Coordinate != want || !res.FromDevice || res.Err != nil {
		t.Fatalf("got %+v", res)
	}
	if g.calls != 1 {
		t.Fatalf("geolocator called %d times, want 1", g.calls)
	}
}

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		nilGeo  bool
		want    types.Coordinate
		wantErr error
	}{
		{name: "nothing reported", query: "", nilGeo: true},
		{name: "unsupported", query: "geo_error=0", nilGeo: true},
		{name: "denied", query: "geo_error=1", wantErr: ErrPermissionDenied},
		{name: "unavailable", query: "geo_error=2", wantErr: ErrPositionUnavailable},
		{name: "timeout", query: "geo_error=3", wantErr: ErrTimeout},
		{name: "garbage code", query: "geo_error=x", wantErr: ErrPositionUnavailable},
		{name: "bad lat", query: "lat=abc&lng=1", wantErr: ErrPositionUnavailable},
		{name: "position", query: "lat=35.5&lng=139.25", want: types.Coordinate{Lat: 35.5, Lng: 139.25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			g := FromQuery(q)
			if tt.nilGeo {
				if g != nil {
					t.Fatalf("expected nil geolocator, got %#v", g)
				}
				return
			}
			if g == nil {
				t.Fatal("unexpected nil geolocator")
			}
			coord, err := g.CurrentPosition(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && coord != tt.want {
				t.Fatalf("coord = %+v, want %+v", coord, tt.want)
			}
		})
	}
}
