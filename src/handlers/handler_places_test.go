package handlers

import (
	"context"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"YakinikuMap/src/finder"
	"YakinikuMap/src/notes"
	"YakinikuMap/src/places"
	"YakinikuMap/src/session"
	"YakinikuMap/src/token"
	"YakinikuMap/src/types"
)

type stubSearcher struct {
	results []types.PlaceResult
	status  types.Status
	center  types.Coordinate
}

func (s *stubSearcher) TextSearch(_ context.Context, q types.TextQuery) ([]types.PlaceResult, types.Status, error) {
	s.center = q.Location
	return s.results, s.status, nil
}

type stubRenderer struct{ last *session.MapSession }

func (r *stubRenderer) RenderMap(_ context.Context, s *session.MapSession) (image.Image, error) {
	r.last = s
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

type stubPhotos struct{ maxWidth, maxHeight uint }

func (p *stubPhotos) Photo(_ context.Context, ref string, maxWidth, maxHeight uint) (string, io.ReadCloser, error) {
	p.maxWidth, p.maxHeight = maxWidth, maxHeight
	return "image/jpeg", io.NopCloser(strings.NewReader("jpeg:" + ref)), nil
}

func newTestServer(t *testing.T, searcher *stubSearcher) (*Server, http.Handler) {
	t.Helper()
	store := notes.NewStore(notes.NewMemory())
	f := &finder.Finder{Places: places.NewClient(searcher, "", 0), Notes: store}
	srv, err := NewServer(f, store, token.NewCodec([]byte("test")))
	if err != nil {
		t.Fatal(err)
	}
	return srv, srv.Routes()
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleResults() []types.PlaceResult {
	rating := 4.1
	return []types.PlaceResult{
		{ID: "p1", Name: "Daruma", Address: "Susukino", Rating: &rating, RatingCount: 10,
			Photos: []types.Photo{{Reference: "r1"}}, Location: types.Coordinate{Lat: 43.055, Lng: 141.353}},
		{ID: "p2", Name: "Gyu", Location: types.Coordinate{Lat: 43.06, Lng: 141.35}},
	}
}

func TestPageAsksForLocationFirst(t *testing.T) {
	searcher := &stubSearcher{status: types.StatusOK, results: sampleResults()}
	_, h := newTestServer(t, searcher)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "navigator.geolocation") {
		t.Fatal("locating page does not ask for the position")
	}
	if searcher.center != (types.Coordinate{}) {
		t.Fatal("search ran before the location was reported")
	}
}

func TestPageRendersCards(t *testing.T) {
	searcher := &stubSearcher{status: types.StatusOK, results: sampleResults()}
	_, h := newTestServer(t, searcher)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/?geo_error=1", nil))
	body := rec.Body.String()
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, body)
	}
	if searcher.center != types.DefaultCoordinate {
		t.Fatalf("searched at %+v, want default", searcher.center)
	}
	if n := strings.Count(body, `class="ramen-card"`); n != 2 {
		t.Fatalf("rendered %d cards, want 2", n)
	}
	if strings.Index(body, "Daruma") > strings.Index(body, "Gyu") {
		t.Fatal("cards out of order")
	}
	for _, want := range []string{"Found 2 yakiniku restaurants.", "No photo available", "Address unknown", `id="gallery-status"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatal("no session cookie set")
	}
}

func TestPlacesAPIAccessDenied(t *testing.T) {
	_, h := newTestServer(t, &stubSearcher{status: types.StatusTargetBlocked})

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/places?lat=35&lng=139", nil))
	var resp placesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != places.MsgAccessDenied || resp.Outcome != "access_denied" || len(resp.Cards) != 0 {
		t.Fatalf("got %+v", resp)
	}
	if resp.Session.Center != (types.Coordinate{Lat: 35, Lng: 139}) {
		t.Fatalf("session center %+v", resp.Session.Center)
	}
}

func TestNoteSaveAndLoad(t *testing.T) {
	_, h := newTestServer(t, &stubSearcher{status: types.StatusZeroResults})

	form := url.Values{"rating": {"4.5"}, "memo": {"great"}, "name": {"Daruma"}}
	req := httptest.NewRequest(http.MethodPost, "/api/notes/p1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(h, req)
	var saved noteResponse
	if err := json.NewDecoder(rec.Body).Decode(&saved); err != nil {
		t.Fatal(err)
	}
	if saved.Note != (types.LocalNote{Rating: 4.5, Memo: "great"}) || !strings.Contains(saved.Message, "Daruma") {
		t.Fatalf("saved %+v", saved)
	}

	rec = do(h, httptest.NewRequest(http.MethodGet, "/api/notes/p1", nil))
	var loaded noteResponse
	if err := json.NewDecoder(rec.Body).Decode(&loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.Note != (types.LocalNote{Rating: 4.5, Memo: "great"}) {
		t.Fatalf("loaded %+v", loaded)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/notes/p1", strings.NewReader(`{"rating":"abc","memo":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec = do(h, req)
	if err := json.NewDecoder(rec.Body).Decode(&saved); err != nil {
		t.Fatal(err)
	}
	if saved.Note != (types.LocalNote{}) {
		t.Fatalf("non-numeric rating stored %+v", saved.Note)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/notes/p1", strings.NewReader(`{"rating":3,"memo":"ok"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = do(h, req)
	if err := json.NewDecoder(rec.Body).Decode(&saved); err != nil {
		t.Fatal(err)
	}
	if saved.Note != (types.LocalNote{Rating: 3, Memo: "ok"}) {
		t.Fatalf("numeric rating stored %+v", saved.Note)
	}
}

func TestGetMissingNote(t *testing.T) {
	_, h := newTestServer(t, &stubSearcher{status: types.StatusZeroResults})
	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/notes/unknown", nil))
	var loaded noteResponse
	if err := json.NewDecoder(rec.Body).Decode(&loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.Note != (types.LocalNote{}) {
		t.Fatalf("got %+v", loaded.Note)
	}
}

func sessionCookie(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/places?geo_error=1", nil))
	for _, c := range rec.Result().Cookies() {
		if c.Name == token.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func click(t *testing.T, h http.Handler, cookie *http.Cookie, target string) clickResponse {
	t.Helper()
	body := `{"target":"` + target + `","place_id":"p1","lat":43.055,"lng":141.353}`
	req := httptest.NewRequest(http.MethodPost, "/api/cards/click", strings.NewReader(body))
	req.AddCookie(cookie)
	rec := do(h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp clickResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestCardClick(t *testing.T) {
	_, h := newTestServer(t, &stubSearcher{status: types.StatusOK, results: sampleResults()})
	cookie := sessionCookie(t, h)

	resp := click(t, h, cookie, "BUTTON")
	if resp.Recentered || resp.Session.Center != types.DefaultCoordinate || resp.Session.Zoom != 13 {
		t.Fatalf("button click moved the map: %+v", resp)
	}

	resp = click(t, h, cookie, "H3")
	if !resp.Recentered || resp.Session.Center != (types.Coordinate{Lat: 43.055, Lng: 141.353}) || resp.Session.Zoom != 16 {
		t.Fatalf("body click did not recenter: %+v", resp)
	}
}

func TestCardClickWithoutSession(t *testing.T) {
	_, h := newTestServer(t, &stubSearcher{})
	req := httptest.NewRequest(http.MethodPost, "/api/cards/click", strings.NewReader(`{"target":"DIV"}`))
	if rec := do(h, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestMapAndPhoto(t *testing.T) {
	srv, h := newTestServer(t, &stubSearcher{status: types.StatusZeroResults})

	if rec := do(h, httptest.NewRequest(http.MethodGet, "/map.png", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("map without renderer: status %d", rec.Code)
	}

	renderer := &stubRenderer{}
	photos := &stubPhotos{}
	srv.Maps, srv.Photos = renderer, photos

	rec := do(h, httptest.NewRequest(http.MethodGet, "/map.png", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("map: status %d type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if renderer.last == nil || renderer.last.Center != types.DefaultCoordinate {
		t.Fatalf("rendered %+v", renderer.last)
	}

	rec = do(h, httptest.NewRequest(http.MethodGet, "/photo?ref=r1&maxwidth=9000&maxheight=200", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "jpeg:r1" {
		t.Fatalf("photo: status %d body %q", rec.Code, rec.Body.String())
	}
	if photos.maxWidth != 400 || photos.maxHeight != 200 {
		t.Fatalf("photo bounds %dx%d", photos.maxWidth, photos.maxHeight)
	}

	if rec := do(h, httptest.NewRequest(http.MethodGet, "/photo", nil)); rec.Code != http.StatusBadRequest {
		t.Fatalf("photo without ref: status %d", rec.Code)
	}
}
