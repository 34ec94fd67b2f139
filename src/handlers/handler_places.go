package handlers

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"YakinikuMap/src/cards"
	"YakinikuMap/src/finder"
	"YakinikuMap/src/locate"
	"YakinikuMap/src/notes"
	"YakinikuMap/src/places"
	"YakinikuMap/src/session"
	"YakinikuMap/src/token"
	"YakinikuMap/src/types"
)

//go:embed templates/index.html
var templates embed.FS

type Server struct {
	Finder *finder.Finder
	Notes  *notes.Store
	Codec  *token.Codec
	// Photos and Maps are optional; their endpoints answer 404 without them.
	Photos places.PhotoFetcher
	Maps   session.Renderer

	tmpl *template.Template
}

type pageData struct {
	Locating  bool
	Session   *session.MapSession
	Board     *cards.Board
	MapURL    string
	NoPhoto   string
	RatingMin int
	RatingMax int
}

type placesResponse struct {
	Status        string              `json:"status"`
	Outcome       string              `json:"outcome"`
	APIStatus     types.Status        `json:"api_status,omitempty"`
	Session       *session.MapSession `json:"session"`
	Cards         []cards.Card        `json:"cards"`
	LocationError string              `json:"location_error,omitempty"`
}

type noteResponse struct {
	PlaceID string          `json:"place_id"`
	Note    types.LocalNote `json:"note"`
	Message string          `json:"message,omitempty"`
}

type clickRequest struct {
	Target  cards.Target `json:"target"`
	PlaceID string       `json:"place_id"`
	Lat     float64      `json:"lat"`
	Lng     float64      `json:"lng"`
}

type clickResponse struct {
	Recentered bool                `json:"recentered"`
	Session    *session.MapSession `json:"session"`
	MapURL     string              `json:"map_url"`
}

func NewServer(f *finder.Finder, store *notes.Store, codec *token.Codec) (*Server, error) {
	tmpl, err := LoadTemplate()
	if err != nil {
		return nil, err
	}
	return &Server{Finder: f, Notes: store, Codec: codec, tmpl: tmpl}, nil
}

func LoadTemplate() (*template.Template, error) {
	return template.New("index.html").Funcs(template.FuncMap{
		"deref": func(f *float64) float64 { return *f },
		"km":    func(km float64) string { return fmt.Sprintf("%.1f km away", km) },
	}).ParseFS(templates, "templates/index.html")
}

// Routes returns the full handler, session middleware included.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.HandlePage)
	mux.HandleFunc("GET /api/places", s.HandlePlacesAPI)
	mux.HandleFunc("GET /api/notes/{id}", s.HandleGetNote)
	mux.HandleFunc("POST /api/notes/{id}", s.HandleSaveNote)
	mux.HandleFunc("PUT /api/notes/{id}", s.HandleSaveNote)
	mux.HandleFunc("POST /api/cards/click", s.HandleCardClick)
	mux.HandleFunc("GET /map.png", s.HandleMap)
	mux.HandleFunc("GET /photo", s.HandlePhoto)
	return s.Codec.Middleware(mux)
}

func reportedLocation(r *http.Request) bool {
	q := r.URL.Query()
	return q.Has("geo_error") || (q.Has("lat") && q.Has("lng"))
}

func (s *Server) HandlePage(w http.ResponseWriter, r *http.Request) {
	if !reportedLocation(r) {
		s.render(w, &pageData{Locating: true})
		return
	}

	result := s.Finder.Start(r.Context(), locate.FromQuery(r.URL.Query()))
	if err := s.Codec.SetCookie(w, result.Session); err != nil {
		log.Error().Err(err).Msg("failed to store map session")
	}

	data := &pageData{
		Session:   result.Session,
		Board:     result.Board,
		NoPhoto:   cards.NoPhoto,
		RatingMin: cards.RatingMin,
		RatingMax: cards.RatingMax,
	}
	if s.Maps != nil {
		data.MapURL = mapURL(result.Session)
	}
	s.render(w, data)
}

func (s *Server) render(w http.ResponseWriter, data *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("error rendering template")
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

func (s *Server) HandlePlacesAPI(w http.ResponseWriter, r *http.Request) {
	result := s.Finder.Start(r.Context(), locate.FromQuery(r.URL.Query()))
	if err := s.Codec.SetCookie(w, result.Session); err != nil {
		log.Error().Err(err).Msg("failed to store map session")
	}

	resp := placesResponse{
		Status:    result.Board.Status,
		Outcome:   result.Outcome.Kind.String(),
		APIStatus: result.Outcome.Status,
		Session:   result.Session,
		Cards:     result.Board.Cards,
	}
	if result.Location.Err != nil {
		resp.LocationError = result.Location.Err.Error()
	}
	if resp.Cards == nil {
		resp.Cards = []cards.Card{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleGetNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	note, err := s.Notes.Load(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("place_id", id).Msg("failed to load note")
		writeError(w, http.StatusInternalServerError, "Error loading note")
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{PlaceID: id, Note: note})
}

func (s *Server) HandleSaveNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Rating string `json:"rating"`
		Memo   string `json:"memo"`
		Name   string `json:"name"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Rating json.RawMessage `json:"rating"`
			Memo   string          `json:"memo"`
			Name   string          `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		req.Rating = rawRating(body.Rating)
		req.Memo, req.Name = body.Memo, body.Name
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid form")
			return
		}
		req.Rating, req.Memo, req.Name = r.PostForm.Get("rating"), r.PostForm.Get("memo"), r.PostForm.Get("name")
	}
	if req.Name == "" {
		req.Name = id
	}

	h := cards.Wire(cards.Card{PlaceID: id, Name: req.Name}, s.Notes, token.FromContext(r.Context()))
	note, msg, err := h.Save(r.Context(), req.Rating, req.Memo)
	if err != nil {
		log.Error().Err(err).Str("place_id", id).Msg("failed to save note")
		writeError(w, http.StatusInternalServerError, "Error saving note")
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{PlaceID: id, Note: note, Message: msg})
}

// rawRating accepts both "4.5" and 4.5 in a JSON body.
func rawRating(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (s *Server) HandleCardClick(w http.ResponseWriter, r *http.Request) {
	sess := token.FromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusBadRequest, "No map session")
		return
	}

	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	card := cards.Card{PlaceID: req.PlaceID, Location: types.Coordinate{Lat: req.Lat, Lng: req.Lng}}
	recentered := cards.Wire(card, s.Notes, sess).Click(req.Target)
	if recentered {
		if err := s.Codec.SetCookie(w, sess); err != nil {
			log.Error().Err(err).Msg("failed to store map session")
		}
	}
	writeJSON(w, http.StatusOK, clickResponse{Recentered: recentered, Session: sess, MapURL: mapURL(sess)})
}

func mapURL(s *session.MapSession) string {
	return fmt.Sprintf("/map.png?center=%s&zoom=%d", s.Center, s.Zoom)
}

func (s *Server) HandleMap(w http.ResponseWriter, r *http.Request) {
	if s.Maps == nil {
		http.NotFound(w, r)
		return
	}
	sess := token.FromContext(r.Context())
	if sess == nil {
		sess = session.Bootstrap(types.DefaultCoordinate)
	}

	img, err := s.Maps.RenderMap(r.Context(), sess)
	if err != nil {
		log.Error().Err(err).Msg("failed to render map")
		http.Error(w, "Error rendering map", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		log.Error().Err(err).Msg("failed to encode map")
	}
}

func (s *Server) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	if s.Photos == nil {
		http.NotFound(w, r)
		return
	}
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		http.Error(w, "Missing photo reference", http.StatusBadRequest)
		return
	}
	maxWidth := boundedSize(r.URL.Query().Get("maxwidth"))
	maxHeight := boundedSize(r.URL.Query().Get("maxheight"))

	contentType, body, err := s.Photos.Photo(r.Context(), ref, maxWidth, maxHeight)
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch photo")
		http.Error(w, "Error fetching photo", http.StatusBadGateway)
		return
	}
	defer body.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(time.Hour.Seconds())))
	if _, err := io.Copy(w, body); err != nil {
		log.Debug().Err(err).Msg("photo copy interrupted")
	}
}

// boundedSize parses a photo dimension, capped at types.PhotoMaxSize.
func boundedSize(v string) uint {
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 || n > types.PhotoMaxSize {
		return types.PhotoMaxSize
	}
	return uint(n)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("error encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
