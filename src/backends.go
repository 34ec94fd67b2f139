package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"YakinikuMap/src/config"
	"YakinikuMap/src/db"
	"YakinikuMap/src/notes"
	"YakinikuMap/src/places"
	"YakinikuMap/src/session"
	"YakinikuMap/src/types"
)

type backends struct {
	searcher types.Searcher
	photos   places.PhotoFetcher
	maps     session.Renderer
	elastic  *db.ElasticStore
}

func (b *backends) Close() {
	if b.elastic != nil {
		b.elastic.Stop()
	}
}

func newBackends(c config.Config) (*backends, error) {
	var google *places.Google
	if c.GoogleMapsKey != "" {
		google = places.NewGoogle(c.GoogleMapsKey)
	}

	b := &backends{}
	switch c.SearchBackend {
	case "google":
		if google == nil {
			// the search reports the missing key as a setup failure
			google = places.NewGoogle("")
		}
		b.searcher = google
	case "elastic":
		b.elastic = db.NewElasticStore(c.ElasticURL, c.ElasticIndex)
		b.searcher = b.elastic
	default:
		return nil, fmt.Errorf("unknown search backend %q", c.SearchBackend)
	}

	if google != nil {
		b.photos = google
		b.maps = google
	}
	return b, nil
}

type closeFunc func() error

func newNoteStore(c config.Config) (*notes.Store, closeFunc, error) {
	switch c.NotesBackend {
	case "memory":
		log.Warn().Msg("notes are kept in memory and will be lost on exit")
		return notes.NewStore(notes.NewMemory()), func() error { return nil }, nil
	case "redis":
		if c.RedisURL == "" {
			return nil, nil, fmt.Errorf("REDIS_URL is required for the redis note store")
		}
		kv, err := notes.NewRedis(c.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return notes.NewStore(kv), kv.Close, nil
	case "sqlite":
		path := c.NotesDB
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, nil, fmt.Errorf("resolve home dir: %w", err)
			}
			path = filepath.Join(home, ".yakiniku", "notes.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create notes dir: %w", err)
		}
		kv, err := notes.NewSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return notes.NewStore(kv), kv.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown notes backend %q", c.NotesBackend)
	}
}

func signingKey(c config.Config) []byte {
	if c.SessionSigningKey != "" {
		return []byte(c.SessionSigningKey)
	}
	log.Warn().Msg("SESSION_SIGNING_KEY is not set, map sessions will not survive a restart")
	return []byte(uuid.NewString())
}
