package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"YakinikuMap/src/types"
)

type Config struct {
	ListenAddr        string
	GoogleMapsKey     string
	SearchBackend     string
	SearchQuery       string
	SearchRadius      uint
	ElasticURL        string
	ElasticIndex      string
	NotesBackend      string
	RedisURL          string
	NotesDB           string
	SessionSigningKey string
	HoneycombKey      string
	LogLevel          string
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("error loading .env file")
	}

	return Config{
		ListenAddr:        getenv("LISTEN_ADDR", ":8888"),
		GoogleMapsKey:     os.Getenv("GOOGLE_MAPS_KEY"),
		SearchBackend:     getenv("SEARCH_BACKEND", "google"),
		SearchQuery:       getenv("SEARCH_QUERY", types.DefaultQuery),
		SearchRadius:      getenvUint("SEARCH_RADIUS", types.DefaultRadius),
		ElasticURL:        getenv("ELASTIC_URL", "http://localhost:9200"),
		ElasticIndex:      getenv("ELASTIC_INDEX", "places"),
		NotesBackend:      getenv("NOTES_BACKEND", "memory"),
		RedisURL:          os.Getenv("REDIS_URL"),
		NotesDB:           os.Getenv("NOTES_DB"),
		SessionSigningKey: os.Getenv("SESSION_SIGNING_KEY"),
		HoneycombKey:      os.Getenv("HONEYCOMB_KEY"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
	}
}

// SetupLogging configures the global zerolog logger.
func (c Config) SetupLogging() {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvUint(key string, fallback uint) uint {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring invalid number")
		return fallback
	}
	return uint(n)
}
