// Package notes keeps the user's own rating and memo per place in a flat
// key-value store, keyed by the place ID.
package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/honeycombio/beeline-go"
	"github.com/rs/zerolog/log"

	"YakinikuMap/src/types"
)

// KV is a flat string store. Get reports ok=false for a missing key.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

type Store struct {
	kv KV
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Load returns the note for placeID, or the zero note if none was saved.
func (s *Store) Load(ctx context.Context, placeID string) (types.LocalNote, error) {
	ctx, span := beeline.StartSpan(ctx, "notes.load")
	defer span.Send()

	raw, ok, err := s.kv.Get(ctx, placeID)
	if err != nil {
		span.AddField("error", err)
		return types.LocalNote{}, fmt.Errorf("load note %q: %w", placeID, err)
	}
	if !ok {
		return types.LocalNote{}, nil
	}

	var note types.LocalNote
	if err := json.Unmarshal([]byte(raw), &note); err != nil {
		log.Warn().Err(err).Str("place_id", placeID).Msg("ignoring unreadable note")
		return types.LocalNote{}, nil
	}
	return note, nil
}

// Save replaces whatever was stored for placeID.
func (s *Store) Save(ctx context.Context, placeID string, note types.LocalNote) error {
	ctx, span := beeline.StartSpan(ctx, "notes.save")
	defer span.Send()

	b, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("encode note: %w", err)
	}
	if err := s.kv.Set(ctx, placeID, string(b)); err != nil {
		span.AddField("error", err)
		return fmt.Errorf("save note %q: %w", placeID, err)
	}
	return nil
}

// ParseRating reads a rating the way the form field is read: the longest
// leading decimal number, exponent included, or 0 when there is none.
func ParseRating(input string) float64 {
	s := strings.TrimSpace(input)
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digits := 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && isDigit(s[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	end := i
	// an exponent only counts when a digit follows it
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '-' || s[j] == '+') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			end = j
		}
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
