// Package token carries a MapSession between requests as a signed JWT.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog/log"

	"YakinikuMap/src/session"
	"YakinikuMap/src/types"
)

const (
	CookieName = "yakiniku_session"
	lifetime   = 24 * time.Hour
)

var ErrInvalidSession = errors.New("invalid session token")

type sessionClaims struct {
	Center types.Coordinate `json:"center"`
	Zoom   int              `json:"zoom"`
	Marker session.Marker   `json:"marker"`
	jwt.StandardClaims
}

type Codec struct {
	key []byte
	now func() time.Time
}

func NewCodec(signingKey []byte) *Codec {
	return &Codec{key: signingKey, now: time.Now}
}

func (c *Codec) Sign(s *session.MapSession) (string, error) {
	now := c.now()
	claims := sessionClaims{
		Center: s.Center,
		Zoom:   s.Zoom,
		Marker: s.Marker,
		StandardClaims: jwt.StandardClaims{
			Id:        s.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(lifetime).Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

func (c *Codec) Parse(tokenString string) (*session.MapSession, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return c.key, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return &session.MapSession{
		ID:     claims.Id,
		Center: claims.Center,
		Zoom:   claims.Zoom,
		Marker: claims.Marker,
	}, nil
}

// SetCookie stores s in the response.
func (c *Codec) SetCookie(w http.ResponseWriter, s *session.MapSession) error {
	signed, err := c.Sign(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  c.now().Add(lifetime),
	})
	return nil
}

type sessionKey struct{}

// Middleware decodes the session cookie, if any, into the request context.
// Requests without a valid session are passed through unchanged.
func (c *Codec) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		s, err := c.Parse(cookie.Value)
		if err != nil {
			log.Debug().Err(err).Msg("ignoring session cookie")
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

func WithSession(ctx context.Context, s *session.MapSession) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the request's session or nil.
func FromContext(ctx context.Context) *session.MapSession {
	s, _ := ctx.Value(sessionKey{}).(*session.MapSession)
	return s
}
