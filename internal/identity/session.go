// Package identity answers "who is calling": password hashing, signed session
// tokens and the caller carried in the request context.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/TwigBush/restodir/internal/policy"
)

const CookieName = "restodir_session"

var ErrInvalidSession = errors.New("invalid session")

type SessionConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type Sessions struct {
	key    jwk.Key
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(cfg SessionConfig) (*Sessions, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("session_key_import: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	iss := cfg.Issuer
	if iss == "" {
		iss = "restodir"
	}
	return &Sessions{key: key, issuer: iss, ttl: ttl, now: time.Now}, nil
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue signs a session token for profileID.
func (s *Sessions) Issue(profileID string) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	tok, err := jwt.NewBuilder().
		Issuer(s.issuer).
		Subject(profileID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(exp).
		JwtID(uuid.NewString()).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session_build: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), s.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session_sign: %w", err)
	}
	return string(signed), exp, nil
}

// Parse verifies a token and returns the caller it was issued to.
func (s *Sessions) Parse(raw string) (policy.Caller, error) {
	if raw == "" {
		return policy.Anonymous, ErrInvalidSession
	}
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256(), s.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.issuer),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return policy.Anonymous, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	sub, ok := tok.Subject()
	if !ok || sub == "" {
		return policy.Anonymous, ErrInvalidSession
	}
	return policy.Caller{ID: sub}, nil
}
