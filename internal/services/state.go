package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StateSigner issues the OAuth state parameter as a short-lived HS256 token
// bound to a nonce the client holds in a cookie.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type stateClaims struct {
	Strategy string `json:"prv"`
	Nonce    string `json:"nonce"`
	jwt.RegisteredClaims
}

func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	return &StateSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *StateSigner) Issue(strategy Strategy) (state, nonce string, err error) {
	if len(s.secret) == 0 {
		return "", "", errors.New("state signing secret is empty")
	}

	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce = base64.RawURLEncoding.EncodeToString(raw)

	now := s.now()
	claims := stateClaims{
		Strategy: strategy.String(),
		Nonce:    nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	state, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign state: %w", err)
	}
	return state, nonce, nil
}

// Verify accepts state only if it is ours, unexpired, issued for strategy
// and bound to nonce.
func (s *StateSigner) Verify(state, nonce string, strategy Strategy) error {
	if state == "" || nonce == "" {
		return fmt.Errorf("%w: missing state", ErrProviderAssertionInvalid)
	}

	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderAssertionInvalid, err)
	}

	if claims.Strategy != strategy.String() {
		return fmt.Errorf("%w: state issued for %s", ErrProviderAssertionInvalid, claims.Strategy)
	}
	if subtle.ConstantTimeCompare([]byte(claims.Nonce), []byte(nonce)) != 1 {
		return fmt.Errorf("%w: nonce mismatch", ErrProviderAssertionInvalid)
	}
	return nil
}
