// Package auth provides the session token signer and the password hasher
// used by the host service.
package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hostrate/apiserver/types"
)

const defaultTokenTTL = 24 * time.Hour

var (
	// ErrInvalidToken is returned when a token fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret is returned when a signer is built without a key.
	ErrMissingSecret = errors.New("jwt secret is required")
)

// JWTSigner issues and verifies HS256 session tokens bound to a host id.
type JWTSigner struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTSigner constructs a signer. A non-positive ttl uses the default of 24h.
func NewJWTSigner(secret string, ttl time.Duration, issuer string) (*JWTSigner, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTSigner{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// Sign returns a token whose subject is the host id.
func (s *JWTSigner) Sign(host types.Host) (string, error) {
	if host.ID < 1 {
		return "", errors.New("cannot sign token for unsaved host")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(host.ID),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses a token and returns the identity it is bound to.
func (s *JWTSigner) Verify(tokenString string) (types.Identity, error) {
	claims := jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return types.Identity{}, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return types.Identity{}, ErrInvalidToken
	}

	id, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || id < 1 {
		return types.Identity{}, ErrInvalidToken
	}
	return types.Identity{HostID: id}, nil
}
