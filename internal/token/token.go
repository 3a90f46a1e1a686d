// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package token issues and verifies the HS256 bearer tokens used by the
// admin API. Logged-out tokens are recorded in Valkey by their jti until they
// would have expired anyway.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"simpleblog/internal/models"
)

var (
	// ErrInvalid is returned for malformed, forged or expired tokens.
	ErrInvalid = errors.New("invalid token")

	// ErrRevoked is returned for tokens that were logged out.
	ErrRevoked = errors.New("token revoked")
)

const (
	// Issuer is the iss claim on every token.
	Issuer = "simpleblog"

	revokedKeyPrefix = "token:revoked:"

	// DefaultTTL is the token lifetime when none is configured.
	DefaultTTL = 24 * time.Hour
)

// Claims are the JWT claims carried by an access token. Subject holds the
// user ID.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Manager signs, parses and revokes tokens.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoked *redis.Client
	now     func() time.Time
}

// NewManager creates a Manager signing with secret. Revocations are stored in
// client.
func NewManager(secret string, ttl time.Duration, client *redis.Client) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl, revoked: client, now: time.Now}
}

// Issue signs a new token for user and returns it with its expiry.
func (m *Manager) Issue(user *models.User) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)

	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse validates raw and returns its claims. It fails with ErrInvalid or
// ErrRevoked, or with a wrapped Valkey error when revocation cannot be
// checked.
func (m *Manager) Parse(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalid)
	}

	n, err := m.revoked.Exists(ctx, revokedKeyPrefix+claims.ID).Result()
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if n > 0 {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke blocks the token until its natural expiry.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	if err := m.revoked.Set(ctx, revokedKeyPrefix+claims.ID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
