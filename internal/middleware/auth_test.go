// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"simpleblog/internal/token"
)

// stubParser accepts exactly one token string.
type stubParser struct {
	valid string
	err   error
}

func (p stubParser) Parse(_ context.Context, raw string) (*token.Claims, error) {
	if p.err != nil {
		return nil, p.err
	}
	if raw != p.valid {
		return nil, token.ErrInvalid
	}
	return &token.Claims{Email: "admin@example.com", RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1"}}, nil
}

func TestRequireToken(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		parser     stubParser
		wantStatus int
	}{
		{"valid token", "Bearer good", stubParser{valid: "good"}, http.StatusOK},
		{"lowercase scheme", "bearer good", stubParser{valid: "good"}, http.StatusOK},
		{"missing header", "", stubParser{valid: "good"}, http.StatusUnauthorized},
		{"wrong scheme", "Basic good", stubParser{valid: "good"}, http.StatusUnauthorized},
		{"empty token", "Bearer ", stubParser{valid: "good"}, http.StatusUnauthorized},
		{"invalid token", "Bearer bad", stubParser{valid: "good"}, http.StatusUnauthorized},
		{"revoked token", "Bearer good", stubParser{err: token.ErrRevoked}, http.StatusUnauthorized},
		{"store failure", "Bearer good", stubParser{err: errors.New("valkey down")}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *token.Claims
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClaimsFromCtx(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			RequireToken(tt.parser)(inner).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if got == nil || got.ID != "jti-1" {
					t.Errorf("claims not propagated: %+v", got)
				}
				return
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type: got %q, want application/json", ct)
			}
			if !strings.Contains(rr.Body.String(), `"success":false`) {
				t.Errorf("body: got %q, want failure envelope", rr.Body.String())
			}
		})
	}
}

func TestClaimsFromCtxEmpty(t *testing.T) {
	if c := ClaimsFromCtx(context.Background()); c != nil {
		t.Errorf("expected nil claims, got %+v", c)
	}
}
