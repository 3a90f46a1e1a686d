// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"simpleblog/internal/auth"
	"simpleblog/internal/middleware"
	"simpleblog/internal/models"
	"simpleblog/internal/token"
)

// Authenticator verifies credentials and manages 2FA enrollment.
type Authenticator interface {
	Login(ctx context.Context, email, password, code string) (*auth.Session, error)
	CurrentUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	BeginTOTPSetup(ctx context.Context, userID uuid.UUID) (*auth.TOTPSetup, error)
	EnableTOTP(ctx context.Context, userID uuid.UUID, code string) error
}

// TokenRevoker invalidates a token before its expiry.
type TokenRevoker interface {
	Revoke(ctx context.Context, claims *token.Claims) error
}

// Auth groups the authentication handlers.
type Auth struct {
	auth   Authenticator
	tokens TokenRevoker
}

// NewAuth creates an Auth handler group.
func NewAuth(authenticator Authenticator, tokens TokenRevoker) *Auth {
	return &Auth{auth: authenticator, tokens: tokens}
}

type loginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Login exchanges email, password and (when enabled) a TOTP code for a
// bearer token.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := validateLogin(req); !errs.empty() {
		respondError(w, http.StatusUnprocessableEntity, "Validation Error.", errs)
		return
	}

	sess, err := a.auth.Login(r.Context(), req.Email, req.Password, req.Code)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid credentials.", nil)
		return
	case errors.Is(err, auth.ErrTOTPRequired):
		respondError(w, http.StatusUnauthorized, "Two-factor code required.",
			validationErrors{"code": {"The code field is required."}})
		return
	case errors.Is(err, auth.ErrInvalidTOTP):
		respondError(w, http.StatusUnauthorized, "Invalid two-factor code.",
			validationErrors{"code": {"The code is invalid or has expired."}})
		return
	case err != nil:
		serverError(w, r, "login failed", err)
		return
	}

	respond(w, r, http.StatusOK, "User logged in successfully.", loginResponse{
		Token:     sess.Token,
		TokenType: "Bearer",
		ExpiresAt: sess.ExpiresAt,
		User:      sess.User,
	})
}

// Logout revokes the token used for this request.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromCtx(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}
	if err := a.tokens.Revoke(r.Context(), claims); err != nil {
		serverError(w, r, "token revoke failed", err)
		return
	}
	respond(w, r, http.StatusOK, "User logged out successfully.", []any{})
}

// Me returns the authenticated user.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	respond(w, r, http.StatusOK, "User retrieved successfully.", user)
}

type totpSetupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	QRCode     string `json:"qr_code"`
}

// TwoFASetup generates a new TOTP secret and returns it with a QR code
// (base64 PNG) for authenticator apps.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}

	setup, err := a.auth.BeginTOTPSetup(r.Context(), userID)
	if errors.Is(err, auth.ErrUnknownUser) {
		respondError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}
	if err != nil {
		serverError(w, r, "totp setup failed", err)
		return
	}

	respond(w, r, http.StatusOK, "Two-factor setup started.", totpSetupResponse{
		Secret:     setup.Secret,
		OTPAuthURL: setup.URL,
		QRCode:     base64.StdEncoding.EncodeToString(setup.QRCode),
	})
}

type totpEnableRequest struct {
	Code string `json:"code"`
}

// TwoFAEnable confirms the pending TOTP secret with a code and turns 2FA on.
func (a *Auth) TwoFAEnable(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}

	var req totpEnableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusUnprocessableEntity, "Validation Error.",
			validationErrors{"code": {"The code field is required."}})
		return
	}

	err := a.auth.EnableTOTP(r.Context(), userID, req.Code)
	switch {
	case errors.Is(err, auth.ErrTOTPNotSetUp):
		respondError(w, http.StatusConflict, "Two-factor setup not started.", nil)
		return
	case errors.Is(err, auth.ErrInvalidTOTP):
		respondError(w, http.StatusUnprocessableEntity, "Validation Error.",
			validationErrors{"code": {"The code is invalid or has expired."}})
		return
	case errors.Is(err, auth.ErrUnknownUser):
		respondError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	case err != nil:
		serverError(w, r, "totp enable failed", err)
		return
	}
	respond(w, r, http.StatusOK, "Two-factor authentication enabled.", []any{})
}

func (a *Auth) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	userID, ok := callerID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
		return nil, false
	}
	user, err := a.auth.CurrentUser(r.Context(), userID)
	if errors.Is(err, auth.ErrUnknownUser) {
		respondError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
		return nil, false
	}
	if err != nil {
		serverError(w, r, "load current user failed", err)
		return nil, false
	}
	return user, true
}

// callerID returns the user ID from the verified token claims.
func callerID(r *http.Request) (uuid.UUID, bool) {
	claims := middleware.ClaimsFromCtx(r.Context())
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := claims.UserID()
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
