// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package auth verifies admin credentials, including the optional TOTP
// second factor, and issues bearer tokens on success.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"simpleblog/internal/models"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTOTPRequired is returned when the password was right but the user
	// has 2FA enabled and no code was sent.
	ErrTOTPRequired = errors.New("two-factor code required")

	// ErrInvalidTOTP is returned for a wrong or stale TOTP code.
	ErrInvalidTOTP = errors.New("invalid two-factor code")

	// ErrTOTPNotSetUp is returned when enabling 2FA before a secret exists.
	ErrTOTPNotSetUp = errors.New("two-factor setup not started")

	// ErrUnknownUser is returned when a token refers to a deleted user.
	ErrUnknownUser = errors.New("unknown user")
)

// Users is the user persistence the authenticator needs.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CheckPassword(user *models.User, password string) bool
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
}

// Issuer signs access tokens.
type Issuer interface {
	Issue(user *models.User) (string, time.Time, error)
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// TOTPSetup carries what an authenticator app needs to enroll.
type TOTPSetup struct {
	Secret string
	URL    string
	QRCode []byte // PNG
}

// Authenticator checks credentials and manages 2FA enrollment.
type Authenticator struct {
	users   Users
	tokens  Issuer
	appName string
}

// NewAuthenticator creates an Authenticator. appName is shown in
// authenticator apps next to the account email.
func NewAuthenticator(users Users, tokens Issuer, appName string) *Authenticator {
	return &Authenticator{users: users, tokens: tokens, appName: appName}
}

// Login verifies email and password, then the TOTP code when the user has
// 2FA enabled, and issues a token.
func (a *Authenticator) Login(ctx context.Context, email, password, code string) (*Session, error) {
	user, err := a.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !a.users.CheckPassword(user, password) {
		slog.Warn("failed login attempt", "email", email)
		return nil, ErrInvalidCredentials
	}

	if user.RequiresTOTP() {
		if code == "" {
			return nil, ErrTOTPRequired
		}
		if !totp.Validate(code, *user.TOTPSecret) {
			slog.Warn("failed 2fa attempt", "user_id", user.ID)
			return nil, ErrInvalidTOTP
		}
	}

	raw, expires, err := a.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", "user_id", user.ID)
	return &Session{Token: raw, ExpiresAt: expires, User: user}, nil
}

// CurrentUser loads the user a token was issued to.
func (a *Authenticator) CurrentUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := a.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnknownUser
	}
	return user, nil
}

// BeginTOTPSetup generates and stores a fresh TOTP secret for the user. 2FA
// stays off until EnableTOTP confirms a code from the new secret.
func (a *Authenticator) BeginTOTPSetup(ctx context.Context, userID uuid.UUID) (*TOTPSetup, error) {
	user, err := a.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.appName,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	if err := a.users.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode totp qr code: %w", err)
	}

	return &TOTPSetup{Secret: key.Secret(), URL: key.URL(), QRCode: png}, nil
}

// EnableTOTP turns on 2FA once code verifies against the pending secret.
func (a *Authenticator) EnableTOTP(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := a.CurrentUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == nil {
		return ErrTOTPNotSetUp
	}
	if !totp.Validate(code, *user.TOTPSecret) {
		return ErrInvalidTOTP
	}

	if err := a.users.EnableTOTP(ctx, user.ID); err != nil {
		return err
	}
	slog.Info("2fa enabled", "user_id", user.ID)
	return nil
}
