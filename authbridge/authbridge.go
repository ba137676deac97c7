// Package authbridge hides the identity provider behind one interface so the
// handlers never talk to Supabase (or the local fallback) directly.
package authbridge

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrUnavailable        = errors.New("auth provider unavailable")
)

type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	User         Identity `json:"user"`
}

type Provider interface {
	GetUser(ctx context.Context, accessToken string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// ResetPassword sends a recovery link that lands on redirectTo.
	ResetPassword(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
}
