package authbridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/princinho/smartshop/models"
	"github.com/princinho/smartshop/store"
	"github.com/princinho/smartshop/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	minPasswordLen = 6
	resetTokenTTL  = time.Hour
)

// LocalProvider keeps credentials in the database and signs its own tokens.
// Meant for development; reset links are written to the log.
type LocalProvider struct {
	creds  store.CredentialStore
	secret string
	ttl    time.Duration
}

func NewLocalProvider(creds store.CredentialStore, secret string, ttl time.Duration) *LocalProvider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LocalProvider{creds: creds, secret: secret, ttl: ttl}
}

// SeedAdmin creates the admin credential on first boot. An existing
// credential keeps its password.
func (p *LocalProvider) SeedAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return fmt.Errorf("missing ADMIN_EMAIL or ADMIN_PASSWORD env vars")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	created, err := p.creds.SeedCredential(ctx, email, hash)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Println("INFO: admin credential seeded:", email)
	} else {
		log.Println("INFO: admin credential already exists:", email)
	}
	return nil
}

func (p *LocalProvider) GetUser(ctx context.Context, accessToken string) (*Identity, error) {
	cred, err := p.credentialFromToken(ctx, accessToken, utils.TokenPurposeAccess)
	if err != nil {
		return nil, err
	}
	return &Identity{ID: cred.ID.Hex(), Email: cred.Email}, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	cred, err := p.creds.GetCredentialByEmail(ctx, email)
	if errors.Is(err, store.ErrCredentialNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := utils.CheckPassword(cred.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return p.session(cred)
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	cred := &models.Credential{Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	if err := p.creds.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return p.session(cred)
}

// SignOut has nothing to revoke; tokens expire on their own.
func (p *LocalProvider) SignOut(ctx context.Context, accessToken string) error {
	return nil
}

// ResetPassword succeeds for unknown addresses so callers cannot discover
// accounts.
func (p *LocalProvider) ResetPassword(ctx context.Context, email, redirectTo string) error {
	cred, err := p.creds.GetCredentialByEmail(ctx, email)
	if errors.Is(err, store.ErrCredentialNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	token, err := utils.GenerateToken(p.secret, cred.ID.Hex(), cred.Email, utils.TokenPurposeReset, resetTokenTTL)
	if err != nil {
		return err
	}
	log.Printf("INFO: password reset link for %s: %s", cred.Email, resetLink(redirectTo, token))
	return nil
}

// UpdatePassword accepts either a session token or a reset token.
func (p *LocalProvider) UpdatePassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return ErrWeakPassword
	}
	cred, err := p.credentialFromToken(ctx, token, utils.TokenPurposeAccess, utils.TokenPurposeReset)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return p.creds.UpdatePasswordHash(ctx, cred.ID, hash)
}

func (p *LocalProvider) credentialFromToken(ctx context.Context, token string, purposes ...string) (*models.Credential, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := utils.ValidateToken(token, p.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !allowed(claims.Purpose, purposes) {
		return nil, ErrInvalidToken
	}
	id, err := bson.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	cred, err := p.creds.GetCredentialByID(ctx, id)
	if errors.Is(err, store.ErrCredentialNotFound) {
		return nil, ErrInvalidToken
	}
	return cred, err
}

func (p *LocalProvider) session(cred *models.Credential) (*Session, error) {
	token, err := utils.GenerateToken(p.secret, cred.ID.Hex(), cred.Email, utils.TokenPurposeAccess, p.ttl)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{
		AccessToken: token,
		ExpiresIn:   int(p.ttl.Seconds()),
		User:        Identity{ID: cred.ID.Hex(), Email: cred.Email},
	}, nil
}

func allowed(purpose string, purposes []string) bool {
	for _, p := range purposes {
		if p == purpose {
			return true
		}
	}
	return false
}

func resetLink(redirectTo, token string) string {
	sep := "?"
	if strings.Contains(redirectTo, "?") {
		sep = "&"
	}
	return redirectTo + sep + "token=" + url.QueryEscape(token)
}
