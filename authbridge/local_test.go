package authbridge

import (
	"context"
	"testing"
	"time"

	"github.com/princinho/smartshop/store"
	"github.com/princinho/smartshop/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider_SignUpSignIn(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider(store.NewMemoryStore(), "secret", time.Hour)

	s, err := p.SignUp(ctx, "New@X.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", s.User.Email)
	assert.Equal(t, 3600, s.ExpiresIn)

	id, err := p.GetUser(ctx, s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.User, *id)

	_, err = p.SignUp(ctx, "new@x.com", "hunter22")
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = p.SignUp(ctx, "short@x.com", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)

	s2, err := p.SignIn(ctx, "new@x.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, s2.User.ID)

	_, err = p.SignIn(ctx, "new@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = p.SignIn(ctx, "nobody@x.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalProvider_SeedAdmin(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider(store.NewMemoryStore(), "secret", time.Hour)

	require.NoError(t, p.SeedAdmin(ctx, " Admin@Shop.com ", "first-pass"))
	require.NoError(t, p.SeedAdmin(ctx, "admin@shop.com", "second-pass"))

	_, err := p.SignIn(ctx, "admin@shop.com", "first-pass")
	assert.NoError(t, err, "seeding twice keeps the original password")

	assert.Error(t, p.SeedAdmin(ctx, "admin@shop.com", ""))
}

func TestLocalProvider_UpdatePasswordWithResetToken(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider(store.NewMemoryStore(), "secret", time.Hour)
	s, err := p.SignUp(ctx, "a@x.com", "oldpass")
	require.NoError(t, err)

	require.NoError(t, p.ResetPassword(ctx, "a@x.com", "/update-password"))
	require.NoError(t, p.ResetPassword(ctx, "ghost@x.com", "/update-password"))

	reset, err := utils.GenerateToken("secret", s.User.ID, "a@x.com", utils.TokenPurposeReset, time.Minute)
	require.NoError(t, err)

	// a reset token is not a session
	_, err = p.GetUser(ctx, reset)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, p.UpdatePassword(ctx, reset, "newpass"))
	_, err = p.SignIn(ctx, "a@x.com", "newpass")
	assert.NoError(t, err)

	assert.ErrorIs(t, p.UpdatePassword(ctx, "garbage", "newpass"), ErrInvalidToken)
	assert.ErrorIs(t, p.UpdatePassword(ctx, reset, "x"), ErrWeakPassword)
}

func TestResetLink(t *testing.T) {
	assert.Equal(t, "/update-password?token=abc", resetLink("/update-password", "abc"))
	assert.Equal(t, "/u?x=1&token=abc", resetLink("/u?x=1", "abc"))
}
