package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/smartshop/authbridge"
	"github.com/princinho/smartshop/config"
)

const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"

	userKey  = "currentUser"
	tokenKey = "accessToken"
)

// AccessToken reads the session cookie, falling back to a bearer header.
func AccessToken(c *gin.Context) string {
	if tok, err := c.Cookie(AccessTokenCookie); err == nil && tok != "" {
		return tok
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// CurrentUser resolves the signed-in user, if any. Provider failures are
// treated as "not signed in" and never abort the request.
func CurrentUser(provider authbridge.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := AccessToken(c)
		if tok == "" {
			c.Next()
			return
		}
		user, err := provider.GetUser(c.Request.Context(), tok)
		if err == nil && user != nil {
			c.Set(userKey, user)
			c.Set(tokenKey, tok)
		}
		c.Next()
	}
}

func UserFrom(c *gin.Context) *authbridge.Identity {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*authbridge.Identity)
	return user
}

// UserID is empty for anonymous requests.
func UserID(c *gin.Context) string {
	if u := UserFrom(c); u != nil {
		return u.ID
	}
	return ""
}

func IsAdmin(user *authbridge.Identity, adminEmail string) bool {
	return user != nil && adminEmail != "" && config.NormalizeEmail(user.Email) == config.NormalizeEmail(adminEmail)
}

// RequireAdmin sends anonymous visitors to /login and everyone else who is
// not the admin back to the storefront.
func RequireAdmin(adminEmail string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := UserFrom(c)
		if user == nil {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		if !IsAdmin(user, adminEmail) {
			c.Redirect(http.StatusSeeOther, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}
