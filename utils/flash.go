package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	FlashCookie = "toast"
	flashTTL    = 5 * time.Minute

	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

type Flash struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type flashClaims struct {
	Flash
	jwt.RegisteredClaims
}

// FlashStore keeps one pending flash per browser in a signed cookie.
type FlashStore struct {
	secret []byte
	secure bool
	domain string
}

func NewFlashStore(secret string, secure bool, domain string) *FlashStore {
	return &FlashStore{secret: []byte(secret), secure: secure, domain: domain}
}

// Set replaces any pending flash.
func (s *FlashStore) Set(c *gin.Context, f Flash) error {
	claims := flashClaims{
		Flash: f,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(flashTTL)),
		},
	}
	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return err
	}
	s.write(c, value, int(flashTTL.Seconds()))
	return nil
}

// Pop returns the pending flash, if any, and clears the cookie. Tampered or
// expired cookies are dropped silently.
func (s *FlashStore) Pop(c *gin.Context) *Flash {
	raw, err := c.Cookie(FlashCookie)
	if err != nil || raw == "" {
		return nil
	}
	s.write(c, "", -1)

	var claims flashClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil
	}
	f := claims.Flash
	return &f
}

func (s *FlashStore) write(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     FlashCookie,
		Value:    value,
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
