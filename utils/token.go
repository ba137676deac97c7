package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenPurposeAccess = "access"
	TokenPurposeReset  = "reset"
)

// Claims is shared by locally issued tokens and Supabase access tokens.
// Supabase puts the user id in "sub" and sets role "authenticated".
type Claims struct {
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

func GenerateToken(secret, userID, email, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:   email,
		Role:    "authenticated",
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken checks an HS256 token. Extra parser options add claim checks
// such as audience.
func ValidateToken(tokenStr string, secret string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append([]jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}, opts...)
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
