// Package auth resolves the caller identity for the query surface. Session
// handling proper lives in the host; this layer only validates an optional
// bearer token and falls back to the placeholder identity when absent.
package auth

import (
	"fmt"
	"strings"
	"time"

	"horizont/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const usernameContextKey = "username"

// TokenManager issues and validates HMAC-signed identity tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a token manager with the given signing secret.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    30 * 24 * time.Hour,
	}
}

// GenerateToken returns a signed token carrying the username.
func (m *TokenManager) GenerateToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(m.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken validates a token and returns the username it carries.
func (m *TokenManager) ParseToken(tokenString string) (string, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to verify token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("no sub claim in token")
	}

	return sub, nil
}

// Identify is a gin middleware that resolves the caller identity from an
// optional Authorization header. Requests without a valid token proceed as
// the placeholder user; a bad token is not a rejection, just anonymity.
func (m *TokenManager) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			if username, err := m.ParseToken(header); err == nil {
				c.Set(usernameContextKey, username)
			}
		}
		c.Next()
	}
}

// Username returns the resolved caller identity for the request.
func Username(c *gin.Context) string {
	if username := c.GetString(usernameContextKey); username != "" {
		return username
	}
	return store.PlaceholderUsername
}
