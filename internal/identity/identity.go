// Package identity resolves shopper identity from signed tokens.
//
// The relay itself is unauthenticated by design; tokens only gate the
// cart REST routes so a shopper's persisted cart is keyed to their
// account. Browser clients send the token in a bare "token" header.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenHeaderName is the request header carrying the shopper token.
const TokenHeaderName = "token"

const tokenTTL = 15 * 24 * time.Hour

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID from the request context.
// Empty for guest requests.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithUserID returns a context carrying the given user ID.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

type claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for the given user ID.
func IssueToken(userID, secret string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a token and returns the user ID it carries.
func ParseToken(tokenString, secret string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if c.UserID == "" {
		return "", fmt.Errorf("token carries no userId claim")
	}
	return c.UserID, nil
}

// Middleware resolves the "token" header into a user ID on the request
// context. Requests without a token pass through as guests; requests with
// an invalid token are rejected.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.Header.Get(TokenHeaderName)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := ParseToken(tokenString, secret)
			if err != nil {
				http.Error(w, `{"success":false,"message":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}
