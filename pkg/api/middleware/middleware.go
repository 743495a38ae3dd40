package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	authproviders "github.com/cbodonnell/drag/pkg/auth/providers"
	"github.com/cbodonnell/drag/pkg/log"
)

type ContextKey int

const (
	// ClaimsContextKey is the key used to store the verified token claims in the request context
	ClaimsContextKey ContextKey = iota
)

// NewAuthMiddleware rejects requests without a valid bearer token. With a
// nil provider every request passes.
func NewAuthMiddleware(authProvider authproviders.AuthProvider) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if authProvider == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearerToken, err := parseBearerToken(r)
			if err != nil {
				log.Debug("failed to parse bearer token: %v", err)
				http.Error(w, "failed to parse bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := authProvider.VerifyToken(r.Context(), bearerToken)
			if err != nil {
				log.Warn("failed to verify ID token: %v", err)
				http.Error(w, "failed to verify ID token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by the auth middleware, or nil
// when the route is not authenticated.
func ClaimsFromContext(ctx context.Context) *authproviders.TokenClaims {
	claims, _ := ctx.Value(ClaimsContextKey).(*authproviders.TokenClaims)
	return claims
}

// CORS allows browsers on any origin to read the API.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// parseBearerToken parses the bearer token from the Authorization header
func parseBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	return parts[1], nil
}
