package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	authproviders "github.com/cbodonnell/drag/pkg/auth/providers"
	"github.com/stretchr/testify/assert"
)

type staticProvider struct{}

func (staticProvider) VerifyToken(ctx context.Context, idToken string) (*authproviders.TokenClaims, error) {
	return &authproviders.TokenClaims{UID: idToken}, nil
}

func TestAuthMiddlewareStoresClaims(t *testing.T) {
	var seen *authproviders.TokenClaims
	handler := NewAuthMiddleware(staticProvider{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	req.Header.Set("Authorization", "Bearer uid-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, &authproviders.TokenClaims{UID: "uid-1"}, seen)

	req = httptest.NewRequest(http.MethodGet, "/history", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Nil(t, ClaimsFromContext(context.Background()))
}
