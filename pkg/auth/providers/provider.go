package providers

import "context"

// AuthProvider verifies the bearer tokens sent to the lobby API.
type AuthProvider interface {
	VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error)
}

// TokenClaims identifies the player reading the game history.
type TokenClaims struct {
	UID string `json:"uid"`
	// Name is the display name of the account, when it has one.
	Name      string `json:"name,omitempty"`
	Anonymous bool   `json:"anonymous"`
}
