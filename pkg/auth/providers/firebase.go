package providers

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"github.com/cbodonnell/drag/pkg/log"
	"google.golang.org/api/option"
)

const anonymousSignInProvider = "anonymous"

// ErrAnonymousToken is returned for guest accounts when they are not allowed.
var ErrAnonymousToken = errors.New("anonymous accounts cannot read the game history")

var _ AuthProvider = &FirebaseAuthProvider{}

// tokenVerifier is the part of the Firebase Auth client the provider uses.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type FirebaseAuthProvider struct {
	verifier       tokenVerifier
	allowAnonymous bool
}

type NewFirebaseAuthProviderOptions struct {
	ProjectID string
	// CredentialsFile is a service account key. Empty uses the application
	// default credentials.
	CredentialsFile string
	// AllowAnonymous lets guest accounts, as created by players who never
	// signed in, read the history.
	AllowAnonymous bool
}

// NewFirebaseAuthProvider creates a new FirebaseAuthProvider
func NewFirebaseAuthProvider(ctx context.Context, opts NewFirebaseAuthProviderOptions) (*FirebaseAuthProvider, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	cfg := &firebase.Config{
		ProjectID: opts.ProjectID,
	}
	app, err := firebase.NewApp(ctx, cfg, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %v", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Auth client: %v", err)
	}
	return newFirebaseAuthProvider(client, opts.AllowAnonymous), nil
}

func newFirebaseAuthProvider(verifier tokenVerifier, allowAnonymous bool) *FirebaseAuthProvider {
	return &FirebaseAuthProvider{
		verifier:       verifier,
		allowAnonymous: allowAnonymous,
	}
}

// VerifyToken verifies a Firebase ID token and extracts the player behind it.
func (p *FirebaseAuthProvider) VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error) {
	token, err := p.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("error verifying token: %v", err)
	}

	claims := &TokenClaims{
		UID:       token.UID,
		Anonymous: token.Firebase.SignInProvider == anonymousSignInProvider,
	}
	if name, ok := token.Claims["name"].(string); ok {
		claims.Name = name
	}
	if claims.Anonymous && !p.allowAnonymous {
		log.Debug("Rejected anonymous history access by %s", claims.UID)
		return nil, ErrAnonymousToken
	}
	return claims, nil
}
