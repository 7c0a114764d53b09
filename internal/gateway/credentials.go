package gateway

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const messagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// TokenSource supplies a bearer credential for gateway calls. Implementations
// refresh expired tokens transparently; the pipeline never stores or rotates
// credentials itself.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns the same token on every call. Used in tests and
// local development against gateway stubs.
func StaticTokenSource(token string) TokenSource {
	return staticTokenSource(token)
}

type staticTokenSource string

func (s staticTokenSource) Token(context.Context) (string, error) {
	return string(s), nil
}

// ServiceAccountTokenSource builds a TokenSource from a base64-encoded
// service account JSON key, the form the credential arrives in from the
// environment. The underlying oauth2 source caches the access token and
// refreshes it when expired.
func ServiceAccountTokenSource(ctx context.Context, credentialsBase64 string) (TokenSource, error) {
	raw, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode service account credentials: %w", err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(raw, messagingScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	return &oauthTokenSource{src: jwtCfg.TokenSource(ctx)}, nil
}

type oauthTokenSource struct {
	src oauth2.TokenSource
}

func (s *oauthTokenSource) Token(ctx context.Context) (string, error) {
	// The oauth2 source is bound to the context it was created with; a
	// cancelled call context cannot abort an in-flight refresh, but refreshes
	// are rare and fast relative to the gateway timeout.
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := s.src.Token()
	if err != nil {
		return "", fmt.Errorf("failed to obtain gateway access token: %w", err)
	}
	return tok.AccessToken, nil
}
