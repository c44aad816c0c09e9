package gitops

import (
	"fmt"
	"net/url"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// TokenAuth resolves HTTPS basic-auth credentials from per-host tokens.
// Most hosting services accept a personal access token as the password.
type TokenAuth struct {
	// Tokens maps a lowercase host to its access token.
	Tokens map[string]string

	// Username is the basic-auth username sent alongside the token.
	// Some services ignore it but reject an empty one.
	Username string
}

// NewTokenAuth creates a TokenAuth with a default username.
func NewTokenAuth(tokens map[string]string) *TokenAuth {
	return &TokenAuth{
		Tokens:   tokens,
		Username: "token",
	}
}

// Method implements AuthProvider. URLs whose host has no configured token
// resolve to nil, meaning anonymous access.
func (a *TokenAuth) Method(remoteURL string) (transport.AuthMethod, error) {
	parsed, err := url.Parse(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote URL %q: %w", remoteURL, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return nil, nil
	}

	token, ok := a.Tokens[parsed.Hostname()]
	if !ok || token == "" {
		return nil, nil
	}

	return &http.BasicAuth{
		Username: a.Username,
		Password: token,
	}, nil
}
