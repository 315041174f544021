package marketplace

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"idqcli/internal/config"
)

// TokenProvider supplies the bearer credential for report API calls.
// The refresh flow itself is externally owned; the pipeline only ever sees
// an opaque access token.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// OAuthTokenProvider implements TokenProvider on top of an oauth2 token
// source running the refresh-token grant against the configured token URL.
// Tokens are cached and refreshed transparently by the underlying source.
type OAuthTokenProvider struct {
	source oauth2.TokenSource
}

// NewOAuthTokenProvider builds a provider from marketplace credentials.
func NewOAuthTokenProvider(cfg config.MarketplaceConfig) *OAuthTokenProvider {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	source := oc.TokenSource(context.Background(), &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	})
	return &OAuthTokenProvider{source: oauth2.ReuseTokenSource(nil, source)}
}

// Token returns a valid access token, refreshing if the cached one expired.
func (p *OAuthTokenProvider) Token(ctx context.Context) (string, error) {
	tok, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("failed to obtain access token: %w", err)
	}
	return tok.AccessToken, nil
}

// StaticTokenProvider returns a fixed token. Used in tests and for
// environments where token acquisition happens out of process.
type StaticTokenProvider string

func (p StaticTokenProvider) Token(ctx context.Context) (string, error) {
	if p == "" {
		return "", fmt.Errorf("no access token configured")
	}
	return string(p), nil
}
