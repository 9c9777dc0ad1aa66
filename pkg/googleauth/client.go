// Package googleauth builds OAuth2 HTTP clients for Google APIs from stored user tokens.
package googleauth

import (
	"context"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// TokenUpdateFunc is called when the access token was refreshed
type TokenUpdateFunc func(token *oauth2.Token) error

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[GoogleAuth] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

// Config identifies the OAuth client
type Config struct {
	ClientID     string
	ClientSecret string
}

// HTTPClient returns a client that refreshes the token when needed and reports new tokens
func (c Config) HTTPClient(ctx context.Context, accessToken, refreshToken string, onRefresh TokenUpdateFunc) *http.Client {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}
	// Force a refresh up front when we can
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	cfg := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
	}
	return oauth2.NewClient(ctx, &notifyTokenSource{
		src:      cfg.TokenSource(ctx, token),
		current:  token,
		callback: onRefresh,
	})
}
