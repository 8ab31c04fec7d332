package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// Scopes 采集所需的 Spotify 权限
var Scopes = []string{
	"user-read-playback-state",
	"user-read-currently-playing",
	"user-read-recently-played",
	"user-top-read",
}

// Endpoint is the Spotify accounts service.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.spotify.com/authorize",
	TokenURL:  "https://accounts.spotify.com/api/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

// ErrNoRefreshToken is returned when the collector has nothing to authenticate with.
var ErrNoRefreshToken = errors.New("spotify refresh token is not configured (run listenboard auth)")

// OAuthConfig builds the oauth2 client configuration.
func OAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint:     Endpoint,
	}
}

// HTTPClient returns a client that refreshes access tokens from refreshToken
// as they expire.
func HTTPClient(ctx context.Context, oc *oauth2.Config, refreshToken string) (*http.Client, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrNoRefreshToken
	}
	return oc.Client(ctx, &oauth2.Token{RefreshToken: refreshToken}), nil
}

// AuthorizeURL 生成授权链接
func AuthorizeURL(oc *oauth2.Config, state string) string {
	return oc.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ParseCode accepts either a bare authorization code or the full redirect URL
// pasted from the browser.
func ParseCode(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty authorization code")
	}
	if !strings.Contains(input, "://") && !strings.HasPrefix(input, "?") {
		return input, nil
	}

	raw := input
	if i := strings.Index(input, "?"); i >= 0 {
		raw = input[i+1:]
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if state != "" && q.Get("state") != "" && q.Get("state") != state {
		return "", fmt.Errorf("state mismatch")
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect url has no code parameter")
	}
	return code, nil
}

// Exchange trades an authorization code for a token that carries the refresh token.
func Exchange(ctx context.Context, oc *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("token response did not include a refresh token")
	}
	return tok, nil
}
