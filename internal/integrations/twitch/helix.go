package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrUserNotFound is returned when Helix has no user for the id.
var ErrUserNotFound = errors.New("twitch: user not found")

type HelixConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
}

// HelixClient resolves user ids to display names using an app access token
// obtained through the client credentials flow. The token is cached until it
// expires; the exchange runs on the caller's context.
type HelixClient struct {
	clientID string
	baseURL  string
	cc       clientcredentials.Config
	opts     options

	mu  sync.Mutex
	tok *oauth2.Token
}

func NewHelixClient(cfg HelixConfig, opts ...Option) (*HelixClient, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("twitch: helix client id must not be empty")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("twitch: helix client secret must not be empty")
	}
	o := buildOptions(opts)

	return &HelixClient{
		clientID: cfg.ClientID,
		baseURL:  baseURLOr(cfg.BaseURL, defaultHelixBaseURL),
		cc: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     baseURLOr(cfg.TokenURL, defaultTokenURL),
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		opts: o,
	}, nil
}

func (c *HelixClient) appToken(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tok.Valid() {
		return c.tok, nil
	}
	tok, err := c.cc.Token(context.WithValue(ctx, oauth2.HTTPClient, c.opts.httpClient))
	if err != nil {
		return nil, err
	}
	c.tok = tok
	return tok, nil
}

type usersResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Login       string `json:"login"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

// DisplayName returns the display name for a Twitch user id.
func (c *HelixClient) DisplayName(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("twitch: user id must not be empty")
	}
	tok, err := c.appToken(ctx)
	if err != nil {
		return "", fmt.Errorf("twitch: app access token: %w", err)
	}

	u := c.baseURL + "/users?id=" + url.QueryEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("twitch: create users request: %w", err)
	}
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	status, body, err := c.opts.do(req, "helix_users")
	if err != nil {
		return "", fmt.Errorf("twitch: users request failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return "", &HTTPStatusError{StatusCode: status, URL: u, Body: truncate(body, 4096)}
	}

	var payload usersResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("twitch: decode users response: %w", err)
	}
	if len(payload.Data) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return payload.Data[0].DisplayName, nil
}
