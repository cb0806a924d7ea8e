package twitch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"say-something/internal/domain"
)

// ServerTokenTTL bounds the lifetime of the token minted for each publish.
const ServerTokenTTL = 60 * time.Second

// ErrPublishFailed marks a broadcast the platform did not accept.
var ErrPublishFailed = errors.New("twitch: publish failed")

// TokenIssuer mints channel-scoped tokens for platform calls.
type TokenIssuer interface {
	Issue(channelID, publisherID string, ttl time.Duration) (string, error)
}

type PubSubConfig struct {
	ClientID string
	OwnerID  string
	BaseURL  string
}

// Publisher sends messages to a channel's extension broadcast topic.
type Publisher struct {
	clientID string
	ownerID  string
	baseURL  string
	issuer   TokenIssuer
	opts     options
}

type publishRequest struct {
	ContentType string   `json:"content_type"`
	Message     string   `json:"message"`
	Targets     []string `json:"targets"`
}

func NewPublisher(cfg PubSubConfig, issuer TokenIssuer, opts ...Option) (*Publisher, error) {
	if issuer == nil {
		return nil, errors.New("twitch: token issuer must not be nil")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("twitch: pubsub client id must not be empty")
	}
	if strings.TrimSpace(cfg.OwnerID) == "" {
		return nil, errors.New("twitch: extension owner id must not be empty")
	}
	return &Publisher{
		clientID: cfg.ClientID,
		ownerID:  cfg.OwnerID,
		baseURL:  baseURLOr(cfg.BaseURL, defaultAPIBaseURL),
		issuer:   issuer,
		opts:     buildOptions(opts),
	}, nil
}

func messageURL(baseURL, channelID string) string {
	return baseURL + "/extensions/message/" + url.PathEscape(channelID)
}

// Publish broadcasts {eventType, payload} to every viewer of channelID. Only a
// 204 counts as delivered; anything else wraps ErrPublishFailed. It does not retry.
func (p *Publisher) Publish(ctx context.Context, channelID string, eventType domain.EventType, payload domain.Suggestion) error {
	if channelID == "" {
		return fmt.Errorf("%w: channel id must not be empty", ErrPublishFailed)
	}

	serverToken, err := p.issuer.Issue(channelID, p.ownerID, ServerTokenTTL)
	if err != nil {
		return fmt.Errorf("%w: mint server token: %w", ErrPublishFailed, err)
	}

	message, err := json.Marshal(domain.BroadcastMessage{EventType: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("%w: marshal message: %w", ErrPublishFailed, err)
	}
	body, err := json.Marshal(publishRequest{
		ContentType: "application/json",
		Message:     string(message),
		Targets:     []string{"broadcast"},
	})
	if err != nil {
		return fmt.Errorf("%w: marshal request: %w", ErrPublishFailed, err)
	}

	u := messageURL(p.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrPublishFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Id", p.clientID)
	req.Header.Set("Authorization", "Bearer "+serverToken)

	status, respBody, err := p.opts.do(req, "extension_pubsub")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("%w: %w", ErrPublishFailed, &HTTPStatusError{
			StatusCode: status,
			URL:        u,
			Body:       truncate(respBody, 4096),
		})
	}
	return nil
}
