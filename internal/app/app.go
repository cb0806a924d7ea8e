// Package app assembles the API handler from configuration. Both the Lambda
// entry point and the development server use it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus"

	"say-something/handler"
	"say-something/internal/auth"
	"say-something/internal/config"
	"say-something/internal/integrations/twitch"
	"say-something/internal/repository"
	"say-something/internal/telemetry"
	"say-something/internal/usecase"
)

// noDisplayNames stands in for Helix when no API client secret is configured.
type noDisplayNames struct{}

func (noDisplayNames) DisplayName(context.Context, string) (string, error) {
	return "", errors.New("app: display name lookup disabled")
}

// NewHandler wires the suggestion API. reg may be nil, in which case metrics
// are collected but not exported.
func NewHandler(cfg *config.Config, secrets config.Secrets, db *awsdynamodb.Client, reg prometheus.Registerer) (*handler.Handler, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if db == nil {
		return nil, errors.New("app: dynamodb client must not be nil")
	}
	if err := secrets.Validate(); err != nil {
		return nil, err
	}

	key, err := auth.DecodeSecret(secrets.ExtensionSecret)
	if err != nil {
		return nil, err
	}
	codec, err := auth.NewCodec(auth.Config{Secret: key})
	if err != nil {
		return nil, err
	}

	store, err := repository.New(db, cfg.SuggestionsTable)
	if err != nil {
		return nil, fmt.Errorf("app: suggestion store: %w", err)
	}

	metrics := telemetry.NewMetrics(reg)
	opts := []twitch.Option{
		twitch.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		twitch.WithRequestObserver(metrics),
	}

	var users usecase.UserLookup = noDisplayNames{}
	if secrets.APIClientSecret != "" {
		users, err = twitch.NewHelixClient(twitch.HelixConfig{
			ClientID:     secrets.ExtensionClientID,
			ClientSecret: secrets.APIClientSecret,
			BaseURL:      cfg.TwitchHelixBaseURL,
			TokenURL:     cfg.TwitchTokenURL,
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("app: helix client: %w", err)
		}
	} else {
		slog.Warn("twitch client secret not configured; display names will be empty")
	}

	pub, err := twitch.NewPublisher(twitch.PubSubConfig{
		ClientID: secrets.ExtensionClientID,
		OwnerID:  secrets.OwnerID,
		BaseURL:  cfg.TwitchAPIBaseURL,
	}, codec, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: publisher: %w", err)
	}

	svc, err := usecase.NewSuggestionService(codec, store, users, pub, usecase.Config{
		MaxPhraseLength: cfg.MaxPhraseLength,
		RequireReceipt:  cfg.RequireReceipt,
		Recorder:        metrics,
	})
	if err != nil {
		return nil, err
	}
	return handler.NewHandler(svc)
}
