// Package config reads the service settings from the environment and the
// extension secrets from Parameter Store (or the environment for local runs).
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"say-something/internal/integrations/paramstore"
)

const (
	defaultMaxPhraseLength = 280
	defaultHTTPTimeout     = 10 * time.Second
	defaultListenAddr      = ":3000"
)

type Config struct {
	SuggestionsTable string
	ParamPrefix      string
	MaxPhraseLength  int
	RequireReceipt   bool
	HTTPTimeout      time.Duration

	// Empty values fall back to the production Twitch endpoints.
	TwitchAPIBaseURL   string
	TwitchHelixBaseURL string
	TwitchTokenURL     string

	// Local development only.
	DynamoDBEndpoint string
	ListenAddr       string
}

// Load reads the environment. SUGGESTIONS_TABLE is the only required variable.
func Load() (*Config, error) {
	cfg := &Config{
		SuggestionsTable:   strings.TrimSpace(os.Getenv("SUGGESTIONS_TABLE")),
		ParamPrefix:        strings.TrimRight(strings.TrimSpace(os.Getenv("PARAM_PREFIX")), "/"),
		TwitchAPIBaseURL:   os.Getenv("TWITCH_API_BASE_URL"),
		TwitchHelixBaseURL: os.Getenv("TWITCH_HELIX_BASE_URL"),
		TwitchTokenURL:     os.Getenv("TWITCH_TOKEN_URL"),
		DynamoDBEndpoint:   os.Getenv("DYNAMODB_ENDPOINT"),
		ListenAddr:         os.Getenv("LISTEN_ADDR"),
	}
	if cfg.SuggestionsTable == "" {
		return nil, errors.New("config: SUGGESTIONS_TABLE is required")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}

	var err error
	if cfg.MaxPhraseLength, err = envInt("MAX_PHRASE_LENGTH", defaultMaxPhraseLength); err != nil {
		return nil, err
	}
	if cfg.RequireReceipt, err = envBool("REQUIRE_TRANSACTION_RECEIPT", false); err != nil {
		return nil, err
	}
	secs, err := envInt("HTTP_TIMEOUT_SECONDS", int(defaultHTTPTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = time.Duration(secs) * time.Second
	return cfg, nil
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %d", key, n)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return b, nil
}

// Secrets are the extension credentials. ExtensionSecret is still base64
// encoded as issued by the developer console.
type Secrets struct {
	ExtensionClientID string
	ExtensionSecret   string
	OwnerID           string
	// APIClientSecret enables Helix display-name lookups when set.
	APIClientSecret string
}

// Parameter names relative to PARAM_PREFIX.
const (
	paramClientID     = "/extension/client_id"
	paramSecret       = "/extension/secret"
	paramOwnerID      = "/extension/owner_id"
	paramClientSecret = "/twitch/client_secret"
)

type ParameterGetter interface {
	GetParameters(ctx context.Context, names ...string) (map[string]string, error)
}

// LoadSecrets reads the extension secrets under prefix in one round trip.
// The Twitch API client secret is read separately and may be absent.
func LoadSecrets(ctx context.Context, params ParameterGetter, prefix string) (Secrets, error) {
	if params == nil {
		return Secrets{}, errors.New("config: parameter getter must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return Secrets{}, errors.New("config: PARAM_PREFIX is required to load secrets")
	}
	values, err := params.GetParameters(ctx,
		prefix+paramClientID,
		prefix+paramSecret,
		prefix+paramOwnerID,
	)
	if err != nil {
		return Secrets{}, fmt.Errorf("config: load secrets: %w", err)
	}
	s := Secrets{
		ExtensionClientID: strings.TrimSpace(values[prefix+paramClientID]),
		ExtensionSecret:   strings.TrimSpace(values[prefix+paramSecret]),
		OwnerID:           strings.TrimSpace(values[prefix+paramOwnerID]),
	}
	if err := s.Validate(); err != nil {
		return Secrets{}, err
	}

	optional, err := params.GetParameters(ctx, prefix+paramClientSecret)
	var missing *paramstore.MissingError
	switch {
	case errors.As(err, &missing):
	case err != nil:
		return Secrets{}, fmt.Errorf("config: load twitch client secret: %w", err)
	default:
		s.APIClientSecret = strings.TrimSpace(optional[prefix+paramClientSecret])
	}
	return s, nil
}

// SecretsFromEnv is used by the development server.
func SecretsFromEnv() (Secrets, error) {
	s := Secrets{
		ExtensionClientID: strings.TrimSpace(os.Getenv("EXTENSION_CLIENT_ID")),
		ExtensionSecret:   strings.TrimSpace(os.Getenv("EXTENSION_SECRET")),
		OwnerID:           strings.TrimSpace(os.Getenv("EXTENSION_OWNER_ID")),
		APIClientSecret:   strings.TrimSpace(os.Getenv("TWITCH_CLIENT_SECRET")),
	}
	return s, s.Validate()
}

func (s Secrets) Validate() error {
	var missing []string
	if s.ExtensionClientID == "" {
		missing = append(missing, "extension client id")
	}
	if s.ExtensionSecret == "" {
		missing = append(missing, "extension secret")
	}
	if s.OwnerID == "" {
		missing = append(missing, "extension owner id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing secrets: %s", strings.Join(missing, ", "))
	}
	return nil
}
