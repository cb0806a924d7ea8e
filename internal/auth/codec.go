// Package auth verifies extension session tokens and mints the short-lived
// tokens the backend presents to the platform.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"say-something/internal/domain"
)

const bearerPrefix = "Bearer "

var (
	ErrInvalidSignature = errors.New("auth: invalid signature")
	ErrExpired          = errors.New("auth: token expired")
	ErrMalformed        = errors.New("auth: malformed token")
)

// signingMethod is the only algorithm accepted or produced.
var signingMethod = jwt.SigningMethodHS256

// PubsubPerms scopes what a token may do on the extension pubsub.
type PubsubPerms struct {
	Listen []string `json:"listen,omitempty"`
	Send   []string `json:"send,omitempty"`
}

// Claims is the payload of an extension session token.
type Claims struct {
	ChannelID    string       `json:"channel_id"`
	UserID       string       `json:"user_id,omitempty"`
	OpaqueUserID string       `json:"opaque_user_id,omitempty"`
	Role         string       `json:"role"`
	IsUnlinked   bool         `json:"is_unlinked,omitempty"`
	PubsubPerms  *PubsubPerms `json:"pubsub_perms,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the shared extension secret. Now is optional and exists so
// tests can pin the clock.
type Config struct {
	Secret []byte
	Now    func() time.Time
}

// Codec verifies and issues HS256 tokens with a single shared secret.
type Codec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// DecodeSecret decodes the base64 extension secret shown in the developer console.
func DecodeSecret(b64 string) ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("auth: decode extension secret: %w", err)
	}
	return secret, nil
}

// NewCodec creates a Codec from cfg.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: secret must not be empty")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Codec{
		secret: cfg.Secret,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

// Verify checks the signature and expiry of a raw or bearer-prefixed session
// token and returns its claims.
func (c *Codec) Verify(raw string) (Claims, error) {
	var claims Claims
	if err := c.parse(raw, &claims); err != nil {
		return Claims{}, err
	}
	if claims.ChannelID == "" {
		return Claims{}, fmt.Errorf("%w: missing channel_id", ErrMalformed)
	}
	return claims, nil
}

// Authenticate verifies raw and projects the result onto an Identity.
func (c *Codec) Authenticate(raw string) (Identity, error) {
	claims, err := c.Verify(raw)
	if err != nil {
		return Identity{}, err
	}
	return IdentityFromClaims(claims), nil
}

// Issue mints a token allowing publisherID to send on channelID's broadcast
// topic for ttl.
func (c *Codec) Issue(channelID, publisherID string, ttl time.Duration) (string, error) {
	if channelID == "" {
		return "", errors.New("auth: Issue: channel id is required")
	}
	if ttl <= 0 {
		return "", errors.New("auth: Issue: ttl must be positive")
	}
	claims := Claims{
		ChannelID: channelID,
		UserID:    publisherID,
		Role:      string(domain.RoleExternal),
		PubsubPerms: &PubsubPerms{
			Send: []string{"broadcast"},
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(c.now().Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: Issue: sign: %w", err)
	}
	return signed, nil
}

func (c *Codec) parse(raw string, claims jwt.Claims) error {
	token := stripBearer(raw)
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrMalformed)
	}
	_, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify folds the jwt error tree onto the three auth sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func stripBearer(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, bearerPrefix) {
		raw = strings.TrimSpace(raw[len(bearerPrefix):])
	}
	return raw
}
