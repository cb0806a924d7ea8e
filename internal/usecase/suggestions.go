package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"say-something/internal/auth"
	"say-something/internal/domain"
	"say-something/internal/repository"
	"say-something/internal/telemetry"
)

const defaultMaxPhrase = 280

type Authenticator interface {
	Authenticate(raw string) (auth.Identity, error)
	VerifyReceipt(raw string) (auth.Receipt, error)
}

type SuggestionStore interface {
	ListByChannel(ctx context.Context, channelID string) ([]domain.Suggestion, error)
	Create(ctx context.Context, channelID, userID, displayName, phrase string) (domain.Suggestion, error)
	MarkCompleted(ctx context.Context, channelID, id string) (domain.Suggestion, error)
}

type UserLookup interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, channelID string, eventType domain.EventType, payload domain.Suggestion) error
}

// Recorder is the metrics sink; *telemetry.Metrics satisfies it.
type Recorder interface {
	SuggestionCreated()
	SuggestionCompleted()
	AuthRejected(reason string)
	PublishResult(event domain.EventType, err error)
	StoreError(op string)
}

type Config struct {
	MaxPhraseLength int
	// RequireReceipt rejects submissions without a bits transaction receipt.
	RequireReceipt bool
	Recorder       Recorder
}

type SuggestionService struct {
	auth           Authenticator
	store          SuggestionStore
	users          UserLookup
	pub            Publisher
	maxPhraseLen   int
	requireReceipt bool
	rec            Recorder
}

type SubmitInput struct {
	Authorization      string
	Phrase             string
	TransactionReceipt string
}

type CompleteInput struct {
	Authorization string
	MessageID     string
}

func NewSuggestionService(a Authenticator, s SuggestionStore, users UserLookup, pub Publisher, cfg Config) (*SuggestionService, error) {
	if a == nil {
		return nil, errors.New("usecase: authenticator must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: suggestion store must not be nil")
	}
	if users == nil {
		return nil, errors.New("usecase: user lookup must not be nil")
	}
	if pub == nil {
		return nil, errors.New("usecase: publisher must not be nil")
	}
	if cfg.MaxPhraseLength <= 0 {
		cfg.MaxPhraseLength = defaultMaxPhrase
	}
	rec := cfg.Recorder
	if rec == nil {
		rec = (*telemetry.Metrics)(nil)
	}
	return &SuggestionService{
		auth:           a,
		store:          s,
		users:          users,
		pub:            pub,
		maxPhraseLen:   cfg.MaxPhraseLength,
		requireReceipt: cfg.RequireReceipt,
		rec:            rec,
	}, nil
}

// List returns every suggestion recorded for the channel. No token is needed.
func (s *SuggestionService) List(ctx context.Context, channelID string) ([]domain.Suggestion, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, newError(ErrorInvalidInput, "missing_channel_id", nil)
	}
	out, err := s.store.ListByChannel(ctx, channelID)
	if err != nil {
		telemetry.Logger(ctx).Error("list suggestions failed", "channel_id", channelID, "err", err)
		s.rec.StoreError("list")
		return nil, newError(ErrorStoreUnavailable, "dynamodb_query_error", err)
	}
	return out, nil
}

// Submit records a viewer's phrase for the channel named in their token and
// announces it on the channel broadcast topic.
func (s *SuggestionService) Submit(ctx context.Context, in SubmitInput) (domain.Suggestion, error) {
	id, err := s.authenticate(in.Authorization)
	if err != nil {
		return domain.Suggestion{}, err
	}
	log := telemetry.Logger(ctx).With("channel_id", id.ChannelID)

	if !id.HasSharedID() {
		s.rec.AuthRejected("identity_not_shared")
		return domain.Suggestion{}, newError(ErrorForbidden, "identity_not_shared", nil)
	}

	phrase := strings.TrimSpace(in.Phrase)
	if phrase == "" {
		return domain.Suggestion{}, newError(ErrorInvalidInput, "empty_phrase", nil)
	}
	if utf8.RuneCountInString(phrase) > s.maxPhraseLen {
		return domain.Suggestion{}, newError(ErrorInvalidInput, "phrase_too_long", nil)
	}

	tx, err := s.checkReceipt(id, strings.TrimSpace(in.TransactionReceipt))
	if err != nil {
		log.Warn("transaction receipt rejected", "user_id", id.UserID, "err", err)
		return domain.Suggestion{}, err
	}

	displayName, err := s.users.DisplayName(ctx, id.UserID)
	if err != nil {
		// The viewer has already paid; store without a display name.
		log.Warn("display name lookup failed", "user_id", id.UserID, "err", err)
		displayName = ""
	}

	created, err := s.store.Create(ctx, id.ChannelID, id.UserID, displayName, phrase)
	if err != nil {
		log.Error("create suggestion failed", "err", err)
		s.rec.StoreError("create")
		return domain.Suggestion{}, newError(ErrorStoreUnavailable, "dynamodb_write_error", err)
	}
	s.rec.SuggestionCreated()
	// Receipts may be replayed until they expire.
	log.Info("suggestion created", "uuid", created.UUID, "transaction_id", tx.TransactionID, "sku", tx.Product.SKU)

	s.broadcast(ctx, created.ChannelID, domain.EventSendPhrase, created)
	return created, nil
}

// Complete marks a suggestion done on behalf of a moderator or the broadcaster.
// The role comes from the verified token only.
func (s *SuggestionService) Complete(ctx context.Context, in CompleteInput) (domain.Suggestion, error) {
	id, err := s.authenticate(in.Authorization)
	if err != nil {
		return domain.Suggestion{}, err
	}
	return s.complete(ctx, id.ChannelID, id.Role, strings.TrimSpace(in.MessageID))
}

func (s *SuggestionService) complete(ctx context.Context, channelID string, role domain.Role, messageID string) (domain.Suggestion, error) {
	log := telemetry.Logger(ctx).With("channel_id", channelID)

	if !role.CanModerate() {
		log.Warn("completion rejected: caller is not a moderator", "role", role)
		s.rec.AuthRejected("forbidden")
		return domain.Suggestion{}, newError(ErrorForbidden, "user_is_not_mod", nil)
	}
	if messageID == "" {
		return domain.Suggestion{}, newError(ErrorInvalidInput, "missing_message_id", nil)
	}

	updated, err := s.store.MarkCompleted(ctx, channelID, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Suggestion{}, newError(ErrorNotFound, "suggestion_not_found", err)
		}
		log.Error("mark completed failed", "uuid", messageID, "err", err)
		s.rec.StoreError("mark_completed")
		return domain.Suggestion{}, newError(ErrorStoreUnavailable, "dynamodb_update_error", err)
	}
	s.rec.SuggestionCompleted()
	log.Info("suggestion completed", "uuid", updated.UUID, "role", role)

	s.broadcast(ctx, channelID, domain.EventCompletedPhrase, updated)
	return updated, nil
}

func (s *SuggestionService) authenticate(raw string) (auth.Identity, error) {
	id, err := s.auth.Authenticate(raw)
	if err != nil {
		reason := authReason(err)
		s.rec.AuthRejected(reason)
		return auth.Identity{}, newError(ErrorUnauthorized, reason, err)
	}
	return id, nil
}

// checkReceipt returns the verified transaction, or the zero value when no
// receipt was sent and none is required.
func (s *SuggestionService) checkReceipt(id auth.Identity, raw string) (auth.ReceiptData, error) {
	if raw == "" {
		if s.requireReceipt {
			s.rec.AuthRejected("missing_receipt")
			return auth.ReceiptData{}, newError(ErrorForbidden, "missing_receipt", nil)
		}
		return auth.ReceiptData{}, nil
	}
	receipt, err := s.auth.VerifyReceipt(raw)
	if err != nil {
		s.rec.AuthRejected("invalid_receipt")
		return auth.ReceiptData{}, newError(ErrorUnauthorized, "invalid_receipt", err)
	}
	if receipt.Data.UserID != "" && receipt.Data.UserID != id.UserID {
		s.rec.AuthRejected("receipt_user_mismatch")
		return auth.ReceiptData{}, newError(ErrorForbidden, "receipt_user_mismatch", nil)
	}
	return receipt.Data, nil
}

// broadcast never fails the caller; publish errors are logged and counted.
func (s *SuggestionService) broadcast(ctx context.Context, channelID string, ev domain.EventType, payload domain.Suggestion) {
	err := s.pub.Publish(ctx, channelID, ev, payload)
	s.rec.PublishResult(ev, err)
	if err != nil {
		telemetry.Logger(ctx).Warn("broadcast publish failed",
			"channel_id", channelID, "event", ev, "uuid", payload.UUID, "err", err)
	}
}

func authReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpired):
		return "token_expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "malformed_token"
	}
}
