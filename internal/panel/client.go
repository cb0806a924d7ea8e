package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"say-something/internal/domain"
)

var (
	ErrFailedToFetch = errors.New("FAILED_TO_FETCH")
	ErrFailedToSend  = errors.New("FAILED_TO_SEND")
)

// Result is what every data client call resolves to: Data on success,
// otherwise Err wrapping ErrFailedToFetch or ErrFailedToSend.
type Result[T any] struct {
	Data T
	Err  error
}

// Transaction is the completed bits transaction handed to the panel.
type Transaction struct {
	TransactionID      string          `json:"transactionId"`
	Product            json.RawMessage `json:"product,omitempty"`
	UserID             string          `json:"userId"`
	DisplayName        string          `json:"displayName,omitempty"`
	Initiator          string          `json:"initiator,omitempty"`
	TransactionReceipt string          `json:"transactionReceipt"`
}

// Client calls the suggestion API on behalf of the panel.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("panel: api base url must not be empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

// FetchPhrases lists the channel's suggestions.
func (c *Client) FetchPhrases(ctx context.Context, channelID, token string) Result[[]domain.Suggestion] {
	var out []domain.Suggestion
	u := c.baseURL + "/phrases?channelId=" + url.QueryEscape(channelID)
	if err := c.call(ctx, http.MethodGet, u, token, nil, &out); err != nil {
		return Result[[]domain.Suggestion]{Err: fmt.Errorf("%w: %w", ErrFailedToFetch, err)}
	}
	if out == nil {
		out = []domain.Suggestion{}
	}
	return Result[[]domain.Suggestion]{Data: out}
}

// SendPhrase submits a phrase paid for by tx.
func (c *Client) SendPhrase(ctx context.Context, phrase string, tx *Transaction, token string) Result[domain.Suggestion] {
	if tx == nil {
		return Result[domain.Suggestion]{Err: fmt.Errorf("%w: missing transaction", ErrFailedToSend)}
	}
	body := struct {
		Phrase            string       `json:"phrase"`
		TransactionObject *Transaction `json:"transactionObject"`
	}{phrase, tx}

	var out domain.Suggestion
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/phrase", token, body, &out); err != nil {
		return Result[domain.Suggestion]{Err: fmt.Errorf("%w: %w", ErrFailedToSend, err)}
	}
	return Result[domain.Suggestion]{Data: out}
}

// MarkPhraseCompleted asks the API to complete messageID. isRejected is
// forwarded as-is.
func (c *Client) MarkPhraseCompleted(ctx context.Context, messageID, token string, isRejected bool) Result[domain.Suggestion] {
	body := struct {
		MessageID  string `json:"messageId"`
		IsRejected bool   `json:"isRejected"`
	}{messageID, isRejected}

	var out domain.Suggestion
	if err := c.call(ctx, http.MethodPut, c.baseURL+"/completed", token, body, &out); err != nil {
		return Result[domain.Suggestion]{Err: fmt.Errorf("%w: %w", ErrFailedToSend, err)}
	}
	return Result[domain.Suggestion]{Data: out}
}

func (c *Client) call(ctx context.Context, method, u, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return fmt.Errorf("status %d %s", resp.StatusCode, e.Error)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
