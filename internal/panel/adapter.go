package panel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"say-something/internal/domain"
)

// Machine serializes events onto a State. Events are applied in the order
// Dispatch is called.
type Machine struct {
	mu       sync.Mutex
	state    State
	onChange func(State)
}

// NewMachine starts from InitialState. onChange, if set, is called with every
// new state while the machine lock is held.
func NewMachine(onChange func(State)) *Machine {
	return &Machine{state: InitialState(), onChange: onChange}
}

func (m *Machine) Dispatch(ev Event) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Reduce(m.state, ev)
	if m.onChange != nil {
		m.onChange(m.state)
	}
	return m.state
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// DataClient is the subset of *Client the adapter drives.
type DataClient interface {
	FetchPhrases(ctx context.Context, channelID, token string) Result[[]domain.Suggestion]
	SendPhrase(ctx context.Context, phrase string, tx *Transaction, token string) Result[domain.Suggestion]
	MarkPhraseCompleted(ctx context.Context, messageID, token string, isRejected bool) Result[domain.Suggestion]
}

// AuthData mirrors the object passed to the platform's onAuthorized callback.
type AuthData struct {
	ChannelID string `json:"channelId"`
	ClientID  string `json:"clientId"`
	Token     string `json:"token"`
	UserID    string `json:"userId"`
}

// Adapter turns platform callbacks and user actions into machine events.
type Adapter struct {
	m      *Machine
	client DataClient
}

func NewAdapter(m *Machine, client DataClient) (*Adapter, error) {
	if m == nil {
		return nil, errors.New("panel: machine must not be nil")
	}
	if client == nil {
		return nil, errors.New("panel: data client must not be nil")
	}
	return &Adapter{m: m, client: client}, nil
}

// OnAuthorized records the new session and reloads the list.
func (a *Adapter) OnAuthorized(ctx context.Context, data AuthData) State {
	s := a.m.Dispatch(Authorized{Token: data.Token, OpaqueID: data.UserID})
	if !s.Session.IsAuthenticated() {
		return s
	}
	return a.Refresh(ctx)
}

// OnBroadcast handles a message on the broadcast topic. Bodies that do not
// decode to a suggestion event are dropped.
func (a *Adapter) OnBroadcast(target, contentType, body string) State {
	var msg domain.BroadcastMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		slog.Debug("dropping undecodable broadcast", "target", target, "content_type", contentType, "err", err)
		return a.m.State()
	}
	return a.m.Dispatch(BroadcastReceived{Message: msg})
}

func (a *Adapter) OnContext(theme string, delta []string) State {
	return a.m.Dispatch(ContextChanged{Theme: theme, Delta: delta})
}

func (a *Adapter) OnVisibilityChanged(visible bool) State {
	return a.m.Dispatch(VisibilityChanged{Visible: visible})
}

// OnConfigChanged receives the broadcaster configuration segment content.
func (a *Adapter) OnConfigChanged(content string) State {
	return a.m.Dispatch(ConfigChanged{Raw: content})
}

func (a *Adapter) OnTransactionCancelled() State {
	return a.m.Dispatch(TransactionCancelled{})
}

// Refresh reloads the channel's open suggestions.
func (a *Adapter) Refresh(ctx context.Context) State {
	sess := a.m.Dispatch(FetchStarted{}).Session
	res := a.client.FetchPhrases(ctx, sess.ChannelID, sess.Token)
	return a.m.Dispatch(PhrasesFetched{Result: res})
}

// BeginSubmit is called when the viewer starts the bits purchase.
func (a *Adapter) BeginSubmit() State {
	return a.m.Dispatch(SubmitStarted{})
}

// OnTransactionComplete sends the phrase with the completed transaction.
func (a *Adapter) OnTransactionComplete(ctx context.Context, phrase string, tx *Transaction) State {
	res := a.client.SendPhrase(ctx, phrase, tx, a.m.State().Session.Token)
	return a.m.Dispatch(PhraseSent{Result: res})
}

// PostAnother returns a sent form to idle.
func (a *Adapter) PostAnother() State {
	return a.m.Dispatch(FormReset{})
}

// Complete marks a phrase done. The call is only made when the session looks
// like a moderator's and the broadcaster allows moderator control; the API
// checks the role again.
func (a *Adapter) Complete(ctx context.Context, messageID string, isRejected bool) State {
	s := a.m.State()
	if !s.Session.IsBroadcaster && !(s.Session.IsModerator && s.Config.AllowModControl) {
		return s
	}
	res := a.client.MarkPhraseCompleted(ctx, messageID, s.Session.Token, isRejected)
	return a.m.Dispatch(PhraseCompleted{Result: res})
}
