package panel

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"say-something/internal/domain"
)

type stubClient struct {
	mu        sync.Mutex
	fetch     Result[[]domain.Suggestion]
	sendRes   Result[domain.Suggestion]
	complete  Result[domain.Suggestion]
	fetchArgs [][2]string
	sent      []string
	completed []string
}

func (c *stubClient) FetchPhrases(_ context.Context, channelID, token string) Result[[]domain.Suggestion] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchArgs = append(c.fetchArgs, [2]string{channelID, token})
	return c.fetch
}

func (c *stubClient) SendPhrase(_ context.Context, phrase string, _ *Transaction, _ string) Result[domain.Suggestion] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, phrase)
	return c.sendRes
}

func (c *stubClient) MarkPhraseCompleted(_ context.Context, messageID, _ string, _ bool) Result[domain.Suggestion] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = append(c.completed, messageID)
	return c.complete
}

func newTestAdapter(t *testing.T, client *stubClient) (*Adapter, *Machine) {
	t.Helper()
	m := NewMachine(nil)
	a, err := NewAdapter(m, client)
	require.NoError(t, err)
	return a, m
}

func broadcastBody(t *testing.T, ev domain.EventType, p domain.Suggestion) string {
	t.Helper()
	b, err := json.Marshal(domain.BroadcastMessage{EventType: ev, Payload: p})
	require.NoError(t, err)
	return string(b)
}

func TestNewAdapter_ValidatesDependencies(t *testing.T) {
	_, err := NewAdapter(nil, &stubClient{})
	require.Error(t, err)
	_, err = NewAdapter(NewMachine(nil), nil)
	require.Error(t, err)
}

func TestAdapter_OnAuthorizedFetchesChannel(t *testing.T) {
	client := &stubClient{fetch: Result[[]domain.Suggestion]{Data: []domain.Suggestion{{UUID: "a"}}}}
	a, _ := newTestAdapter(t, client)

	tok := panelToken(t, "42", "1001", "U1001", "viewer")
	s := a.OnAuthorized(context.Background(), AuthData{ChannelID: "42", Token: tok, UserID: "U1001"})
	require.False(t, s.Loading)
	require.Equal(t, [][2]string{{"42", tok}}, client.fetchArgs)
	require.Equal(t, []string{"a"}, ids(s.Phrases))
}

func TestAdapter_OnAuthorizedBadTokenSkipsFetch(t *testing.T) {
	client := &stubClient{}
	a, _ := newTestAdapter(t, client)

	s := a.OnAuthorized(context.Background(), AuthData{Token: "junk", UserID: "U1"})
	require.False(t, s.Session.IsAuthenticated())
	require.Empty(t, client.fetchArgs)
}

func TestAdapter_OnBroadcast(t *testing.T) {
	a, _ := newTestAdapter(t, &stubClient{})

	s := a.OnBroadcast("broadcast", "application/json", broadcastBody(t, domain.EventSendPhrase, domain.Suggestion{UUID: "a"}))
	require.Equal(t, []string{"a"}, ids(s.Phrases))

	s = a.OnBroadcast("broadcast", "application/json", "{not json")
	require.Equal(t, []string{"a"}, ids(s.Phrases))

	s = a.OnBroadcast("broadcast", "application/json", broadcastBody(t, domain.EventCompletedPhrase, domain.Suggestion{UUID: "a", Completed: true}))
	require.Empty(t, s.Phrases)
}

func TestAdapter_SubmitFlow(t *testing.T) {
	client := &stubClient{sendRes: Result[domain.Suggestion]{Data: domain.Suggestion{UUID: "new", Phrase: "hey"}}}
	a, _ := newTestAdapter(t, client)

	require.Equal(t, FormSending, a.BeginSubmit().Form)
	require.Equal(t, FormIdle, a.OnTransactionCancelled().Form)

	a.BeginSubmit()
	s := a.OnTransactionComplete(context.Background(), "hey", &Transaction{TransactionReceipt: "r"})
	require.Equal(t, FormSent, s.Form)
	require.Equal(t, []string{"hey"}, client.sent)
	require.Equal(t, FormIdle, a.PostAnother().Form)
}

func TestAdapter_CompleteGatedOnSessionAndConfig(t *testing.T) {
	client := &stubClient{
		fetch:    Result[[]domain.Suggestion]{Data: []domain.Suggestion{{UUID: "a"}}},
		complete: Result[domain.Suggestion]{Data: domain.Suggestion{UUID: "a", Completed: true}},
	}
	a, _ := newTestAdapter(t, client)

	a.OnAuthorized(context.Background(), AuthData{Token: panelToken(t, "42", "7", "U7", "viewer"), UserID: "U7"})
	a.Complete(context.Background(), "a", false)
	require.Empty(t, client.completed)

	a.OnAuthorized(context.Background(), AuthData{Token: panelToken(t, "42", "7", "U7", "moderator"), UserID: "U7"})
	a.Complete(context.Background(), "a", false)
	require.Empty(t, client.completed)

	a.OnConfigChanged(`{"allowModControl":true}`)
	require.Equal(t, []string{"a"}, ids(a.m.State().Phrases))
	s := a.Complete(context.Background(), "a", false)
	require.Equal(t, []string{"a"}, client.completed)
	require.Empty(t, s.Phrases)
}

func TestAdapter_BroadcasterMayAlwaysComplete(t *testing.T) {
	client := &stubClient{complete: Result[domain.Suggestion]{Data: domain.Suggestion{UUID: "a", Completed: true}}}
	a, _ := newTestAdapter(t, client)

	a.OnAuthorized(context.Background(), AuthData{Token: panelToken(t, "42", "1", "U1", "broadcaster"), UserID: "U1"})
	a.Complete(context.Background(), "a", true)
	require.Equal(t, []string{"a"}, client.completed)
}

func TestAdapter_ContextAndVisibility(t *testing.T) {
	a, _ := newTestAdapter(t, &stubClient{})
	require.Equal(t, "dark", a.OnContext("dark", []string{"theme"}).Theme)
	require.False(t, a.OnVisibilityChanged(false).Visible)
}

func TestMachine_AppliesEventsInOrderAndNotifies(t *testing.T) {
	var seen []int
	m := NewMachine(func(s State) { seen = append(seen, len(s.Phrases)) })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Dispatch(send(domain.Suggestion{UUID: string(rune('A' + i))}))
		}(i)
	}
	wg.Wait()

	require.Len(t, m.State().Phrases, 50)
	require.Len(t, seen, 50)
	for i, n := range seen {
		require.Equal(t, i+1, n)
	}
}
