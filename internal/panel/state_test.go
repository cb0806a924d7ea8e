package panel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"say-something/internal/domain"
)

func send(p domain.Suggestion) Event {
	return BroadcastReceived{Message: domain.BroadcastMessage{EventType: domain.EventSendPhrase, Payload: p}}
}

func completed(id string) Event {
	return BroadcastReceived{Message: domain.BroadcastMessage{
		EventType: domain.EventCompletedPhrase,
		Payload:   domain.Suggestion{UUID: id, Completed: true},
	}}
}

func apply(s State, evs ...Event) State {
	for _, ev := range evs {
		s = Reduce(s, ev)
	}
	return s
}

func ids(list []domain.Suggestion) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.UUID)
	}
	return out
}

func TestInitialState(t *testing.T) {
	s := InitialState()
	require.Equal(t, "light", s.Theme)
	require.True(t, s.Visible)
	require.True(t, s.Loading)
	require.Empty(t, s.Phrases)
	require.Equal(t, FormIdle, s.Form)
	require.Equal(t, DefaultBitsPriceSKU, s.Config.BitsPriceSKU)
}

func TestReduce_BroadcastSetSemantics(t *testing.T) {
	a := domain.Suggestion{UUID: "a", Phrase: "one"}
	b := domain.Suggestion{UUID: "b", Phrase: "two"}

	s := apply(InitialState(), send(a), send(a), send(b))
	require.Equal(t, []string{"a", "b"}, ids(s.Phrases))

	s = apply(s, completed("a"), completed("a"), completed("missing"))
	require.Equal(t, []string{"b"}, ids(s.Phrases))

	// completion seen before the add it races with
	s = apply(InitialState(), completed("c"), send(domain.Suggestion{UUID: "c"}))
	require.Empty(t, s.Phrases)
}

func TestReduce_IgnoresCompletedAndUnknownBroadcasts(t *testing.T) {
	s := apply(InitialState(),
		send(domain.Suggestion{UUID: "done", Completed: true}),
		send(domain.Suggestion{}),
		BroadcastReceived{Message: domain.BroadcastMessage{EventType: "OTHER", Payload: domain.Suggestion{UUID: "x"}}},
	)
	require.Empty(t, s.Phrases)
}

func TestReduce_DoesNotMutatePriorState(t *testing.T) {
	before := apply(InitialState(), send(domain.Suggestion{UUID: "a"}), send(domain.Suggestion{UUID: "b"}))
	_ = Reduce(before, completed("a"))
	_ = Reduce(before, send(domain.Suggestion{UUID: "c"}))
	require.Equal(t, []string{"a", "b"}, ids(before.Phrases))
}

func TestReduce_FetchReplacesListWithOpenPhrases(t *testing.T) {
	s := apply(InitialState(),
		send(domain.Suggestion{UUID: "stale"}),
		FetchStarted{},
	)
	require.True(t, s.Loading)

	s = Reduce(s, PhrasesFetched{Result: Result[[]domain.Suggestion]{Data: []domain.Suggestion{
		{UUID: "a"}, {UUID: "b", Completed: true}, {UUID: "a"}, {UUID: "c"},
	}}})
	require.False(t, s.Loading)
	require.NoError(t, s.Err)
	require.Equal(t, []string{"a", "c"}, ids(s.Phrases))
}

func TestReduce_FetchKeepsSuggestionsAddedWhileInFlight(t *testing.T) {
	s := apply(InitialState(),
		FetchStarted{},
		send(domain.Suggestion{UUID: "y"}),
		PhraseSent{Result: Result[domain.Suggestion]{Data: domain.Suggestion{UUID: "mine"}}},
		send(domain.Suggestion{UUID: "gone"}),
		completed("gone"),
		PhrasesFetched{Result: Result[[]domain.Suggestion]{Data: []domain.Suggestion{{UUID: "x"}, {UUID: "y"}}}},
	)
	require.Equal(t, []string{"x", "y", "mine"}, ids(s.Phrases))

	// a later fetch is authoritative again
	s = apply(s, FetchStarted{}, PhrasesFetched{Result: Result[[]domain.Suggestion]{Data: []domain.Suggestion{{UUID: "x"}}}})
	require.Equal(t, []string{"x"}, ids(s.Phrases))
}

func TestReduce_FetchFailureKeepsList(t *testing.T) {
	s := apply(InitialState(), send(domain.Suggestion{UUID: "a"}), FetchStarted{},
		PhrasesFetched{Result: Result[[]domain.Suggestion]{Err: ErrFailedToFetch}})
	require.False(t, s.Loading)
	require.ErrorIs(t, s.Err, ErrFailedToFetch)
	require.Equal(t, []string{"a"}, ids(s.Phrases))
}

func TestReduce_FormLifecycle(t *testing.T) {
	s := Reduce(InitialState(), SubmitStarted{})
	require.Equal(t, FormSending, s.Form)

	cancelled := Reduce(s, TransactionCancelled{})
	require.Equal(t, FormIdle, cancelled.Form)

	failed := Reduce(s, PhraseSent{Result: Result[domain.Suggestion]{Err: ErrFailedToSend}})
	require.Equal(t, FormIdle, failed.Form)
	require.ErrorIs(t, failed.Err, ErrFailedToSend)

	sent := Reduce(s, PhraseSent{Result: Result[domain.Suggestion]{Data: domain.Suggestion{UUID: "new"}}})
	require.Equal(t, FormSent, sent.Form)
	require.Equal(t, []string{"new"}, ids(sent.Phrases))

	// the broadcast of our own phrase arrives afterwards
	sent = Reduce(sent, send(domain.Suggestion{UUID: "new"}))
	require.Len(t, sent.Phrases, 1)

	require.Equal(t, FormSent, Reduce(sent, SubmitStarted{}).Form)
	require.Equal(t, FormSent, Reduce(sent, TransactionCancelled{}).Form)
	require.Equal(t, FormIdle, Reduce(sent, FormReset{}).Form)
}

func TestReduce_PhraseCompleted(t *testing.T) {
	s := apply(InitialState(), send(domain.Suggestion{UUID: "a"}), send(domain.Suggestion{UUID: "b"}))

	failed := Reduce(s, PhraseCompleted{Result: Result[domain.Suggestion]{Err: errors.Join(ErrFailedToSend, errors.New("403"))}})
	require.ErrorIs(t, failed.Err, ErrFailedToSend)
	require.Len(t, failed.Phrases, 2)

	done := Reduce(failed, PhraseCompleted{Result: Result[domain.Suggestion]{Data: domain.Suggestion{UUID: "a", Completed: true}}})
	require.NoError(t, done.Err)
	require.Equal(t, []string{"b"}, ids(done.Phrases))
}

func TestReduce_ContextVisibilityConfig(t *testing.T) {
	s := apply(InitialState(),
		ContextChanged{Theme: "dark", Delta: []string{"game"}},
	)
	require.Equal(t, "light", s.Theme)

	s = apply(s,
		ContextChanged{Theme: "dark", Delta: []string{"theme", "game"}},
		VisibilityChanged{Visible: false},
		ConfigChanged{Raw: `{"allowModControl":"true"}`},
	)
	require.Equal(t, "dark", s.Theme)
	require.False(t, s.Visible)
	require.True(t, s.Config.AllowModControl)
}

func TestReduce_Authorized(t *testing.T) {
	s := Reduce(InitialState(), Authorized{Token: panelToken(t, "42", "1001", "U1001", "moderator"), OpaqueID: "U1001"})
	require.False(t, s.Loading)
	require.True(t, s.Session.IsModerator)

	s = Reduce(s, Authorized{Token: "garbage", OpaqueID: "U1001"})
	require.False(t, s.Session.IsAuthenticated())
}

func TestFormStatus_String(t *testing.T) {
	require.Equal(t, "idle", FormIdle.String())
	require.Equal(t, "sending", FormSending.String())
	require.Equal(t, "sent", FormSent.String())
}
