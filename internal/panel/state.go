package panel

import (
	"slices"

	"say-something/internal/domain"
)

// FormStatus tracks the suggestion form through a bits purchase.
type FormStatus int

const (
	FormIdle FormStatus = iota
	FormSending
	FormSent
)

func (f FormStatus) String() string {
	switch f {
	case FormSending:
		return "sending"
	case FormSent:
		return "sent"
	default:
		return "idle"
	}
}

// State is everything the panel renders from. It is only changed by Reduce.
type State struct {
	Session Session
	Config  Config
	Theme   string
	Visible bool
	// Loading is true until the first authorization and while a fetch runs.
	Loading bool
	Phrases []domain.Suggestion
	Form    FormStatus
	// Err is the last data client failure, cleared by the next success.
	Err error

	// done holds ids seen completed so a late SEND cannot bring them back.
	done map[string]struct{}
	// pending holds suggestions added while a fetch is in flight; the
	// fetched snapshot may predate them.
	fetching bool
	pending  []domain.Suggestion
}

func InitialState() State {
	return State{
		Config:  DefaultConfig(),
		Theme:   "light",
		Visible: true,
		Loading: true,
		Phrases: []domain.Suggestion{},
	}
}

// Event is a platform callback or data client outcome.
type Event interface {
	event()
}

type Authorized struct {
	Token    string
	OpaqueID string
}

type BroadcastReceived struct {
	Message domain.BroadcastMessage
}

type ContextChanged struct {
	Theme string
	Delta []string
}

type VisibilityChanged struct {
	Visible bool
}

type ConfigChanged struct {
	Raw string
}

type FetchStarted struct{}

type PhrasesFetched struct {
	Result Result[[]domain.Suggestion]
}

type SubmitStarted struct{}

type PhraseSent struct {
	Result Result[domain.Suggestion]
}

type PhraseCompleted struct {
	Result Result[domain.Suggestion]
}

type TransactionCancelled struct{}

// FormReset is the "post another" action after a successful send.
type FormReset struct{}

func (Authorized) event()           {}
func (BroadcastReceived) event()    {}
func (ContextChanged) event()       {}
func (VisibilityChanged) event()    {}
func (ConfigChanged) event()        {}
func (FetchStarted) event()         {}
func (PhrasesFetched) event()       {}
func (SubmitStarted) event()        {}
func (PhraseSent) event()           {}
func (PhraseCompleted) event()      {}
func (TransactionCancelled) event() {}
func (FormReset) event()            {}

// Reduce returns the state after ev. s is not modified.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case Authorized:
		s.Session.SetToken(e.Token, e.OpaqueID)
		s.Loading = false
	case BroadcastReceived:
		switch e.Message.EventType {
		case domain.EventSendPhrase:
			s = s.added(e.Message.Payload)
		case domain.EventCompletedPhrase:
			s = s.complete(e.Message.Payload.UUID)
		}
	case ContextChanged:
		if slices.Contains(e.Delta, "theme") && e.Theme != "" {
			s.Theme = e.Theme
		}
	case VisibilityChanged:
		s.Visible = e.Visible
	case ConfigChanged:
		s.Config = ParseConfig(e.Raw)
	case FetchStarted:
		if !s.fetching {
			s.pending = nil
		}
		s.fetching = true
		s.Loading = true
	case PhrasesFetched:
		pending := s.pending
		s.fetching, s.pending = false, nil
		s.Loading = false
		if e.Result.Err != nil {
			s.Err = e.Result.Err
			break
		}
		s.Err = nil
		list := s.open(e.Result.Data)
		for _, p := range pending {
			list = s.add(list, p)
		}
		s.Phrases = list
	case SubmitStarted:
		if s.Form == FormIdle {
			s.Form = FormSending
		}
	case PhraseSent:
		if e.Result.Err != nil {
			s.Err = e.Result.Err
			s.Form = FormIdle
			break
		}
		s.Err = nil
		s.Form = FormSent
		s = s.added(e.Result.Data)
	case PhraseCompleted:
		if e.Result.Err != nil {
			s.Err = e.Result.Err
			break
		}
		s.Err = nil
		s = s.complete(e.Result.Data.UUID)
	case TransactionCancelled:
		if s.Form == FormSending {
			s.Form = FormIdle
		}
	case FormReset:
		if s.Form == FormSent {
			s.Form = FormIdle
		}
	}
	return s
}

// add appends p unless it is completed or already listed.
func (s State) add(list []domain.Suggestion, p domain.Suggestion) []domain.Suggestion {
	if p.UUID == "" || p.Completed || indexOf(list, p.UUID) >= 0 {
		return list
	}
	if _, ok := s.done[p.UUID]; ok {
		return list
	}
	out := make([]domain.Suggestion, 0, len(list)+1)
	out = append(out, list...)
	return append(out, p)
}

// added lists p and, during a fetch, remembers it for the merge.
func (s State) added(p domain.Suggestion) State {
	list := s.add(s.Phrases, p)
	if len(list) == len(s.Phrases) {
		return s
	}
	s.Phrases = list
	if s.fetching {
		pending := make([]domain.Suggestion, 0, len(s.pending)+1)
		pending = append(pending, s.pending...)
		s.pending = append(pending, p)
	}
	return s
}

// complete drops id from the list and remembers it.
func (s State) complete(id string) State {
	if id == "" {
		return s
	}
	done := make(map[string]struct{}, len(s.done)+1)
	for k := range s.done {
		done[k] = struct{}{}
	}
	done[id] = struct{}{}
	s.done = done

	i := indexOf(s.Phrases, id)
	if i < 0 {
		return s
	}
	out := make([]domain.Suggestion, 0, len(s.Phrases)-1)
	out = append(out, s.Phrases[:i]...)
	s.Phrases = append(out, s.Phrases[i+1:]...)
	return s
}

func (s State) open(list []domain.Suggestion) []domain.Suggestion {
	out := make([]domain.Suggestion, 0, len(list))
	for _, p := range list {
		out = s.add(out, p)
	}
	return out
}

func indexOf(list []domain.Suggestion, id string) int {
	return slices.IndexFunc(list, func(p domain.Suggestion) bool { return p.UUID == id })
}
