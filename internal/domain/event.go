package domain

// EventType names a change pushed over the channel broadcast topic.
type EventType string

const (
	EventSendPhrase      EventType = "SEND_PHRASE_EVENT"
	EventCompletedPhrase EventType = "COMPLETED_PHRASE_EVENT"
)

// BroadcastMessage is the JSON document carried in the pubsub message field.
type BroadcastMessage struct {
	EventType EventType  `json:"eventType"`
	Payload   Suggestion `json:"payload"`
}
