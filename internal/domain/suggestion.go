package domain

// Suggestion is a viewer-submitted phrase for a channel. ChannelID and UUID
// together identify the record; only Completed changes after creation.
type Suggestion struct {
	ChannelID   string `json:"channelId"`
	UUID        string `json:"uuid"`
	Phrase      string `json:"phrase"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Completed   bool   `json:"completed"`
}
