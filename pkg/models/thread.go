package models

// SelfName is the fixed participant name representing the player.
const SelfName = "You"

type Thread struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	// Participants is an ordered, case-insensitively unique set of display
	// names. It always contains SelfName.
	Participants []string  `json:"participants"`
	Messages     []Message `json:"messages"`
	// Created timestamp (epoch ms)
	CreatedTS int64 `json:"created_ts,omitempty"`
	// Updated timestamp (epoch ms) - last time thread activity changed
	UpdatedTS int64 `json:"updated_ts,omitempty"`
	// UnreadCount is the number of inbound messages since the last mark-read.
	UnreadCount int `json:"unread_count"`
}

// LastMessage returns the most recent message, or nil for an empty thread.
func (t *Thread) LastMessage() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}

// Others returns the participants excluding SelfName, preserving order.
func (t *Thread) Others() []string {
	var out []string
	for _, p := range t.Participants {
		if p != SelfName {
			out = append(out, p)
		}
	}
	return out
}

// ThreadSummary is the list-view projection of a thread.
type ThreadSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title,omitempty"`
	Participants []string `json:"participants"`
	UpdatedTS    int64    `json:"updated_ts,omitempty"`
	UnreadCount  int      `json:"unread_count"`
	Preview      string   `json:"preview,omitempty"`
	PresenceText string   `json:"presence_text,omitempty"`
}

// ThreadsDoc is the persisted threads document.
type ThreadsDoc struct {
	Threads []Thread   `json:"threads"`
	Meta    ThreadMeta `json:"meta"`
}

// ThreadMeta carries scheduler bookkeeping persisted alongside threads.
type ThreadMeta struct {
	// LastPollTS is the last accepted poll time (epoch ms), used by the
	// scheduler rate gate.
	LastPollTS int64 `json:"last_poll_ts"`
	// Presence maps lowercase character name to last-known activity.
	Presence map[string]Presence `json:"presence,omitempty"`
}

// Presence is the last-known activity of one character.
type Presence struct {
	Status string `json:"status,omitempty"`
	// LastActiveTS is epoch ms of the character's last simulated activity.
	LastActiveTS int64 `json:"last_active_ts,omitempty"`
}
