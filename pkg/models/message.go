package models

// Receipt states for messages authored by SelfName.
const (
	ReceiptSent      = "sent"
	ReceiptDelivered = "delivered"
	ReceiptRead      = "read"
)

type Message struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Text string `json:"text"`
	// TS is epoch ms
	TS int64 `json:"ts"`
	// Receipt is present only on messages authored by SelfName.
	Receipt *Receipt `json:"receipt,omitempty"`
	// Image is an optional photo attachment.
	Image *Image `json:"image,omitempty"`
	// System marks synthetic notices (e.g. a failed auto-reply placeholder).
	System bool `json:"system,omitempty"`
}

// Receipt tracks delivery state for a user-authored message. State only
// moves forward: sent -> delivered -> read.
type Receipt struct {
	State string `json:"state"`
	// DeliveredTS/ReadTS are epoch ms, zero until the transition happens.
	DeliveredTS int64 `json:"delivered_ts,omitempty"`
	ReadTS      int64 `json:"read_ts,omitempty"`
}

type Image struct {
	Path    string `json:"path"`
	Caption string `json:"caption,omitempty"`
	Source  string `json:"source,omitempty"`
}

// receiptRank orders receipt states for monotonic advancement.
func receiptRank(state string) int {
	switch state {
	case ReceiptDelivered:
		return 1
	case ReceiptRead:
		return 2
	default:
		return 0
	}
}

// ReceiptAtLeast reports whether state a is at or past state b.
func ReceiptAtLeast(a, b string) bool { return receiptRank(a) >= receiptRank(b) }
