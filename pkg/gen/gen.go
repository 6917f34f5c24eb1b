// Package gen abstracts the text-generation backend that writes the
// characters' messages. The engine only depends on the Generator
// interface; failures and empty output are recovered per message by the
// caller, never escalated.
package gen

import (
	"context"
	"errors"

	"phonesim/pkg/models"
)

// ErrEmpty is returned when the backend produced no usable text.
var ErrEmpty = errors.New("generator returned empty text")

// Request carries the thread context for one message generation.
type Request struct {
	// Speaker is the character who is writing the message.
	Speaker string
	// Participants is the thread's full participant list.
	Participants []string
	// Recent holds the most recent thread messages, oldest first.
	Recent []models.Message
	// TopicHint nudges the message toward a narrative hook topic.
	TopicHint string
	// Reply marks a direct answer to the player rather than ambient chatter.
	Reply bool
	// Chatter marks a side conversation between characters, not addressed
	// to the player.
	Chatter bool
	// Photo requests a caption suitable for an attached photo.
	Photo bool
}

// Generator produces one message text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
