// Package llm defines the conversational model interface used by the
// response pipeline. Backends live in subpackages (llm/nova, llm/openai);
// a test double lives in llm/mock.
package llm

import (
	"context"
	"fmt"
)

// Message is one turn of a conversation as handed to a Responder.
type Message struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the plain-text body of the turn.
	Content string
}

// Roles understood by Responder implementations.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StatusError reports a non-2xx response from a model API. Callers use it to
// distinguish upstream rejections from transport failures.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: upstream status %d: %s", e.Code, e.Body)
}

// Responder produces one assistant reply for a conversation. Implementations
// must be safe for concurrent use: the dispatcher runs one call per in-flight
// utterance.
type Responder interface {
	// Converse sends the system prompt and conversation history to the model
	// and returns the assistant's reply text. history must begin with a user
	// turn and alternate roles; the final entry is the turn being answered.
	// Non-2xx upstream responses are reported as *StatusError.
	Converse(ctx context.Context, system string, history []Message) (string, error)
}
