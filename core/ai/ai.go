// Package ai defines the contract for the external language-model client.
// Every failure mode — timeout, transport error, non-2xx status, malformed
// body — collapses into ErrUnavailable: callers fall back, they never
// distinguish the cause beyond logging it.
package ai

import (
	"context"

	"github.com/pkg/errors"
)

var ErrUnavailable = errors.New("language model unavailable")

// IsUnavailable reports whether err (or its cause) is the unavailable signal.
func IsUnavailable(err error) bool {
	return errors.Cause(err) == ErrUnavailable
}

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }
func UserMessage(content string) Message   { return Message{Role: RoleUser, Content: content} }

// Client is a single-attempt language-model client. Implementations apply a
// fixed request timeout and never retry; retry policy belongs to callers
// (and the assistant controller does not retry — it falls back immediately).
type Client interface {
	// Available reports whether the client is configured to reach the model
	// at all (e.g. an API key is present). A true result is no guarantee a
	// call will succeed.
	Available() bool

	// Complete sends the conversation and returns the full reply text.
	Complete(ctx context.Context, msgs []Message) (string, error)

	// Stream sends the conversation and forwards reply fragments to fn as
	// they arrive, returning the accumulated reply. A non-nil error from fn
	// aborts the stream.
	Stream(ctx context.Context, msgs []Message, fn func(chunk string) error) (string, error)
}
