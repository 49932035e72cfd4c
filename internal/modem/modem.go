package modem

import (
	"context"
	"time"
)

// Message is one inbound SMS as reported by the transport.
type Message struct {
	Number string
	SentAt time.Time
	Text   string
}

// Call is the handle for one outbound voice call. Status checks reflect
// the transport's view at the moment of the call; a call that dropped is
// simply no longer active.
type Call interface {
	Active() bool
	Answered() bool
	SendTones(digits string) error
	Hangup() error
}

type Dialer interface {
	Dial(ctx context.Context, number string) (Call, error)
}

// Transport is the full GSM capability surface the service consumes.
// Implementations are a single shared session: operations are sequential
// and non-reentrant, callers must not overlap them.
type Transport interface {
	Dialer

	// ProcessStored delivers pending unread messages, invoking onMessage
	// for each before returning.
	ProcessStored(ctx context.Context, onMessage func(Message)) error

	// Send delivers an SMS to number. Best effort, fire and forget.
	Send(ctx context.Context, number, text string) error

	Close() error
}
