// Package gateway describes the outbound messaging provider.
package gateway

import (
	"context"
	"strings"
)

// Message is a single outbound send.
type Message struct {
	GuestID    string `json:"guest_id"`
	Phone      string `json:"phone"`
	Text       string `json:"message"`
	InviteLink string `json:"invite_link,omitempty"`
}

// Receipt is returned by the provider for an accepted message.
type Receipt struct {
	ProviderMessageID string `json:"provider_message_id"`
}

// Sender delivers one message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, msg Message) (Receipt, error)

func (f SenderFunc) Send(ctx context.Context, msg Message) (Receipt, error) {
	return f(ctx, msg)
}

// ConfirmationURL returns the public RSVP link of a guest.
func ConfirmationURL(origin, guestID string) string {
	return strings.TrimRight(origin, "/") + "/rsvp/" + guestID
}
