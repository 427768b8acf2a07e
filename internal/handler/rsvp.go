package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types/events"

	"wedding-invites/internal/models"
	"wedding-invites/internal/whatsapp"
)

// StatusSetter funnels an RSVP answer into the guest lifecycle.
type StatusSetter interface {
	SetStatus(ctx context.Context, guestID string, status models.RSVPStatus) (models.Guest, error)
}

// GuestFinder resolves guests of the active event. Reload is called when a
// lookup misses, so guests added by another process are picked up.
type GuestFinder interface {
	Guest(id string) (models.Guest, bool)
	GuestByPhone(phone string) (models.Guest, bool)
	Reload(ctx context.Context) error
}

// findGuest runs lookup, reloading the guests once if it misses.
func findGuest(ctx context.Context, guests GuestFinder, log zerolog.Logger, lookup func() (models.Guest, bool)) (models.Guest, bool) {
	if g, ok := lookup(); ok {
		return g, true
	}
	if err := guests.Reload(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to reload guests")
		return models.Guest{}, false
	}
	return lookup()
}

// Replier sends a text reply to a phone number.
type Replier interface {
	SendText(ctx context.Context, phoneNumber, text string) (string, error)
}

type RSVPHandler struct {
	statuses    StatusSetter
	guests      GuestFinder
	replier     Replier
	event       models.Event
	countryCode string
	log         zerolog.Logger
}

// NewRSVPHandler creates a new RSVP handler for one event
func NewRSVPHandler(statuses StatusSetter, guests GuestFinder, replier Replier, event models.Event, countryCode string, log zerolog.Logger) *RSVPHandler {
	return &RSVPHandler{
		statuses:    statuses,
		guests:      guests,
		replier:     replier,
		event:       event,
		countryCode: countryCode,
		log:         log.With().Str("component", "rsvp").Logger(),
	}
}

// HandleMessage processes incoming WhatsApp messages for RSVP responses
func (h *RSVPHandler) HandleMessage(msg *events.Message) error {
	if msg.Message == nil {
		return nil
	}
	text := msg.Message.GetConversation()
	if text == "" {
		text = msg.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" {
		return nil
	}
	return h.HandleReply(context.Background(), msg.Info.Sender.User, text)
}

// HandleReply applies a free text answer from phoneNumber. Senders that are
// not guests of the event and answers that are neither yes nor no are ignored.
func (h *RSVPHandler) HandleReply(ctx context.Context, phoneNumber, text string) error {
	phoneNumber = whatsapp.NormalizePhoneNumber(phoneNumber, h.countryCode)

	guest, ok := findGuest(ctx, h.guests, h.log, func() (models.Guest, bool) {
		return h.guests.GuestByPhone(phoneNumber)
	})
	if !ok {
		return nil
	}

	status, ok := ParseReply(text)
	if !ok {
		h.log.Debug().Str("guest_id", guest.ID).Msg("Ignoring reply that is not an RSVP")
		return nil
	}

	if _, err := h.statuses.SetStatus(ctx, guest.ID, status); err != nil {
		return fmt.Errorf("failed to update RSVP: %w", err)
	}
	h.log.Info().Str("guest_id", guest.ID).Str("status", string(status)).Msg("RSVP received")

	if h.replier == nil {
		return nil
	}
	if _, err := h.replier.SendText(ctx, phoneNumber, h.confirmation(guest, status)); err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}
	return nil
}

func (h *RSVPHandler) confirmation(guest models.Guest, status models.RSVPStatus) string {
	if status == models.RSVPConfirmed {
		return fmt.Sprintf(
			"🎉 Wonderful, %s! We're so excited to celebrate with you!\n\n"+
				"We've confirmed your attendance at %s on %s.\n\nSee you there! 💕",
			guest.Name, h.event.Name, h.event.Date,
		)
	}
	return fmt.Sprintf(
		"Thank you for letting us know, %s. We're sorry you won't be able to join us at %s.\n\nWe'll miss you! 💕",
		guest.Name, h.event.Name,
	)
}

var (
	declineKeywords = []string{"not coming", "not attending", "can't come", "cannot come", "won't come", "can't make it", "no", "nope", "decline", "declining", "❌"}
	acceptKeywords  = []string{"yes", "yep", "yeah", "accept", "accepting", "attending", "coming", "will come", "will be there", "✅"}
)

// ParseReply maps a free text reply to confirmed or declined. Negative
// phrases are checked first so "not coming" never reads as "coming".
func ParseReply(text string) (models.RSVPStatus, bool) {
	text = " " + strings.Map(func(r rune) rune {
		switch r {
		case '’':
			return '\''
		case '.', ',', '!', '?', ';', ':', '\n', '\t':
			return ' '
		}
		return r
	}, strings.ToLower(strings.TrimSpace(text))) + " "

	switch {
	case containsAny(text, declineKeywords...):
		return models.RSVPDeclined, true
	case containsAny(text, acceptKeywords...):
		return models.RSVPConfirmed, true
	}
	return "", false
}

// containsAny checks if the padded text contains any keyword as whole words
func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, " "+keyword+" ") || (!isWord(keyword) && strings.Contains(text, keyword)) {
			return true
		}
	}
	return false
}

func isWord(s string) bool {
	for _, r := range s {
		if r > 0x7f {
			return false
		}
	}
	return true
}
