package models

import "time"

// Guest represents an invitee of one event
type Guest struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	WhatsApp  bool       `json:"whatsapp"`
	Group     string     `json:"group,omitempty"`
	Status    RSVPStatus `json:"status"`
	InviteID  string     `json:"invite_id,omitempty"`
	RSVPDate  time.Time  `json:"rsvp_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HasContact reports whether the guest can be reached by an outbound message
func (g Guest) HasContact() bool {
	return g.Phone != ""
}

// RSVPStatus represents the attendance confirmation status
type RSVPStatus string

const (
	RSVPPending   RSVPStatus = "pending"
	RSVPConfirmed RSVPStatus = "confirmed"
	RSVPDeclined  RSVPStatus = "declined"
)

// Valid reports whether s is one of the known statuses
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPConfirmed, RSVPDeclined:
		return true
	}
	return false
}

// Statuses lists every status in display order
func Statuses() []RSVPStatus {
	return []RSVPStatus{RSVPPending, RSVPConfirmed, RSVPDeclined}
}
