package models

import "time"

// Event owns invites and guests
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      string    `json:"date"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// Invite is a stylable invitation definition that many guests may link to
type Invite struct {
	ID        string      `json:"id"`
	EventID   string      `json:"event_id"`
	Title     string      `json:"title"`
	Style     InviteStyle `json:"style"`
	CreatedAt time.Time   `json:"created_at"`
}

// InviteStyle is the presentation configuration of an invite.
// It is stored as-is and never interpreted here.
type InviteStyle struct {
	Template   string `json:"template,omitempty"`
	Background string `json:"background,omitempty"`
	Accent     string `json:"accent,omitempty"`
	Font       string `json:"font,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}
