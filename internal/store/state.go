// Package store holds the guest and invite snapshot of one event.
//
// A State is a value. It is never mutated in place: Apply returns a new State
// built from the old one and a Mutation.
package store

import (
	"slices"
	"strings"

	"wedding-invites/internal/models"
)

// State is the last committed snapshot of an event's guests and invites.
type State struct {
	EventID string
	guests  []models.Guest
	invites []models.Invite
}

// New returns a state holding copies of guests and invites.
func New(eventID string, guests []models.Guest, invites []models.Invite) State {
	return State{
		EventID: eventID,
		guests:  slices.Clone(guests),
		invites: slices.Clone(invites),
	}
}

// Guests returns a copy of every guest in insertion order
func (s State) Guests() []models.Guest {
	return slices.Clone(s.guests)
}

func (s State) Invites() []models.Invite {
	return slices.Clone(s.invites)
}

// Guest looks up a guest by id
func (s State) Guest(id string) (models.Guest, bool) {
	for _, g := range s.guests {
		if g.ID == id {
			return g, true
		}
	}
	return models.Guest{}, false
}

// Invite looks up an invite by id
func (s State) Invite(id string) (models.Invite, bool) {
	for _, inv := range s.invites {
		if inv.ID == id {
			return inv, true
		}
	}
	return models.Invite{}, false
}

// GuestByPhone finds the guest with the given normalized phone number.
func (s State) GuestByPhone(phone string) (models.Guest, bool) {
	for _, g := range s.guests {
		if phone != "" && g.Phone == phone {
			return g, true
		}
	}
	return models.Guest{}, false
}

// IDs returns the ids of every guest, in order
func (s State) IDs() []string {
	ids := make([]string, len(s.guests))
	for i, g := range s.guests {
		ids[i] = g.ID
	}
	return ids
}

// Filter narrows a guest list. Zero fields match everything.
type Filter struct {
	Status models.RSVPStatus
	Group  string
	Query  string
}

// Match reports whether g passes the filter.
func (f Filter) Match(g models.Guest) bool {
	if f.Status != "" && g.Status != f.Status {
		return false
	}
	if f.Group != "" && !strings.EqualFold(g.Group, f.Group) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(g.Name), q) &&
			!strings.Contains(strings.ToLower(g.Email), q) &&
			!strings.Contains(g.Phone, q) {
			return false
		}
	}
	return true
}

// Visible returns the guests matching f
func (s State) Visible(f Filter) []models.Guest {
	var out []models.Guest
	for _, g := range s.guests {
		if f.Match(g) {
			out = append(out, g)
		}
	}
	return out
}

// VisibleIDs returns the ids of the guests matching f
func (s State) VisibleIDs(f Filter) []string {
	var ids []string
	for _, g := range s.guests {
		if f.Match(g) {
			ids = append(ids, g.ID)
		}
	}
	return ids
}

// Counts returns the number of guests per status.
func (s State) Counts() map[models.RSVPStatus]int {
	counts := make(map[models.RSVPStatus]int, 3)
	for _, g := range s.guests {
		counts[g.Status]++
	}
	return counts
}
