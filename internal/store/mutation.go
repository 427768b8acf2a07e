package store

import (
	"slices"

	"wedding-invites/internal/models"
)

// Mutation is the payload of a fulfilled operation, keyed by operation type.
type Mutation interface {
	apply(State) State
}

// Inserted appends a newly created guest.
type Inserted struct{ Guest models.Guest }

// Replaced swaps the guest with the same id.
type Replaced struct{ Guest models.Guest }

// Removed drops the guest with the given id.
type Removed struct{ ID string }

// Reloaded replaces the guest collection wholesale.
type Reloaded struct{ Guests []models.Guest }

// InvitesReloaded replaces the invite collection wholesale.
type InvitesReloaded struct{ Invites []models.Invite }

// InviteAdded appends a newly created invite.
type InviteAdded struct{ Invite models.Invite }

// Apply returns the state that results from applying m to s.
// A nil mutation leaves the state as it is.
func Apply(s State, m Mutation) State {
	if m == nil {
		return s
	}
	return m.apply(s)
}

func (m Inserted) apply(s State) State {
	guests := make([]models.Guest, 0, len(s.guests)+1)
	guests = append(guests, s.guests...)
	s.guests = append(guests, m.Guest)
	return s
}

func (m Replaced) apply(s State) State {
	i := slices.IndexFunc(s.guests, func(g models.Guest) bool { return g.ID == m.Guest.ID })
	if i < 0 {
		return s
	}
	guests := slices.Clone(s.guests)
	guests[i] = m.Guest
	s.guests = guests
	return s
}

func (m Removed) apply(s State) State {
	s.guests = slices.DeleteFunc(slices.Clone(s.guests), func(g models.Guest) bool { return g.ID == m.ID })
	return s
}

func (m Reloaded) apply(s State) State {
	s.guests = slices.Clone(m.Guests)
	return s
}

func (m InvitesReloaded) apply(s State) State {
	s.invites = slices.Clone(m.Invites)
	return s
}

func (m InviteAdded) apply(s State) State {
	invites := make([]models.Invite, 0, len(s.invites)+1)
	invites = append(invites, s.invites...)
	s.invites = append(invites, m.Invite)
	return s
}

// Batch applies several mutations in order.
type Batch []Mutation

func (b Batch) apply(s State) State {
	for _, m := range b {
		s = Apply(s, m)
	}
	return s
}
