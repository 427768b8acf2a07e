// Package linker binds a set of guests to one invite.
package linker

import (
	"context"
	"fmt"

	"wedding-invites/internal/apperr"
	"wedding-invites/internal/models"
	"wedding-invites/internal/reconcile"
	"wedding-invites/internal/store"
)

// Backend is the record collaborator used by the linker.
type Backend interface {
	LinkInvite(ctx context.Context, inviteID string, guestIDs []string) error
	ListGuests(ctx context.Context, eventID string) ([]models.Guest, error)
}

type Linker struct {
	rec     *reconcile.Reconciler
	backend Backend
}

func New(rec *reconcile.Reconciler, backend Backend) *Linker {
	return &Linker{rec: rec, backend: backend}
}

// Link points every guest at inviteID. All checks run against the local
// snapshot first; when one fails the backend is never contacted. After the
// mutation the full guest list is fetched again instead of patched locally.
func (l *Linker) Link(ctx context.Context, inviteID string, guestIDs []string) error {
	snap := l.rec.Snapshot()
	if err := validate(snap, inviteID, guestIDs); err != nil {
		return err
	}

	return l.rec.Do(ctx, reconcile.OpLink, func(ctx context.Context) (store.Mutation, error) {
		if err := l.backend.LinkInvite(ctx, inviteID, guestIDs); err != nil {
			return nil, apperr.Transport("link invite", err)
		}
		guests, err := l.backend.ListGuests(ctx, snap.EventID)
		if err != nil {
			return nil, apperr.Transport("reload guests", err)
		}
		return store.Reloaded{Guests: guests}, nil
	})
}

func validate(snap store.State, inviteID string, guestIDs []string) error {
	if len(guestIDs) == 0 {
		return apperr.Validation("", "select at least one guest")
	}
	if inviteID == "" {
		return apperr.Validation("invite", "choose an invite")
	}
	invite, ok := snap.Invite(inviteID)
	if !ok {
		return apperr.Validation("invite", fmt.Sprintf("invite %q does not exist", inviteID))
	}
	for _, id := range guestIDs {
		g, ok := snap.Guest(id)
		if !ok {
			return apperr.NotFound("guest", id)
		}
		if g.EventID != invite.EventID {
			return apperr.Validation("invite", fmt.Sprintf("invite %q belongs to another event than guest %s", inviteID, g.Name))
		}
	}
	return nil
}
