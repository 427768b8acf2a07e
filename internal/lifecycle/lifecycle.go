// Package lifecycle moves guests between pending, confirmed and declined.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wedding-invites/internal/apperr"
	"wedding-invites/internal/models"
	"wedding-invites/internal/reconcile"
	"wedding-invites/internal/store"
)

// GuestUpdater persists a full guest record and returns what was stored.
type GuestUpdater interface {
	UpdateGuest(ctx context.Context, guest models.Guest) (models.Guest, error)
}

type Lifecycle struct {
	rec     *reconcile.Reconciler
	updater GuestUpdater
	now     func() time.Time
}

func New(rec *reconcile.Reconciler, updater GuestUpdater) *Lifecycle {
	return &Lifecycle{rec: rec, updater: updater, now: time.Now}
}

// SetStatus overwrites the guest's status. Any status may follow any other and
// setting the current status again succeeds. The local store only changes once
// the collaborator accepts the update.
func (l *Lifecycle) SetStatus(ctx context.Context, guestID string, status models.RSVPStatus) (models.Guest, error) {
	if !status.Valid() {
		return models.Guest{}, apperr.Validation("status", fmt.Sprintf("unknown status %q", status))
	}
	guest, ok := l.rec.Guest(guestID)
	if !ok {
		return models.Guest{}, apperr.NotFound("guest", guestID)
	}

	guest.Status = status
	guest.RSVPDate = l.now()

	var saved models.Guest
	err := l.rec.Do(ctx, reconcile.OpUpdate, func(ctx context.Context) (store.Mutation, error) {
		g, err := l.updater.UpdateGuest(ctx, guest)
		if err != nil {
			return nil, apperr.Transport("update guest status", err)
		}
		saved = g
		return store.Replaced{Guest: g}, nil
	})
	if err != nil {
		return models.Guest{}, err
	}
	return saved, nil
}

// SetStatusAll applies status to each id independently and joins the errors.
func (l *Lifecycle) SetStatusAll(ctx context.Context, guestIDs []string, status models.RSVPStatus) error {
	if len(guestIDs) == 0 {
		return apperr.Validation("", "select at least one guest")
	}
	var errs []error
	for _, id := range guestIDs {
		if _, err := l.SetStatus(ctx, id, status); err != nil {
			errs = append(errs, fmt.Errorf("guest %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// ConfirmAll marks every id as confirmed.
func (l *Lifecycle) ConfirmAll(ctx context.Context, guestIDs []string) error {
	return l.SetStatusAll(ctx, guestIDs, models.RSVPConfirmed)
}
