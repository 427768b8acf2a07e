// Package session is the guest manager for one active event: it owns the
// reconciled guest store, the current selection and the group actions on it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"wedding-invites/internal/apperr"
	"wedding-invites/internal/dispatch"
	"wedding-invites/internal/gateway"
	"wedding-invites/internal/lifecycle"
	"wedding-invites/internal/linker"
	"wedding-invites/internal/models"
	"wedding-invites/internal/reconcile"
	"wedding-invites/internal/selection"
	"wedding-invites/internal/store"
	"wedding-invites/internal/whatsapp"
)

// Backend is the record collaborator.
type Backend interface {
	linker.Backend
	lifecycle.GuestUpdater
	CreateGuest(ctx context.Context, guest models.Guest) (models.Guest, error)
	DeleteGuest(ctx context.Context, id string) error
	ListInvites(ctx context.Context, eventID string) ([]models.Invite, error)
	CreateInvite(ctx context.Context, invite models.Invite) (models.Invite, error)
}

type Config struct {
	Origin      string
	SendLimit   int
	CountryCode string
}

type Session struct {
	backend     Backend
	rec         *reconcile.Reconciler
	selected    *selection.Set
	lifecycle   *lifecycle.Lifecycle
	linker      *linker.Linker
	dispatcher  *dispatch.Dispatcher
	countryCode string
	closed      atomic.Bool
	log         zerolog.Logger

	mu     sync.RWMutex
	filter store.Filter
}

// New creates a session with an empty store. Call Open to load an event.
func New(backend Backend, sender gateway.Sender, cfg Config, log zerolog.Logger) *Session {
	rec := reconcile.New(store.New("", nil, nil), log)
	return &Session{
		backend:     backend,
		rec:         rec,
		selected:    selection.New(),
		lifecycle:   lifecycle.New(rec, backend),
		linker:      linker.New(rec, backend),
		dispatcher:  dispatch.New(rec, sender, dispatch.Config{Origin: cfg.Origin, Limit: cfg.SendLimit}, log),
		countryCode: cfg.CountryCode,
		log:         log.With().Str("component", "session").Logger(),
	}
}

// Open makes eventID the active event, loading its guests and invites. The
// selection and filter start empty. Work still in flight for the previous
// event completes, but its results are dropped.
func (s *Session) Open(ctx context.Context, eventID string) error {
	s.rec.Reset(store.New(eventID, nil, nil))
	s.selected.Clear()
	s.SetFilter(store.Filter{})
	return s.Reload(ctx)
}

// Reload fetches the active event's guests and invites again.
func (s *Session) Reload(ctx context.Context) error {
	snap, gen := s.rec.Current()
	eventID := snap.EventID
	return s.rec.DoAt(ctx, gen, reconcile.OpFetch, func(ctx context.Context) (store.Mutation, error) {
		guests, err := s.backend.ListGuests(ctx, eventID)
		if err != nil {
			return nil, apperr.Transport("list guests", err)
		}
		invites, err := s.backend.ListInvites(ctx, eventID)
		if err != nil {
			return nil, apperr.Transport("list invites", err)
		}
		return store.Batch{store.Reloaded{Guests: guests}, store.InvitesReloaded{Invites: invites}}, nil
	})
}

// Close detaches the session from its listeners. Work already in flight
// still completes, but its result is no longer reported.
func (s *Session) Close() {
	s.closed.Store(true)
}

// OnChange registers fn for every phase change while the session is open.
func (s *Session) OnChange(fn reconcile.Listener) {
	s.rec.Subscribe(func(p reconcile.Phase, st store.State) {
		if !s.closed.Load() {
			fn(p, st)
		}
	})
}

func (s *Session) Snapshot() store.State { return s.rec.Snapshot() }

func (s *Session) Phase() reconcile.Phase { return s.rec.Phase() }

// Dismiss clears a reported failure
func (s *Session) Dismiss() { s.rec.Dismiss() }

func (s *Session) Guest(id string) (models.Guest, bool) {
	return s.rec.Snapshot().Guest(id)
}

// GuestByPhone finds a guest of the active event by phone number in any format
func (s *Session) GuestByPhone(phone string) (models.Guest, bool) {
	return s.rec.Snapshot().GuestByPhone(whatsapp.NormalizePhoneNumber(phone, s.countryCode))
}

func (s *Session) SetFilter(f store.Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

func (s *Session) Filter() store.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Visible returns the guests matching the active filter
func (s *Session) Visible() []models.Guest {
	return s.rec.Snapshot().Visible(s.Filter())
}

func (s *Session) Toggle(id string) bool { return s.selected.Toggle(id) }

// SelectAll selects exactly the guests visible under the active filter.
func (s *Session) SelectAll() {
	s.selected.SelectAll(s.rec.Snapshot().VisibleIDs(s.Filter()))
}

func (s *Session) ClearSelection() { s.selected.Clear() }

func (s *Session) IsSelected(id string) bool { return s.selected.Contains(id) }

// Selected returns the selected ids in list order
func (s *Session) Selected() []string {
	return s.selected.IDs(s.rec.Snapshot().IDs())
}

// CreateGuest adds a guest to the active event
func (s *Session) CreateGuest(ctx context.Context, guest models.Guest) (models.Guest, error) {
	guest.Name = strings.TrimSpace(guest.Name)
	if guest.Name == "" {
		return models.Guest{}, apperr.Validation("name", "guest name is required")
	}
	snap, gen := s.rec.Current()
	if err := checkInvite(snap, guest.InviteID); err != nil {
		return models.Guest{}, err
	}
	guest.EventID = snap.EventID
	guest.Phone = whatsapp.NormalizePhoneNumber(guest.Phone, s.countryCode)

	var created models.Guest
	err := s.rec.DoAt(ctx, gen, reconcile.OpCreate, func(ctx context.Context) (store.Mutation, error) {
		g, err := s.backend.CreateGuest(ctx, guest)
		if err != nil {
			return nil, apperr.Transport("create guest", err)
		}
		created = g
		return store.Inserted{Guest: g}, nil
	})
	return created, err
}

// ImportGuests creates every guest, ignoring the ids they carry. Invite links
// to invites outside the active event are dropped. It returns how many were
// created along with the joined errors of the rest.
func (s *Session) ImportGuests(ctx context.Context, guests []models.Guest) (int, error) {
	snap := s.rec.Snapshot()
	var (
		created int
		errs    []error
	)
	for _, g := range guests {
		g.ID = ""
		if _, ok := snap.Invite(g.InviteID); !ok {
			g.InviteID = ""
		}
		if _, err := s.CreateGuest(ctx, g); err != nil {
			errs = append(errs, fmt.Errorf("guest %q: %w", g.Name, err))
			continue
		}
		created++
	}
	return created, errors.Join(errs...)
}

// UpdateGuest replaces a guest's editable fields
func (s *Session) UpdateGuest(ctx context.Context, guest models.Guest) (models.Guest, error) {
	snap, gen := s.rec.Current()
	current, ok := snap.Guest(guest.ID)
	if !ok {
		return models.Guest{}, apperr.NotFound("guest", guest.ID)
	}
	if err := checkInvite(snap, guest.InviteID); err != nil {
		return models.Guest{}, err
	}
	guest.EventID = current.EventID
	guest.CreatedAt = current.CreatedAt
	guest.Phone = whatsapp.NormalizePhoneNumber(guest.Phone, s.countryCode)

	var updated models.Guest
	err := s.rec.DoAt(ctx, gen, reconcile.OpUpdate, func(ctx context.Context) (store.Mutation, error) {
		g, err := s.backend.UpdateGuest(ctx, guest)
		if err != nil {
			return nil, apperr.Transport("update guest", err)
		}
		updated = g
		return store.Replaced{Guest: g}, nil
	})
	return updated, err
}

// DeleteGuest removes a guest outright
func (s *Session) DeleteGuest(ctx context.Context, id string) error {
	snap, gen := s.rec.Current()
	if _, ok := snap.Guest(id); !ok {
		return apperr.NotFound("guest", id)
	}
	err := s.rec.DoAt(ctx, gen, reconcile.OpDelete, func(ctx context.Context) (store.Mutation, error) {
		if err := s.backend.DeleteGuest(ctx, id); err != nil {
			return nil, apperr.Transport("delete guest", err)
		}
		return store.Removed{ID: id}, nil
	})
	if err == nil {
		s.selected.Deselect(id)
	}
	return err
}

// CreateInvite adds an invite to the active event
func (s *Session) CreateInvite(ctx context.Context, invite models.Invite) (models.Invite, error) {
	if strings.TrimSpace(invite.Title) == "" {
		return models.Invite{}, apperr.Validation("title", "invite title is required")
	}
	snap, gen := s.rec.Current()
	invite.EventID = snap.EventID

	var created models.Invite
	err := s.rec.DoAt(ctx, gen, reconcile.OpCreate, func(ctx context.Context) (store.Mutation, error) {
		inv, err := s.backend.CreateInvite(ctx, invite)
		if err != nil {
			return nil, apperr.Transport("create invite", err)
		}
		created = inv
		return store.InviteAdded{Invite: inv}, nil
	})
	return created, err
}

// SetStatus changes one guest's RSVP status
func (s *Session) SetStatus(ctx context.Context, guestID string, status models.RSVPStatus) (models.Guest, error) {
	return s.lifecycle.SetStatus(ctx, guestID, status)
}

// ConfirmSelected confirms every selected guest, deselecting them when all
// of them succeed.
func (s *Session) ConfirmSelected(ctx context.Context) error {
	ids := s.Selected()
	if err := s.lifecycle.ConfirmAll(ctx, ids); err != nil {
		return err
	}
	s.selected.Deselect(ids...)
	return nil
}

// LinkSelected links the selected guests to inviteID.
func (s *Session) LinkSelected(ctx context.Context, inviteID string) error {
	ids := s.Selected()
	if err := s.linker.Link(ctx, inviteID, ids); err != nil {
		return err
	}
	s.selected.Deselect(ids...)
	return nil
}

// ErrNothingSent is returned with the aggregate when every send failed.
var ErrNothingSent = errors.New("no messages sent")

// SendBulk messages every selected guest. A partial failure is not an error:
// the aggregate carries the per-guest breakdown and the selection is kept so
// the caller can retry. Retrying resends to every selected guest, including
// those that already received the message.
func (s *Session) SendBulk(ctx context.Context, template string, opts dispatch.Options) (dispatch.Aggregate, error) {
	ids := s.Selected()
	if len(ids) == 0 {
		return dispatch.Aggregate{}, apperr.Validation("", "select at least one guest")
	}
	if strings.TrimSpace(template) == "" {
		return dispatch.Aggregate{}, apperr.Validation("message", "message is required")
	}

	var agg dispatch.Aggregate
	err := s.rec.Do(ctx, reconcile.OpSend, func(ctx context.Context) (store.Mutation, error) {
		agg = s.dispatcher.Dispatch(ctx, ids, template, opts)
		if agg.Outcome() == dispatch.OutcomeFailure {
			return nil, apperr.Transport("send", ErrNothingSent)
		}
		return nil, nil
	})

	if s.closed.Load() {
		return agg, err
	}
	// Guests selected while the send ran stay selected.
	if agg.Outcome() == dispatch.OutcomeSuccess {
		s.selected.Deselect(ids...)
	}
	return agg, err
}

func checkInvite(snap store.State, inviteID string) error {
	if inviteID == "" {
		return nil
	}
	inv, ok := snap.Invite(inviteID)
	if !ok || inv.EventID != snap.EventID {
		return apperr.Validation("invite", fmt.Sprintf("invite %q does not belong to this event", inviteID))
	}
	return nil
}
