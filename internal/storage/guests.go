package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"wedding-invites/internal/apperr"
	"wedding-invites/internal/models"
)

const guestColumns = `id, event_id, name, email, phone, whatsapp, grp, status, invite_id, rsvp_date, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanGuest(row scanner) (models.Guest, error) {
	var (
		g        models.Guest
		inviteID sql.NullString
		rsvpDate sql.NullTime
	)
	err := row.Scan(&g.ID, &g.EventID, &g.Name, &g.Email, &g.Phone, &g.WhatsApp,
		&g.Group, &g.Status, &inviteID, &rsvpDate, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return models.Guest{}, err
	}
	g.InviteID = inviteID.String
	if rsvpDate.Valid {
		g.RSVPDate = rsvpDate.Time
	}
	return g, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// checkInvite makes sure inviteID, when set, names an invite of eventID.
func checkInvite(ctx context.Context, q queryer, eventID, inviteID string) error {
	if inviteID == "" {
		return nil
	}
	var owner string
	err := q.QueryRowContext(ctx, `SELECT event_id FROM invites WHERE id = ?`, inviteID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Validation("invite", fmt.Sprintf("invite %q does not exist", inviteID))
	}
	if err != nil {
		return fmt.Errorf("failed to load invite: %w", err)
	}
	if owner != eventID {
		return apperr.Validation("invite", fmt.Sprintf("invite %q belongs to another event", inviteID))
	}
	return nil
}

func validateGuest(g models.Guest) error {
	if strings.TrimSpace(g.Name) == "" {
		return apperr.Validation("name", "guest name is required")
	}
	if !g.Status.Valid() {
		return apperr.Validation("status", fmt.Sprintf("unknown status %q", g.Status))
	}
	return nil
}

// CreateGuest adds a new guest to an event
func (s *Storage) CreateGuest(ctx context.Context, guest models.Guest) (models.Guest, error) {
	if guest.Status == "" {
		guest.Status = models.RSVPPending
	}
	if err := validateGuest(guest); err != nil {
		return models.Guest{}, err
	}
	if _, err := s.GetEvent(ctx, guest.EventID); err != nil {
		return models.Guest{}, err
	}
	if err := checkInvite(ctx, s.db, guest.EventID, guest.InviteID); err != nil {
		return models.Guest{}, err
	}
	if guest.ID == "" {
		guest.ID = uuid.NewString()
	}
	now := s.now()
	guest.CreatedAt = now
	guest.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `INSERT INTO guests (`+guestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		guest.ID, guest.EventID, guest.Name, guest.Email, guest.Phone, guest.WhatsApp, guest.Group,
		guest.Status, nullable(guest.InviteID), nullTime(guest), guest.CreatedAt, guest.UpdatedAt)
	if err != nil {
		return models.Guest{}, fmt.Errorf("failed to insert guest: %w", err)
	}
	return guest, nil
}

func nullTime(g models.Guest) sql.NullTime {
	return sql.NullTime{Time: g.RSVPDate, Valid: !g.RSVPDate.IsZero()}
}

// GetGuest retrieves a guest by id
func (s *Storage) GetGuest(ctx context.Context, id string) (models.Guest, error) {
	g, err := scanGuest(s.db.QueryRowContext(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Guest{}, apperr.NotFound("guest", id)
	}
	if err != nil {
		return models.Guest{}, fmt.Errorf("failed to load guest: %w", err)
	}
	return g, nil
}

// UpdateGuest overwrites the mutable fields of a guest and returns the stored
// record. The guest keeps its event; an invite must belong to that event.
func (s *Storage) UpdateGuest(ctx context.Context, guest models.Guest) (models.Guest, error) {
	if err := validateGuest(guest); err != nil {
		return models.Guest{}, err
	}
	guest.UpdatedAt = s.now()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var eventID string
		err := tx.QueryRowContext(ctx, `SELECT event_id FROM guests WHERE id = ?`, guest.ID).Scan(&eventID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("guest", guest.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to load guest: %w", err)
		}
		if err := checkInvite(ctx, tx, eventID, guest.InviteID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE guests SET name = ?, email = ?, phone = ?, whatsapp = ?, grp = ?, status = ?, invite_id = ?, rsvp_date = ?, updated_at = ?
			 WHERE id = ?`,
			guest.Name, guest.Email, guest.Phone, guest.WhatsApp, guest.Group, guest.Status,
			nullable(guest.InviteID), nullTime(guest), guest.UpdatedAt, guest.ID)
		if err != nil {
			return fmt.Errorf("failed to update guest: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Guest{}, err
	}
	return s.GetGuest(ctx, guest.ID)
}

// DeleteGuest removes a guest outright
func (s *Storage) DeleteGuest(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM guests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("guest", id)
	}
	return nil
}

// ListGuests returns all guests of an event in creation order
func (s *Storage) ListGuests(ctx context.Context, eventID string) ([]models.Guest, error) {
	return s.queryGuests(ctx, `SELECT `+guestColumns+` FROM guests WHERE event_id = ? ORDER BY created_at, rowid`, eventID)
}

func (s *Storage) queryGuests(ctx context.Context, query string, args ...any) ([]models.Guest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	defer rows.Close()

	var guests []models.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

// LinkInvite points every guest at inviteID in one transaction. Guests must
// belong to the invite's event.
func (s *Storage) LinkInvite(ctx context.Context, inviteID string, guestIDs []string) error {
	if len(guestIDs) == 0 {
		return apperr.Validation("", "select at least one guest")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var eventID string
		err := tx.QueryRowContext(ctx, `SELECT event_id FROM invites WHERE id = ?`, inviteID).Scan(&eventID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("invite", inviteID)
		}
		if err != nil {
			return fmt.Errorf("failed to load invite: %w", err)
		}

		now := s.now()
		for _, id := range guestIDs {
			res, err := tx.ExecContext(ctx,
				`UPDATE guests SET invite_id = ?, updated_at = ? WHERE id = ? AND event_id = ?`,
				inviteID, now, id, eventID)
			if err != nil {
				return fmt.Errorf("failed to link guest %s: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return apperr.NotFound("guest", id)
			}
		}
		return nil
	})
}
