package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"wedding-invites/internal/apperr"
	"wedding-invites/internal/models"
)

// CreateEvent stores a new event, generating its id when empty
func (s *Storage) CreateEvent(ctx context.Context, e models.Event) (models.Event, error) {
	if e.Name == "" {
		return models.Event{}, apperr.Validation("name", "event name is required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = s.now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, name, date, location, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Date, e.Location, e.CreatedAt)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to insert event: %w", err)
	}
	return e, nil
}

// GetEvent retrieves an event by id
func (s *Storage) GetEvent(ctx context.Context, id string) (models.Event, error) {
	var e models.Event
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, date, location, created_at FROM events WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Date, &e.Location, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, apperr.NotFound("event", id)
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to load event: %w", err)
	}
	return e, nil
}

// ListEvents returns every event, oldest first
func (s *Storage) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, date, location, created_at FROM events ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &e.Location, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CreateInvite stores a new invite for an existing event
func (s *Storage) CreateInvite(ctx context.Context, inv models.Invite) (models.Invite, error) {
	if inv.Title == "" {
		return models.Invite{}, apperr.Validation("title", "invite title is required")
	}
	if _, err := s.GetEvent(ctx, inv.EventID); err != nil {
		return models.Invite{}, err
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	inv.CreatedAt = s.now()

	style, err := json.Marshal(inv.Style)
	if err != nil {
		return models.Invite{}, fmt.Errorf("failed to marshal style: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO invites (id, event_id, title, style, created_at) VALUES (?, ?, ?, ?, ?)`,
		inv.ID, inv.EventID, inv.Title, string(style), inv.CreatedAt)
	if err != nil {
		return models.Invite{}, fmt.Errorf("failed to insert invite: %w", err)
	}
	return inv, nil
}

// ListInvites returns the invites of one event
func (s *Storage) ListInvites(ctx context.Context, eventID string) ([]models.Invite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, title, style, created_at FROM invites WHERE event_id = ? ORDER BY created_at, rowid`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []models.Invite
	for rows.Next() {
		var (
			inv   models.Invite
			style string
		)
		if err := rows.Scan(&inv.ID, &inv.EventID, &inv.Title, &style, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		if err := json.Unmarshal([]byte(style), &inv.Style); err != nil {
			return nil, fmt.Errorf("failed to unmarshal style of invite %s: %w", inv.ID, err)
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}
