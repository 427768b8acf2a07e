package handler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"wedding-invites/internal/apperr"
	"wedding-invites/internal/models"
)

type fakeGuests map[string]models.Guest

func (f fakeGuests) Guest(id string) (models.Guest, bool) {
	g, ok := f[id]
	return g, ok
}

func (f fakeGuests) GuestByPhone(phone string) (models.Guest, bool) {
	for _, g := range f {
		if g.Phone == phone {
			return g, true
		}
	}
	return models.Guest{}, false
}

func (f fakeGuests) Reload(context.Context) error { return nil }

// lateGuests only sees the guests in added after a reload.
type lateGuests struct {
	fakeGuests
	added   map[string]models.Guest
	reloads int
}

func (l *lateGuests) Reload(context.Context) error {
	l.reloads++
	for id, g := range l.added {
		l.fakeGuests[id] = g
	}
	return nil
}

type fakeStatuses struct {
	guests fakeGuests
	calls  []models.RSVPStatus
	err    error
}

func (f *fakeStatuses) SetStatus(_ context.Context, id string, s models.RSVPStatus) (models.Guest, error) {
	f.calls = append(f.calls, s)
	if f.err != nil {
		return models.Guest{}, f.err
	}
	if !s.Valid() {
		return models.Guest{}, apperr.Validation("status", "unknown status")
	}
	g, ok := f.guests[id]
	if !ok {
		return models.Guest{}, apperr.NotFound("guest", id)
	}
	g.Status = s
	f.guests[id] = g
	return g, nil
}

type fakeReplier struct {
	to, text string
}

func (f *fakeReplier) SendText(_ context.Context, phone, text string) (string, error) {
	f.to, f.text = phone, text
	return "wa-1", nil
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		text string
		want models.RSVPStatus
		ok   bool
	}{
		{"Yes!", models.RSVPConfirmed, true},
		{"yeah we'll be there", models.RSVPConfirmed, true},
		{"✅", models.RSVPConfirmed, true},
		{"We will be there", models.RSVPConfirmed, true},
		{"No, sorry", models.RSVPDeclined, true},
		{"not coming unfortunately", models.RSVPDeclined, true},
		{"I can’t make it", models.RSVPDeclined, true},
		{"❌", models.RSVPDeclined, true},
		{"I know the venue", "", false},
		{"what time does it start?", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseReply(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseReply(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func newHandler(st *fakeStatuses, r Replier) *RSVPHandler {
	event := models.Event{Name: "Dana & Noam", Date: "05.01.2026"}
	return NewRSVPHandler(st, st.guests, r, event, "972", zerolog.Nop())
}

func TestHandleReplyConfirms(t *testing.T) {
	guests := fakeGuests{"g1": {ID: "g1", Name: "Tal", Phone: "972501234567", Status: models.RSVPPending}}
	st := &fakeStatuses{guests: guests}
	r := &fakeReplier{}

	if err := newHandler(st, r).HandleReply(context.Background(), "0501234567", "yes"); err != nil {
		t.Fatal(err)
	}
	if guests["g1"].Status != models.RSVPConfirmed {
		t.Fatalf("status = %s", guests["g1"].Status)
	}
	if r.to != "972501234567" || !strings.Contains(r.text, "Dana & Noam") {
		t.Fatalf("reply = %+v", r)
	}
}

func TestHandleReplyIgnoresStrangersAndChatter(t *testing.T) {
	guests := fakeGuests{"g1": {ID: "g1", Phone: "972501234567"}}
	st := &fakeStatuses{guests: guests}
	r := &fakeReplier{}
	h := newHandler(st, r)

	if err := h.HandleReply(context.Background(), "972509999999", "yes"); err != nil {
		t.Fatal(err)
	}
	if err := h.HandleReply(context.Background(), "972501234567", "where is the venue"); err != nil {
		t.Fatal(err)
	}
	if len(st.calls) != 0 || r.to != "" {
		t.Fatalf("calls = %v, reply = %+v", st.calls, r)
	}
}

func TestHandleReplyFailureSkipsConfirmation(t *testing.T) {
	guests := fakeGuests{"g1": {ID: "g1", Phone: "972501234567"}}
	st := &fakeStatuses{guests: guests, err: errors.New("offline")}
	r := &fakeReplier{}

	if err := newHandler(st, r).HandleReply(context.Background(), "972501234567", "no"); err == nil {
		t.Fatal("expected error")
	}
	if r.to != "" {
		t.Fatal("no confirmation after a failed update")
	}
}

func TestHandleReplyReloadsUnknownSender(t *testing.T) {
	guests := &lateGuests{
		fakeGuests: fakeGuests{},
		added:      map[string]models.Guest{"g2": {ID: "g2", Name: "Omer", Phone: "972507654321"}},
	}
	st := &fakeStatuses{guests: guests.fakeGuests}
	r := &fakeReplier{}
	h := NewRSVPHandler(st, guests, r, models.Event{Name: "Dana & Noam"}, "972", zerolog.Nop())

	if err := h.HandleReply(context.Background(), "0507654321", "we will come"); err != nil {
		t.Fatal(err)
	}
	if guests.reloads != 1 {
		t.Fatalf("reloads = %d", guests.reloads)
	}
	if guests.fakeGuests["g2"].Status != models.RSVPConfirmed {
		t.Fatalf("guest = %+v", guests.fakeGuests["g2"])
	}
}
