package linker

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"wedding-invites/internal/apperr"
	"wedding-invites/internal/models"
	"wedding-invites/internal/reconcile"
	"wedding-invites/internal/store"
)

type fakeBackend struct {
	linkCalls int
	listCalls int
	linkErr   error
	guests    []models.Guest
}

func (f *fakeBackend) LinkInvite(_ context.Context, inviteID string, ids []string) error {
	f.linkCalls++
	if f.linkErr != nil {
		return f.linkErr
	}
	for i := range f.guests {
		for _, id := range ids {
			if f.guests[i].ID == id {
				f.guests[i].InviteID = inviteID
			}
		}
	}
	return nil
}

func (f *fakeBackend) ListGuests(context.Context, string) ([]models.Guest, error) {
	f.listCalls++
	return append([]models.Guest(nil), f.guests...), nil
}

func setup() (*Linker, *reconcile.Reconciler, *fakeBackend) {
	gs := []models.Guest{
		{ID: "g1", EventID: "e1", Name: "Dana"},
		{ID: "g2", EventID: "e1", Name: "Noam"},
		{ID: "g3", EventID: "e2", Name: "Tal"},
	}
	invites := []models.Invite{{ID: "inv1", EventID: "e1"}}
	rec := reconcile.New(store.New("e1", gs, invites), zerolog.Nop())
	b := &fakeBackend{guests: append([]models.Guest(nil), gs...)}
	return New(rec, b), rec, b
}

func TestLinkGuards(t *testing.T) {
	tests := []struct {
		name     string
		invite   string
		ids      []string
		notFound bool
		message  string
	}{
		{name: "empty selection", invite: "inv1", ids: nil, message: "select at least one guest"},
		{name: "no invite", invite: "", ids: []string{"g1"}, message: "invite: choose an invite"},
		{name: "unknown invite", invite: "nope", ids: []string{"g1"}, message: `invite: invite "nope" does not exist`},
		{name: "unknown guest", invite: "inv1", ids: []string{"g1", "ghost"}, notFound: true},
		{name: "other event", invite: "inv1", ids: []string{"g3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, b := setup()
			err := l.Link(context.Background(), tt.invite, tt.ids)
			if tt.notFound {
				if !apperr.IsNotFound(err) {
					t.Fatalf("err = %v, want not found", err)
				}
			} else if !apperr.IsValidation(err) {
				t.Fatalf("err = %v, want validation", err)
			}
			if tt.message != "" && err.Error() != tt.message {
				t.Fatalf("message = %q, want %q", err.Error(), tt.message)
			}
			if b.linkCalls+b.listCalls != 0 {
				t.Fatalf("backend contacted %d times", b.linkCalls+b.listCalls)
			}
		})
	}
}

func TestLinkRefetches(t *testing.T) {
	l, rec, b := setup()
	if err := l.Link(context.Background(), "inv1", []string{"g1", "g2"}); err != nil {
		t.Fatal(err)
	}
	if b.linkCalls != 1 || b.listCalls != 1 {
		t.Fatalf("link=%d list=%d", b.linkCalls, b.listCalls)
	}
	for _, id := range []string{"g1", "g2"} {
		if g, _ := rec.Guest(id); g.InviteID != "inv1" {
			t.Fatalf("%s invite = %q", id, g.InviteID)
		}
	}
}

func TestLinkFailureKeepsStore(t *testing.T) {
	l, rec, b := setup()
	b.linkErr = errors.New("timeout")

	err := l.Link(context.Background(), "inv1", []string{"g1"})
	if !apperr.IsTransport(err) {
		t.Fatalf("err = %v", err)
	}
	if g, _ := rec.Guest("g1"); g.InviteID != "" {
		t.Fatal("guest should stay unlinked")
	}
	if b.listCalls != 0 {
		t.Fatal("no refetch after a failed link")
	}
}
