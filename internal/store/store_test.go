package store

import (
	"slices"
	"testing"

	"wedding-invites/internal/models"
)

func sample() State {
	return New("e1", []models.Guest{
		{ID: "g1", EventID: "e1", Name: "Dana", Phone: "972501111111", Group: "family", Status: models.RSVPPending},
		{ID: "g2", EventID: "e1", Name: "Noam", Email: "noam@example.com", Group: "friends", Status: models.RSVPConfirmed},
		{ID: "g3", EventID: "e1", Name: "Tal", Group: "Family", Status: models.RSVPDeclined},
	}, []models.Invite{{ID: "inv1", EventID: "e1", Title: "Main"}})
}

func TestApplyDoesNotTouchOriginal(t *testing.T) {
	s := sample()
	next := Apply(s, Replaced{Guest: models.Guest{ID: "g1", Name: "Dana", Status: models.RSVPConfirmed}})

	if g, _ := s.Guest("g1"); g.Status != models.RSVPPending {
		t.Fatalf("original state changed: %s", g.Status)
	}
	if g, _ := next.Guest("g1"); g.Status != models.RSVPConfirmed {
		t.Fatalf("new state status = %s", g.Status)
	}
}

func TestMutations(t *testing.T) {
	tests := []struct {
		name string
		m    Mutation
		want []string
	}{
		{"nil", nil, []string{"g1", "g2", "g3"}},
		{"insert", Inserted{Guest: models.Guest{ID: "g4"}}, []string{"g1", "g2", "g3", "g4"}},
		{"replace unknown", Replaced{Guest: models.Guest{ID: "zz"}}, []string{"g1", "g2", "g3"}},
		{"remove", Removed{ID: "g2"}, []string{"g1", "g3"}},
		{"reload", Reloaded{Guests: []models.Guest{{ID: "x"}}}, []string{"x"}},
		{"batch", Batch{Removed{ID: "g1"}, Inserted{Guest: models.Guest{ID: "g9"}}}, []string{"g2", "g3", "g9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(sample(), tt.m).IDs()
			if !slices.Equal(got, tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInviteMutations(t *testing.T) {
	s := Apply(sample(), InviteAdded{Invite: models.Invite{ID: "inv2", EventID: "e1"}})
	if _, ok := s.Invite("inv2"); !ok {
		t.Fatal("inv2 should exist")
	}
	s = Apply(s, InvitesReloaded{})
	if len(s.Invites()) != 0 {
		t.Fatal("reload with no invites should empty the list")
	}
}

func TestFilter(t *testing.T) {
	s := sample()
	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{"all", Filter{}, []string{"g1", "g2", "g3"}},
		{"status", Filter{Status: models.RSVPConfirmed}, []string{"g2"}},
		{"group is case insensitive", Filter{Group: "family"}, []string{"g1", "g3"}},
		{"query name", Filter{Query: "da"}, []string{"g1"}},
		{"query email", Filter{Query: "EXAMPLE"}, []string{"g2"}},
		{"query phone", Filter{Query: "97250"}, []string{"g1"}},
		{"no match", Filter{Status: models.RSVPPending, Group: "friends"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.VisibleIDs(tt.f); !slices.Equal(got, tt.want) {
				t.Fatalf("visible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountsAndLookups(t *testing.T) {
	s := sample()
	c := s.Counts()
	if c[models.RSVPPending] != 1 || c[models.RSVPConfirmed] != 1 || c[models.RSVPDeclined] != 1 {
		t.Fatalf("counts = %v", c)
	}
	if g, ok := s.GuestByPhone("972501111111"); !ok || g.ID != "g1" {
		t.Fatalf("GuestByPhone = %v %v", g, ok)
	}
	if _, ok := s.GuestByPhone(""); ok {
		t.Fatal("empty phone never matches")
	}
}
