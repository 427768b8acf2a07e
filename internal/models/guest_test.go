package models

import "testing"

func TestRSVPStatusValid(t *testing.T) {
	for _, s := range Statuses() {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []RSVPStatus{"", "accepted", "Confirmed", "maybe"} {
		if s.Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}

func TestGuestHasContact(t *testing.T) {
	if (Guest{}).HasContact() {
		t.Fatal("guest without phone has no contact")
	}
	if !(Guest{Phone: "972501234567"}).HasContact() {
		t.Fatal("guest with phone has contact")
	}
}
