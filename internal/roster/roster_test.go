package roster

import (
	"bytes"
	"strings"
	"testing"

	"wedding-invites/internal/apperr"
	"wedding-invites/internal/models"
)

func TestRoundTrip(t *testing.T) {
	in := []models.Guest{
		{ID: "g1", Name: "Dana Levi", Email: "dana@example.com", Phone: "972501111111", WhatsApp: true, Group: "family", Status: models.RSVPConfirmed, InviteID: "inv1"},
		{ID: "g2", Name: "Noam, Jr.", Phone: "972502222222", Group: "friends", Status: models.RSVPDeclined},
		{ID: "g3", Name: "Tal", Status: models.RSVPPending},
	}

	var buf bytes.Buffer
	if err := Export(&buf, in); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "id,name,email,phone,whatsapp,group,status,inviteId\n") {
		t.Fatalf("header = %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}
	if !strings.Contains(buf.String(), ",true,") || !strings.Contains(buf.String(), ",false,") {
		t.Fatalf("whatsapp flag should be serialized as true/false:\n%s", buf.String())
	}

	out, err := Import(&buf, IdentityMapping())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("imported %d guests, want %d", len(out), len(in))
	}
	for i := range in {
		a, b := in[i], out[i]
		if a.Name != b.Name || a.Email != b.Email || a.Phone != b.Phone ||
			a.WhatsApp != b.WhatsApp || a.Group != b.Group || a.Status != b.Status {
			t.Errorf("guest %d: got %+v, want %+v", i, b, a)
		}
	}
}

func TestImportWithMapping(t *testing.T) {
	src := "Full Name,Mobile,Side,Chat\nDana,0501111111,bride,TRUE\n,,,\nNoam,,groom,\n"
	out, err := Import(strings.NewReader(src), Mapping{
		FieldName:     "Full Name",
		FieldPhone:    "Mobile",
		FieldGroup:    "Side",
		FieldWhatsApp: "Chat",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("guests = %+v", out)
	}
	if out[0].Phone != "0501111111" || !out[0].WhatsApp || out[0].Status != models.RSVPPending {
		t.Fatalf("dana = %+v", out[0])
	}
	if out[1].WhatsApp || out[1].Group != "groom" {
		t.Fatalf("noam = %+v", out[1])
	}
}

func TestImportErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		m    Mapping
	}{
		{"missing column", "name\nDana\n", Mapping{FieldName: "name", FieldPhone: "phone"}},
		{"no name mapping", "phone\n1\n", Mapping{FieldPhone: "phone"}},
		{"empty name", "name,phone\n,1\n", Mapping{FieldName: "name", FieldPhone: "phone"}},
		{"bad flag", "name,whatsapp\nDana,yes\n", Mapping{FieldName: "name", FieldWhatsApp: "whatsapp"}},
		{"bad status", "name,status\nDana,maybe\n", Mapping{FieldName: "name", FieldStatus: "status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Import(strings.NewReader(tt.src), tt.m); !apperr.IsValidation(err) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestImportEmpty(t *testing.T) {
	out, err := Import(strings.NewReader(""), IdentityMapping())
	if err != nil || out != nil {
		t.Fatalf("got %v, %v", out, err)
	}
}
