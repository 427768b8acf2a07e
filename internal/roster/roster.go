// Package roster reads and writes the tabular guest import/export format.
//
// Columns are id, name, email, phone, whatsapp, group, status and inviteId.
// The whatsapp flag is written as the literal strings "true" and "false".
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"wedding-invites/internal/apperr"
	"wedding-invites/internal/models"
)

// Field is a guest attribute of the tabular format.
type Field string

const (
	FieldID       Field = "id"
	FieldName     Field = "name"
	FieldEmail    Field = "email"
	FieldPhone    Field = "phone"
	FieldWhatsApp Field = "whatsapp"
	FieldGroup    Field = "group"
	FieldStatus   Field = "status"
	FieldInviteID Field = "inviteId"
)

// Fields lists the columns in export order
var Fields = []Field{FieldID, FieldName, FieldEmail, FieldPhone, FieldWhatsApp, FieldGroup, FieldStatus, FieldInviteID}

// Mapping maps each guest field to the header of the source column holding it.
// Fields absent from the mapping are left empty.
type Mapping map[Field]string

// IdentityMapping maps every field to the column of the same name.
func IdentityMapping() Mapping {
	m := make(Mapping, len(Fields))
	for _, f := range Fields {
		m[f] = string(f)
	}
	return m
}

// Export writes a header row and one row per guest.
func Export(w io.Writer, guests []models.Guest) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(Fields))
	for i, f := range Fields {
		header[i] = string(f)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, g := range guests {
		row := []string{g.ID, g.Name, g.Email, g.Phone, formatBool(g.WhatsApp), g.Group, string(g.Status), g.InviteID}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write guest %s: %w", g.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import reads guests using mapping to locate each field. Rows without a name
// are rejected; an empty status becomes pending.
func Import(r io.Reader, mapping Mapping) ([]models.Guest, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	cols := make(map[Field]int, len(mapping))
	for f, col := range mapping {
		if col == "" {
			continue
		}
		i, ok := index[col]
		if !ok {
			return nil, apperr.Validation(string(f), fmt.Sprintf("column %q not found", col))
		}
		cols[f] = i
	}
	if _, ok := cols[FieldName]; !ok {
		return nil, apperr.Validation(string(FieldName), "a name column is required")
	}

	var guests []models.Guest
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		get := func(f Field) string {
			i, ok := cols[f]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if isBlank(rec) {
			continue
		}

		g := models.Guest{
			ID:       get(FieldID),
			Name:     get(FieldName),
			Email:    get(FieldEmail),
			Phone:    get(FieldPhone),
			Group:    get(FieldGroup),
			Status:   models.RSVPStatus(strings.ToLower(get(FieldStatus))),
			InviteID: get(FieldInviteID),
		}
		if g.Name == "" {
			return nil, apperr.Validation(string(FieldName), fmt.Sprintf("line %d: name is required", line))
		}
		if g.WhatsApp, err = parseBool(get(FieldWhatsApp)); err != nil {
			return nil, apperr.Validation(string(FieldWhatsApp), fmt.Sprintf("line %d: %v", line, err))
		}
		if g.Status == "" {
			g.Status = models.RSVPPending
		}
		if !g.Status.Valid() {
			return nil, apperr.Validation(string(FieldStatus), fmt.Sprintf("line %d: unknown status %q", line, g.Status))
		}
		guests = append(guests, g)
	}
	return guests, nil
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false", "":
		return false, nil
	}
	return false, fmt.Errorf("expected true or false, got %q", s)
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
