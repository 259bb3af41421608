package sync

import (
	"strings"

	"github.com/globe-b2b/sf-jsm-sync/internal/salesforce"
)

// The two canonical role labels the free-text indicators map onto.
const (
	RoleAuthorizedSignatory      = "Authorized Signatory"
	RoleAuthorizedRepresentative = "Authorized Representative"
)

// SelectedContact is a contact that qualified for onboarding, with its
// canonical role and preferred phone number resolved.
type SelectedContact struct {
	Contact salesforce.Contact
	Role    string
	Phone   string
}

// SelectContacts filters an account's contact list down to the authorized
// signatories and representatives, preserving input order. A contact
// qualifies only with a non-empty email and a role-indicator match; the
// match is a substring test against the combined lowercased free text, and
// "Authorized Signatory" wins when both phrases are present.
func SelectContacts(contacts []salesforce.Contact) []SelectedContact {
	var out []SelectedContact
	for _, c := range contacts {
		if strings.TrimSpace(c.Email) == "" {
			continue
		}

		combined := strings.ToLower(c.Position + " " + c.Role)
		var role string
		switch {
		case strings.Contains(combined, "authorized signatory"):
			role = RoleAuthorizedSignatory
		case strings.Contains(combined, "authorized representative"):
			role = RoleAuthorizedRepresentative
		default:
			continue
		}

		phone := strings.TrimSpace(c.Mobile)
		if phone == "" {
			phone = strings.TrimSpace(c.Phone)
		}
		out = append(out, SelectedContact{Contact: c, Role: role, Phone: phone})
	}
	return out
}
