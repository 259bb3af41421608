// Package sync is the reconciliation engine: it drives CRM accounts changed
// in the current period into the service-desk platform, idempotently. Data
// flows one way — CRM records in, platform state out — and every failure is
// contained at the boundary of the unit it belongs to: a field, a contact,
// or an account. Only credential or account-fetch failures are fatal to a
// run.
package sync

import (
	"context"

	"github.com/globe-b2b/sf-jsm-sync/internal/jsm"
	"github.com/globe-b2b/sf-jsm-sync/internal/salesforce"
)

// CRM is the slice of the Salesforce surface the engine consumes.
type CRM interface {
	Authenticate(ctx context.Context) error
	RecentAccounts(ctx context.Context) ([]salesforce.Account, error)
	AccountContacts(ctx context.Context, accountID string) ([]salesforce.Contact, error)
}

// Desk is the slice of the service-desk platform surface the engine consumes.
type Desk interface {
	CreateOrganization(ctx context.Context, name string) (id string, status int, err error)
	ListOrganizations(ctx context.Context, start, limit int) (jsm.OrganizationPage, error)
	AddOrganizationToDesk(ctx context.Context, deskKey, orgID string) (status int, err error)
	CreateCustomer(ctx context.Context, fullName, email string) (accountID string, status int, err error)
	SearchUsers(ctx context.Context, query string) ([]jsm.User, error)
	AddUsersToOrganization(ctx context.Context, orgID string, accountIDs []string) error
	UpdateOrganizationDetail(ctx context.Context, orgID, field, value string) (status int, err error)
	UpdateCustomerDetail(ctx context.Context, accountID, field, value string) (status int, err error)
}
