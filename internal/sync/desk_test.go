package sync

import (
	"context"
	"fmt"

	"github.com/globe-b2b/sf-jsm-sync/internal/jsm"
)

// fakeDesk is a scriptable Desk for unit tests. Unset hooks fail loudly so a
// test only ever exercises the calls it expects.
type fakeDesk struct {
	createOrg        func(name string) (string, int, error)
	listOrgs         func(start, limit int) (jsm.OrganizationPage, error)
	addOrgToDesk     func(key, orgID string) (int, error)
	createCustomer   func(name, email string) (string, int, error)
	searchUsers      func(query string) ([]jsm.User, error)
	addUsers         func(orgID string, ids []string) error
	updateOrgDetail  func(id, field, value string) (int, error)
	updateCustDetail func(id, field, value string) (int, error)
}

func (f *fakeDesk) CreateOrganization(_ context.Context, name string) (string, int, error) {
	if f.createOrg == nil {
		return "", 0, fmt.Errorf("unexpected CreateOrganization(%q)", name)
	}
	return f.createOrg(name)
}

func (f *fakeDesk) ListOrganizations(_ context.Context, start, limit int) (jsm.OrganizationPage, error) {
	if f.listOrgs == nil {
		return jsm.OrganizationPage{}, fmt.Errorf("unexpected ListOrganizations(%d, %d)", start, limit)
	}
	return f.listOrgs(start, limit)
}

func (f *fakeDesk) AddOrganizationToDesk(_ context.Context, key, orgID string) (int, error) {
	if f.addOrgToDesk == nil {
		return 0, fmt.Errorf("unexpected AddOrganizationToDesk(%q, %q)", key, orgID)
	}
	return f.addOrgToDesk(key, orgID)
}

func (f *fakeDesk) CreateCustomer(_ context.Context, name, email string) (string, int, error) {
	if f.createCustomer == nil {
		return "", 0, fmt.Errorf("unexpected CreateCustomer(%q, %q)", name, email)
	}
	return f.createCustomer(name, email)
}

func (f *fakeDesk) SearchUsers(_ context.Context, query string) ([]jsm.User, error) {
	if f.searchUsers == nil {
		return nil, fmt.Errorf("unexpected SearchUsers(%q)", query)
	}
	return f.searchUsers(query)
}

func (f *fakeDesk) AddUsersToOrganization(_ context.Context, orgID string, ids []string) error {
	if f.addUsers == nil {
		return fmt.Errorf("unexpected AddUsersToOrganization(%q)", orgID)
	}
	return f.addUsers(orgID, ids)
}

func (f *fakeDesk) UpdateOrganizationDetail(_ context.Context, id, field, value string) (int, error) {
	if f.updateOrgDetail == nil {
		return 0, fmt.Errorf("unexpected UpdateOrganizationDetail(%q, %q)", id, field)
	}
	return f.updateOrgDetail(id, field, value)
}

func (f *fakeDesk) UpdateCustomerDetail(_ context.Context, id, field, value string) (int, error) {
	if f.updateCustDetail == nil {
		return 0, fmt.Errorf("unexpected UpdateCustomerDetail(%q, %q)", id, field)
	}
	return f.updateCustDetail(id, field, value)
}
