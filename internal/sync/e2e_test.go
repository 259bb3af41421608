package sync_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/globe-b2b/sf-jsm-sync/internal/config"
	"github.com/globe-b2b/sf-jsm-sync/internal/jsm"
	"github.com/globe-b2b/sf-jsm-sync/internal/mockdesk"
	"github.com/globe-b2b/sf-jsm-sync/internal/mocksf"
	"github.com/globe-b2b/sf-jsm-sync/internal/salesforce"
	"github.com/globe-b2b/sf-jsm-sync/internal/sync"
)

type env struct {
	sf   *mocksf.Server
	desk *mockdesk.Server
	co   *sync.Coordinator
}

// newEnv stands up both mock platforms and a coordinator wired to them
// through the real clients, with millisecond retry delays.
func newEnv(t *testing.T, sf *mocksf.Server, desk *mockdesk.Server) *env {
	t.Helper()

	sfSrv := httptest.NewServer(sf.Handler())
	t.Cleanup(sfSrv.Close)
	deskSrv := httptest.NewServer(desk.Handler())
	t.Cleanup(deskSrv.Close)

	desk.RequireBasicAuth("ops@example.com", "desk-token")

	crm := salesforce.NewClient(config.Salesforce{
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     sfSrv.URL + "/services/oauth2/token",
	})
	deskClient, err := jsm.NewClient(config.Desk{
		BaseURL:    deskSrv.URL,
		Email:      "ops@example.com",
		APIToken:   "desk-token",
		CSMBaseURL: deskSrv.URL + "/jsm/csm/cloudid/test-cloud/api/v1",
	})
	require.NoError(t, err)

	co := sync.NewCoordinator(crm, deskClient, sync.Options{
		DeskKeys:  []string{"MOBILE", "ERT", "SNDBX"},
		RetryUnit: time.Millisecond,
	}, zaptest.NewLogger(t))
	return &env{sf: sf, desk: desk, co: co}
}

func seedAcme(sf *mocksf.Server) {
	sf.AddAccount(mocksf.AccountSeed{
		ID: "001", Name: "Acme Co", Industry: "Telecom", Address: "1 Main St",
		OwnerName: "Pat Reyes", Cluster: "North", Area: "Metro",
	})
	sf.AddContacts("001",
		mocksf.ContactSeed{
			ContactID: "c1", Name: "Jane Doe", Email: "jane@acme.com",
			Position: "CFO / Authorized Signatory", Mobile: "555-0101", Phone: "555-0100",
		},
		mocksf.ContactSeed{
			ContactID: "c2", Name: "Sam Lee", Email: "sam@acme.com",
			Position: "Engineer",
		},
	)
}

func TestRunEndToEnd(t *testing.T) {
	sf := mocksf.New()
	seedAcme(sf)
	desk := mockdesk.New("MOBILE", "ERT")
	desk.IndexLag = 1 // every entity 404s once on details before appearing
	e := newEnv(t, sf, desk)

	res := e.co.Run(context.Background())
	require.Equal(t, sync.StatusOK, res.Status)
	assert.Equal(t, 1, res.AccountsProcessed)
	assert.Zero(t, res.AccountsFailed)

	orgs := e.desk.Organizations()
	require.Len(t, orgs, 1)
	var orgID string
	for id, name := range orgs {
		orgID = id
		assert.Equal(t, "Acme Co", name)
	}

	// Linked to the desks the platform knows; the retired key is skipped
	// without failing the account.
	assert.Equal(t, []string{orgID}, e.desk.Links("MOBILE"))
	assert.Equal(t, []string{orgID}, e.desk.Links("ERT"))
	assert.Empty(t, e.desk.Links("SNDBX"))

	assert.Equal(t, map[string]string{
		"Salesforce Account Id": "001",
		"Company Name":          "Acme Co",
		"Company Address":       "1 Main St",
		"Industry":              "Telecom",
		"Customer Type":         "Customer",
		"Account Manager":       "Pat Reyes",
		"Sales Cluster":         "North",
		"Sales Area":            "Metro",
	}, e.desk.Details("organization", orgID))

	// Only the signatory becomes a customer; mobile wins over phone.
	customers := e.desk.Customers()
	require.Len(t, customers, 1)
	var custID string
	for id, email := range customers {
		custID = id
		assert.Equal(t, "jane@acme.com", email)
	}
	assert.Equal(t, map[string]string{
		"ROLE":          "Authorized Signatory",
		"Mobile Number": "555-0101",
		"Full Name":     "Jane Doe",
		"Email Address": "jane@acme.com",
	}, e.desk.Details("customer", custID))
	assert.Equal(t, []string{custID}, e.desk.Members(orgID))
}

func TestRunIsIdempotent(t *testing.T) {
	sf := mocksf.New()
	seedAcme(sf)
	desk := mockdesk.New("MOBILE", "ERT")
	e := newEnv(t, sf, desk)

	require.Equal(t, sync.StatusOK, e.co.Run(context.Background()).Status)

	// Second pass over the same changed set: conflicts resolve to the
	// existing entities, nothing is duplicated, the run still reports clean.
	res := e.co.Run(context.Background())
	require.Equal(t, sync.StatusOK, res.Status)
	assert.Zero(t, res.AccountsFailed)

	assert.Len(t, e.desk.Organizations(), 1)
	assert.Len(t, e.desk.Customers(), 1)
	assert.Len(t, e.desk.Links("MOBILE"), 1)
	for orgID := range e.desk.Organizations() {
		assert.Len(t, e.desk.Members(orgID), 1)
	}
}

func TestRunIsolatesAccountFailures(t *testing.T) {
	sf := mocksf.New()
	sf.AddAccount(mocksf.AccountSeed{ID: "000", Name: "Bad Co"})
	seedAcme(sf)
	desk := mockdesk.New("MOBILE", "ERT")
	// Conflict with no matching organization anywhere: the account is
	// abandoned, the run keeps going.
	desk.ForceOrgCreateStatus["Bad Co"] = 409
	e := newEnv(t, sf, desk)

	res := e.co.Run(context.Background())
	require.Equal(t, sync.StatusOK, res.Status)
	assert.Equal(t, 2, res.AccountsProcessed)
	assert.Equal(t, 1, res.AccountsFailed)

	// The failed account never reached contact processing.
	for _, call := range sf.Calls() {
		if strings.Contains(call.SOQL, "AccountContactRelation") {
			assert.Contains(t, call.SOQL, "'001'")
			assert.NotContains(t, call.SOQL, "'000'")
		}
	}
	// The healthy account still completed fully.
	assert.Len(t, e.desk.Organizations(), 1)
	assert.Len(t, e.desk.Customers(), 1)
}

func TestRunRecoversFromDetailRateLimiting(t *testing.T) {
	sf := mocksf.New()
	seedAcme(sf)
	desk := mockdesk.New("MOBILE", "ERT")
	desk.RateLimit429s = 2
	e := newEnv(t, sf, desk)

	res := e.co.Run(context.Background())
	require.Equal(t, sync.StatusOK, res.Status)
	assert.Zero(t, res.AccountsFailed)
	for orgID := range e.desk.Organizations() {
		assert.Len(t, e.desk.Details("organization", orgID), 8)
	}
}

func TestRunReportsCredentialFailure(t *testing.T) {
	sf := mocksf.New()
	sf.FailToken = true
	e := newEnv(t, sf, mockdesk.New("MOBILE"))

	res := e.co.Run(context.Background())
	assert.Equal(t, sync.StatusError, res.Status)
	assert.NotEmpty(t, res.Message)
	assert.Zero(t, res.AccountsProcessed)
}

func TestRunReportsAccountFetchFailure(t *testing.T) {
	sf := mocksf.New()
	sf.FailQuery = true
	e := newEnv(t, sf, mockdesk.New("MOBILE"))

	res := e.co.Run(context.Background())
	assert.Equal(t, sync.StatusError, res.Status)
	assert.NotEmpty(t, res.Message)
}
