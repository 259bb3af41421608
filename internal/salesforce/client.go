// Package salesforce is the CRM collaborator: a token grant plus the two
// SOQL queries the sync consumes. Stateless beyond the credential acquired
// once per run.
package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/globe-b2b/sf-jsm-sync/internal/config"
	"github.com/globe-b2b/sf-jsm-sync/internal/util"
)

// Client talks to the Salesforce REST query endpoint. Authenticate must
// succeed before any query method is used.
type Client struct {
	cfg  config.Salesforce
	http *http.Client

	token       string
	instanceURL string
}

func NewClient(cfg config.Salesforce) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v60.0"
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
}

// Authenticate performs the client-credentials grant and stores the
// credential for the rest of the run.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("salesforce token request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("salesforce token request: status %s: %s", resp.Status, snippet(b))
	}

	var out tokenResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("parse token response: %w", err)
	}
	if out.AccessToken == "" || out.InstanceURL == "" {
		return fmt.Errorf("token response missing access_token or instance_url")
	}
	c.token = out.AccessToken
	c.instanceURL = strings.TrimRight(out.InstanceURL, "/")
	return nil
}

type queryResponse struct {
	TotalSize int               `json:"totalSize"`
	Done      bool              `json:"done"`
	Records   []json.RawMessage `json:"records"`
}

// Query runs one SOQL statement against the versioned query endpoint.
func (c *Client) Query(ctx context.Context, soql string) ([]json.RawMessage, error) {
	if c.token == "" {
		return nil, fmt.Errorf("salesforce client is not authenticated")
	}

	u := fmt.Sprintf("%s/services/data/%s/query", c.instanceURL, c.cfg.APIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("q", soql)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("salesforce query: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("salesforce query: status %s: %s", resp.Status, snippet(b))
	}

	var out queryResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse query response: %w", err)
	}
	return out.Records, nil
}

// recentAccountsSOQL pulls B2B accounts modified today. The record-type and
// active-status filters mirror the CRM's own definition of a syncable account.
const recentAccountsSOQL = `SELECT Id, Name, Industry, Type, B2B_Full_Address_2__c,
       Owner.Name, B2B_Cluster__c, B2B_Area__c
FROM Account
WHERE RecordType.DeveloperName = 'B2B_Accounts'
AND EGFS1_Not_Active__c = false
AND LastModifiedDate = TODAY`

type accountRecord struct {
	ID       string `json:"Id"`
	Name     string `json:"Name"`
	Industry string `json:"Industry"`
	Address  string `json:"B2B_Full_Address_2__c"`
	Owner    *struct {
		Name string `json:"Name"`
	} `json:"Owner"`
	Cluster string `json:"B2B_Cluster__c"`
	Area    string `json:"B2B_Area__c"`
}

// RecentAccounts returns the accounts changed in the current period.
func (c *Client) RecentAccounts(ctx context.Context) ([]Account, error) {
	records, err := c.Query(ctx, recentAccountsSOQL)
	if err != nil {
		return nil, err
	}

	accounts := make([]Account, 0, len(records))
	for _, raw := range records {
		var rec accountRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("parse account record: %w", err)
		}
		acc := Account{
			ID:       rec.ID,
			Name:     strings.TrimSpace(rec.Name),
			Industry: rec.Industry,
			Address:  rec.Address,
			Cluster:  rec.Cluster,
			Area:     rec.Area,
		}
		if rec.Owner != nil {
			acc.OwnerName = rec.Owner.Name
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// accountContactsSOQL joins account to contact via the relationship object so
// both direct and indirect contacts are found. The role filters are a coarse
// pre-filter; the engine re-applies the selection rule on the fetched text.
const accountContactsSOQL = `SELECT ContactId, Contact.Name, Contact.Email,
       Contact.Position__c, Contact.Contact_Role__c, Contact.Phone, Contact.MobilePhone
FROM AccountContactRelation
WHERE AccountId = '%s'
AND IsActive = true
AND (
    Contact.Position__c LIKE '%%Authorized Signatory%%'
    OR Contact.Position__c LIKE '%%Authorized Representative%%'
    OR Contact.Contact_Role__c INCLUDES ('Authorized Signatory', 'Authorized Representative')
)`

type relationRecord struct {
	ContactID string `json:"ContactId"`
	Contact   *struct {
		Name     string `json:"Name"`
		Email    string `json:"Email"`
		Position string `json:"Position__c"`
		Role     string `json:"Contact_Role__c"`
		Phone    string `json:"Phone"`
		Mobile   string `json:"MobilePhone"`
	} `json:"Contact"`
}

// AccountContacts returns the active contact relationships for one account,
// flattened into Contact records.
func (c *Client) AccountContacts(ctx context.Context, accountID string) ([]Contact, error) {
	soql := fmt.Sprintf(accountContactsSOQL, escapeSOQL(accountID))
	records, err := c.Query(ctx, soql)
	if err != nil {
		return nil, err
	}

	contacts := make([]Contact, 0, len(records))
	for _, raw := range records {
		var rec relationRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("parse contact relation record: %w", err)
		}
		contact := Contact{ID: rec.ContactID}
		if rec.Contact != nil {
			contact.Name = rec.Contact.Name
			contact.Email = rec.Contact.Email
			contact.Position = rec.Contact.Position
			contact.Role = rec.Contact.Role
			contact.Phone = rec.Contact.Phone
			contact.Mobile = rec.Contact.Mobile
		}
		contacts = append(contacts, contact)
	}
	return contacts, nil
}

// escapeSOQL escapes a string literal interpolated into a SOQL statement.
func escapeSOQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func snippet(body []byte) string {
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := strings.TrimSpace(strings.ReplaceAll(string(b), "\n", " "))
	return util.RedactSecrets(s)
}
