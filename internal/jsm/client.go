// Package jsm is the service-desk platform client. Methods the sync engine
// branches on (create/conflict, indexed/not-yet-indexed) return the HTTP
// status alongside the parsed body instead of folding it into an error:
// those statuses are expected protocol outcomes, not failures.
package jsm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/globe-b2b/sf-jsm-sync/internal/config"
)

// Organization is one platform organization identity.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrganizationPage is one page of the organization listing.
type OrganizationPage struct {
	Values     []Organization `json:"values"`
	IsLastPage bool           `json:"isLastPage"`
	Start      int            `json:"start"`
	Limit      int            `json:"limit"`
}

// User is one directory entry from the user search.
type User struct {
	AccountID    string `json:"accountId"`
	EmailAddress string `json:"emailAddress"`
}

// Client calls the service-desk site API and the tenant detail-field (CSM)
// API with basic auth.
type Client struct {
	siteBaseURL *url.URL
	csmBaseURL  *url.URL
	email       string
	token       string
	http        *http.Client
}

// NewClient constructs a client from the desk configuration. The detail-field
// base URL is derived from the cloud id unless explicitly overridden.
func NewClient(cfg config.Desk) (*Client, error) {
	siteBase, err := parseBaseURL(cfg.BaseURL, "service desk")
	if err != nil {
		return nil, err
	}

	csmRaw := strings.TrimSpace(cfg.CSMBaseURL)
	if csmRaw == "" {
		if strings.TrimSpace(cfg.CloudID) == "" {
			return nil, fmt.Errorf("cloud id or csm base URL is required")
		}
		csmRaw = "https://api.atlassian.com/jsm/csm/cloudid/" + url.PathEscape(strings.TrimSpace(cfg.CloudID)) + "/api/v1"
	}
	csmBase, err := parseBaseURL(csmRaw, "csm")
	if err != nil {
		return nil, err
	}

	return &Client{
		siteBaseURL: siteBase,
		csmBaseURL:  csmBase,
		email:       strings.TrimSpace(cfg.Email),
		token:       strings.TrimSpace(cfg.APIToken),
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

func parseBaseURL(raw string, name string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%s base URL is required", name)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s base URL: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s base URL must include a host (got %q)", name, raw)
	}
	// Ensure the base path ends with a slash so ResolveReference treats it as a directory.
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func (c *Client) resolveSite(relPath string) *url.URL {
	relPath = strings.TrimPrefix(relPath, "/")
	return c.siteBaseURL.ResolveReference(&url.URL{Path: relPath})
}

func (c *Client) resolveCSM(relPath string) *url.URL {
	relPath = strings.TrimPrefix(relPath, "/")
	return c.csmBaseURL.ResolveReference(&url.URL{Path: relPath})
}

// do issues one request and returns the status and drained body. Transport
// failures are the only errors; callers interpret statuses.
func (c *Client) do(ctx context.Context, method string, u *url.URL, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return 0, nil, err
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, b, nil
}

// CreateOrganization attempts to create an organization. A 201 returns the
// new id; conflict statuses come back to the caller for the find fallback.
func (c *Client) CreateOrganization(ctx context.Context, name string) (string, int, error) {
	name = strings.TrimSpace(name)
	status, body, err := c.do(ctx, http.MethodPost, c.resolveSite("rest/servicedeskapi/organization"), map[string]string{"name": name})
	if err != nil {
		return "", 0, err
	}
	if status != http.StatusCreated {
		return "", status, nil
	}
	var out Organization
	if err := json.Unmarshal(body, &out); err != nil {
		return "", status, fmt.Errorf("parse create organization response: %w", err)
	}
	return out.ID, status, nil
}

// ListOrganizations returns one page of the full organization listing.
func (c *Client) ListOrganizations(ctx context.Context, start, limit int) (OrganizationPage, error) {
	u := c.resolveSite("rest/servicedeskapi/organization")
	q := url.Values{}
	q.Set("start", strconv.Itoa(start))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	status, body, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return OrganizationPage{}, err
	}
	if status != http.StatusOK {
		return OrganizationPage{}, newHTTPError("listOrganizations", &http.Response{StatusCode: status, Status: strconv.Itoa(status)}, body)
	}
	var out OrganizationPage
	if err := json.Unmarshal(body, &out); err != nil {
		return OrganizationPage{}, fmt.Errorf("parse organization page: %w", err)
	}
	return out, nil
}

// AddOrganizationToDesk links an organization to one service desk. Linking an
// already-linked pair is a no-op on the platform side.
func (c *Client) AddOrganizationToDesk(ctx context.Context, deskKey, orgID string) (int, error) {
	u := c.resolveSite(fmt.Sprintf("rest/servicedeskapi/servicedesk/%s/organization", url.PathEscape(deskKey)))
	status, _, err := c.do(ctx, http.MethodPost, u, map[string]string{"organizationId": orgID})
	return status, err
}

// CreateCustomer attempts to create a customer. A 201 returns the platform
// account id; conflict statuses come back for the directory-search fallback.
func (c *Client) CreateCustomer(ctx context.Context, fullName, email string) (string, int, error) {
	status, body, err := c.do(ctx, http.MethodPost, c.resolveSite("rest/servicedeskapi/customer"), map[string]string{
		"fullName": fullName,
		"email":    email,
	})
	if err != nil {
		return "", 0, err
	}
	if status != http.StatusCreated {
		return "", status, nil
	}
	var out struct {
		AccountID string `json:"accountId"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", status, fmt.Errorf("parse create customer response: %w", err)
	}
	return out.AccountID, status, nil
}

// SearchUsers queries the user directory. The search may return near-matches;
// callers filter to the exact email they want.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]User, error) {
	u := c.resolveSite("rest/api/3/user/search")
	q := url.Values{}
	q.Set("query", query)
	u.RawQuery = q.Encode()

	status, body, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, newHTTPError("searchUsers", &http.Response{StatusCode: status, Status: strconv.Itoa(status)}, body)
	}
	var out []User
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse user search response: %w", err)
	}
	return out, nil
}

// AddUsersToOrganization attaches customers to an organization in one batch.
func (c *Client) AddUsersToOrganization(ctx context.Context, orgID string, accountIDs []string) error {
	if len(accountIDs) == 0 {
		return nil
	}
	u := c.resolveSite(fmt.Sprintf("rest/servicedeskapi/organization/%s/user", url.PathEscape(orgID)))
	status, body, err := c.do(ctx, http.MethodPost, u, map[string][]string{"accountIds": accountIDs})
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return newHTTPError("addUsersToOrganization", &http.Response{StatusCode: status, Status: strconv.Itoa(status)}, body)
	}
	return nil
}

// UpdateOrganizationDetail writes one organization detail field and returns
// the raw status; the retry discipline lives in the caller.
func (c *Client) UpdateOrganizationDetail(ctx context.Context, orgID, field, value string) (int, error) {
	return c.updateDetail(ctx, "organization", orgID, field, value)
}

// UpdateCustomerDetail writes one customer detail field.
func (c *Client) UpdateCustomerDetail(ctx context.Context, accountID, field, value string) (int, error) {
	return c.updateDetail(ctx, "customer", accountID, field, value)
}

func (c *Client) updateDetail(ctx context.Context, kind, id, field, value string) (int, error) {
	u := c.resolveCSM(fmt.Sprintf("%s/%s/details", kind, url.PathEscape(id)))
	q := url.Values{}
	q.Set("fieldName", field)
	u.RawQuery = q.Encode()

	status, _, err := c.do(ctx, http.MethodPut, u, map[string][]string{"values": {value}})
	return status, err
}
