// Package mockdesk implements a minimal service-desk-like platform surface:
// organizations with name uniqueness, customers with email uniqueness, desk
// links, user search, batch membership, and the tenant detail-field
// endpoints with a simulated indexing lag.
package mockdesk

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
}

type customer struct {
	Name  string
	Email string
}

type Server struct {
	mu sync.Mutex

	calls []Call

	nextOrgID      int
	orgIDs         []string
	orgNames       map[string]string // id -> name
	orgIDsByName   map[string]string // exact name -> id
	deskKeys       map[string]bool
	links          map[string][]string // desk key -> org ids
	nextCustomerID int
	customers      map[string]customer // account id -> customer
	customerEmails map[string]string   // lowercased email -> account id
	members        map[string][]string // org id -> account ids
	details        map[string]map[string]string

	// IndexLag is how many 404s each entity's details endpoint serves before
	// the entity becomes visible there, simulating the platform's
	// write-then-read consistency lag. Set before serving traffic.
	IndexLag int
	pending  map[string]int

	// RateLimit429s makes the next N detail writes answer 429.
	RateLimit429s int

	// ForceOrgCreateStatus rewrites the create response for specific
	// organization names, for conflict and server-error scenarios.
	ForceOrgCreateStatus map[string]int

	expectedAuthorization string
}

// New constructs a mock server knowing the given service-desk keys; linking
// against any other key answers 404.
func New(deskKeys ...string) *Server {
	known := make(map[string]bool, len(deskKeys))
	for _, k := range deskKeys {
		known[k] = true
	}
	return &Server{
		nextOrgID:            1,
		orgNames:             make(map[string]string),
		orgIDsByName:         make(map[string]string),
		deskKeys:             known,
		links:                make(map[string][]string),
		nextCustomerID:       1,
		customers:            make(map[string]customer),
		customerEmails:       make(map[string]string),
		members:              make(map[string][]string),
		details:              make(map[string]map[string]string),
		pending:              make(map[string]int),
		ForceOrgCreateStatus: make(map[string]int),
	}
}

// RequireBasicAuth enforces that requests carry the given basic credentials.
func (s *Server) RequireBasicAuth(email, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedAuthorization = "Basic " + basicToken(email, token)
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/servicedeskapi/organization", s.handleOrganizations)
	mux.HandleFunc("/rest/servicedeskapi/organization/", s.handleOrganizationMembers)
	mux.HandleFunc("/rest/servicedeskapi/servicedesk/", s.handleDeskLink)
	mux.HandleFunc("/rest/servicedeskapi/customer", s.handleCreateCustomer)
	mux.HandleFunc("/rest/api/3/user/search", s.handleUserSearch)
	mux.HandleFunc("/jsm/csm/cloudid/", s.handleDetails)
	return mux
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Organizations returns id->name for all organizations.
func (s *Server) Organizations() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.orgNames))
	for id, name := range s.orgNames {
		out[id] = name
	}
	return out
}

// Customers returns accountID->email for all customers.
func (s *Server) Customers() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.customers))
	for id, c := range s.customers {
		out[id] = c.Email
	}
	return out
}

// Links returns the organization ids linked to one desk key.
func (s *Server) Links(deskKey string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.links[deskKey]))
	copy(out, s.links[deskKey])
	return out
}

// Members returns the customer account ids attached to one organization.
func (s *Server) Members(orgID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.members[orgID]))
	copy(out, s.members[orgID])
	return out
}

// Details returns the detail fields written for one entity.
func (s *Server) Details(kind, id string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	for k, v := range s.details[kind+"/"+id] {
		out[k] = v
	}
	return out
}

func (s *Server) authorized(r *http.Request) bool {
	s.mu.Lock()
	expected := s.expectedAuthorization
	s.mu.Unlock()
	return expected == "" || r.Header.Get("Authorization") == expected
}

func (s *Server) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path})
}

func (s *Server) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodPost:
		s.createOrganization(w, r)
	case http.MethodGet:
		s.listOrganizations(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"errorMessage": "name is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.ForceOrgCreateStatus[in.Name]; ok {
		writeJSON(w, status, map[string]string{"errorMessage": "forced status"})
		return
	}
	if _, exists := s.orgIDsByName[in.Name]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{"errorMessage": "organization name already exists"})
		return
	}

	id := strconv.Itoa(s.nextOrgID)
	s.nextOrgID++
	s.orgIDs = append(s.orgIDs, id)
	s.orgNames[id] = in.Name
	s.orgIDsByName[in.Name] = id
	s.pending["organization/"+id] = s.IndexLag
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "name": in.Name})
}

func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	start, _ := strconv.Atoi(r.URL.Query().Get("start"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type org struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	values := []org{}
	for i := start; i < len(s.orgIDs) && i < start+limit; i++ {
		id := s.orgIDs[i]
		values = append(values, org{ID: id, Name: s.orgNames[id]})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"values":     values,
		"isLastPage": start+limit >= len(s.orgIDs),
		"start":      start,
		"limit":      limit,
	})
}

func (s *Server) handleOrganizationMembers(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	// Path shape: /rest/servicedeskapi/organization/{id}/user
	rest := strings.TrimPrefix(r.URL.Path, "/rest/servicedeskapi/organization/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "user" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	orgID := parts[0]

	var in struct {
		AccountIDs []string `json:"accountIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"errorMessage": "bad request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgNames[orgID]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"errorMessage": "organization not found"})
		return
	}
	for _, id := range in.AccountIDs {
		if !contains(s.members[orgID], id) {
			s.members[orgID] = append(s.members[orgID], id)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeskLink(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	// Path shape: /rest/servicedeskapi/servicedesk/{key}/organization
	rest := strings.TrimPrefix(r.URL.Path, "/rest/servicedeskapi/servicedesk/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "organization" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	key := parts[0]

	var in struct {
		OrganizationID string `json:"organizationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"errorMessage": "bad request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.deskKeys[key] {
		writeJSON(w, http.StatusNotFound, map[string]string{"errorMessage": "service desk not found"})
		return
	}
	if !contains(s.links[key], in.OrganizationID) {
		s.links[key] = append(s.links[key], in.OrganizationID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var in struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Email) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"errorMessage": "email is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	emailKey := strings.ToLower(in.Email)
	if _, exists := s.customerEmails[emailKey]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"errorMessage": "email address is already associated with an account"})
		return
	}
	id := fmt.Sprintf("cust-%d", s.nextCustomerID)
	s.nextCustomerID++
	s.customers[id] = customer{Name: in.FullName, Email: in.Email}
	s.customerEmails[emailKey] = id
	s.pending["customer/"+id] = s.IndexLag
	writeJSON(w, http.StatusCreated, map[string]string{"accountId": id})
}

func (s *Server) handleUserSearch(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	query := strings.ToLower(r.URL.Query().Get("query"))

	s.mu.Lock()
	defer s.mu.Unlock()

	type user struct {
		AccountID    string `json:"accountId"`
		EmailAddress string `json:"emailAddress"`
	}
	// Near-match semantics: anything containing the query term comes back.
	users := []user{}
	for id, c := range s.customers {
		if query == "" || strings.Contains(strings.ToLower(c.Email), query) || strings.Contains(strings.ToLower(c.Name), query) {
			users = append(users, user{AccountID: id, EmailAddress: c.Email})
		}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	// Path shape: /jsm/csm/cloudid/{cloud}/api/v1/{kind}/{id}/details
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 9 || (parts[6] != "organization" && parts[6] != "customer") || parts[8] != "details" || r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	kind, id := parts[6], parts[7]
	field := r.URL.Query().Get("fieldName")

	var in struct {
		Values []string `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || field == "" || len(in.Values) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"errorMessage": "fieldName and values are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.RateLimit429s > 0 {
		s.RateLimit429s--
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"errorMessage": "rate limited"})
		return
	}

	known := false
	if kind == "organization" {
		_, known = s.orgNames[id]
	} else {
		_, known = s.customers[id]
	}
	key := kind + "/" + id
	if !known {
		writeJSON(w, http.StatusNotFound, map[string]string{"errorMessage": "entity not found"})
		return
	}
	if s.pending[key] > 0 {
		s.pending[key]--
		writeJSON(w, http.StatusNotFound, map[string]string{"errorMessage": "entity not indexed yet"})
		return
	}

	if s.details[key] == nil {
		s.details[key] = make(map[string]string)
	}
	s.details[key][field] = in.Values[0]
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func basicToken(email, token string) string {
	return base64.StdEncoding.EncodeToString([]byte(email + ":" + token))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
