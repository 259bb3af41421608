// Package mocksf implements a minimal Salesforce-like surface: the
// client-credentials token endpoint and the versioned SOQL query endpoint,
// with canned records dispatched on the query text.
package mocksf

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
	SOQL   string
}

// AccountSeed describes one account record in CRM wire shape.
type AccountSeed struct {
	ID        string
	Name      string
	Industry  string
	Address   string
	OwnerName string
	Cluster   string
	Area      string
}

// ContactSeed describes one contact relationship row in CRM wire shape.
type ContactSeed struct {
	ContactID string
	Name      string
	Email     string
	Phone     string
	Mobile    string
	Position  string
	Role      string
}

type Server struct {
	mu       sync.Mutex
	calls    []Call
	accounts []AccountSeed
	contacts map[string][]ContactSeed

	// FailToken and FailQuery force 500s, for fatal-run-path tests.
	FailToken bool
	FailQuery bool
}

func New() *Server {
	return &Server{contacts: make(map[string][]ContactSeed)}
}

func (s *Server) AddAccount(acc AccountSeed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, acc)
}

func (s *Server) AddContacts(accountID string, cs ...ContactSeed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[accountID] = append(s.contacts[accountID], cs...)
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Handler returns an http.Handler serving the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/services/oauth2/token", s.handleToken)
	mux.HandleFunc("/services/data/", s.handleQuery)
	return mux
}

func (s *Server) record(r *http.Request, soql string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, SOQL: soql})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.record(r, "")
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.FailToken {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": "mock-sf-token",
		"instance_url": baseURL(r),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	soql := r.URL.Query().Get("q")
	s.record(r, soql)
	if !strings.HasSuffix(r.URL.Path, "/query") {
		http.NotFound(w, r)
		return
	}
	if s.FailQuery {
		http.Error(w, `[{"errorCode":"UNKNOWN_EXCEPTION"}]`, http.StatusInternalServerError)
		return
	}
	if got := r.Header.Get("Authorization"); got != "Bearer mock-sf-token" {
		http.Error(w, `[{"errorCode":"INVALID_SESSION_ID"}]`, http.StatusUnauthorized)
		return
	}

	switch {
	case strings.Contains(soql, "FROM Account"):
		s.serveAccounts(w)
	case strings.Contains(soql, "FROM AccountContactRelation"):
		s.serveContacts(w, soql)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"totalSize": 0, "done": true, "records": []any{}})
	}
}

func (s *Server) serveAccounts(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]map[string]any, 0, len(s.accounts))
	for _, a := range s.accounts {
		rec := map[string]any{
			"Id":                    a.ID,
			"Name":                  a.Name,
			"Industry":              a.Industry,
			"B2B_Full_Address_2__c": a.Address,
			"B2B_Cluster__c":        a.Cluster,
			"B2B_Area__c":           a.Area,
		}
		if a.OwnerName != "" {
			rec["Owner"] = map[string]any{"Name": a.OwnerName}
		}
		records = append(records, rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalSize": len(records),
		"done":      true,
		"records":   records,
	})
}

func (s *Server) serveContacts(w http.ResponseWriter, soql string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []map[string]any
	for accountID, cs := range s.contacts {
		if !strings.Contains(soql, "'"+accountID+"'") {
			continue
		}
		for _, c := range cs {
			records = append(records, map[string]any{
				"ContactId": c.ContactID,
				"Contact": map[string]any{
					"Name":            c.Name,
					"Email":           c.Email,
					"Position__c":     c.Position,
					"Contact_Role__c": c.Role,
					"Phone":           c.Phone,
					"MobilePhone":     c.Mobile,
				},
			})
		}
	}
	if records == nil {
		records = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalSize": len(records),
		"done":      true,
		"records":   records,
	})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
