// Command mock-desk serves the mock service-desk platform and the mock CRM
// on one address, for local dry runs of sfjsmsync without real credentials.
//
// Point the sync at it with:
//
//	SF_TOKEN_URL=http://localhost:8080/services/oauth2/token
//	JSM_BASE_URL=http://localhost:8080
//	JSM_CSM_BASE_URL=http://localhost:8080/jsm/csm/cloudid/local/api/v1
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/globe-b2b/sf-jsm-sync/internal/mockdesk"
	"github.com/globe-b2b/sf-jsm-sync/internal/mocksf"
)

func main() {
	addr := defaultString("MOCK_DESK_ADDR", ":8080")
	deskKeys := defaultString("MOCK_DESK_KEYS", "MOBILE,ERT,SNDBX")

	fs := flag.NewFlagSet("mock-desk", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&deskKeys, "desk-keys", deskKeys, "Comma-separated service desk keys the mock knows (also env: MOCK_DESK_KEYS)")
	seed := fs.Bool("seed", false, "Seed one demo account with an authorized contact")
	_ = fs.Parse(os.Args[1:])

	desk := mockdesk.New(splitCSV(deskKeys)...)
	sf := mocksf.New()
	if *seed {
		sf.AddAccount(mocksf.AccountSeed{
			ID: "001000000000001", Name: "Demo Industries", Industry: "Manufacturing",
			Address: "12 Demo Way", OwnerName: "Alex Cruz", Cluster: "North", Area: "Metro",
		})
		sf.AddContacts("001000000000001", mocksf.ContactSeed{
			ContactID: "003000000000001", Name: "Dana Smith", Email: "dana@demo.example",
			Position: "Authorized Signatory", Mobile: "555-0001",
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/services/", sf.Handler())
	mux.Handle("/rest/", desk.Handler())
	mux.Handle("/jsm/", desk.Handler())

	_, _ = fmt.Fprintf(os.Stdout, "mock-desk listening on %s (desk keys: %s)\n", addr, deskKeys)
	if err := http.ListenAndServe(addr, mux); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
