package jsm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/globe-b2b/sf-jsm-sync/internal/util"
)

// errorEnvelope is the common error shape on the service-desk API. Responses
// may include additional fields; we intentionally ignore them.
type errorEnvelope struct {
	ErrorMessage  string   `json:"errorMessage"`
	ErrorMessages []string `json:"errorMessages"`
}

// HTTPError is a sanitized summary of an unexpected platform response.
//
// Important: raw response bodies can leak tokens and PII; only a redacted
// snippet is kept.
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string

	// Snippet is a redacted, truncated hint for unparseable responses.
	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "service desk http error"
	}
	parts := []string{
		fmt.Sprintf("service desk api error: op=%s status=%s", strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, "message="+strings.TrimSpace(e.Message))
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

func newHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}

	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		if env.ErrorMessage != "" {
			h.Message = env.ErrorMessage
			return h
		}
		if len(env.ErrorMessages) > 0 {
			h.Message = strings.Join(env.ErrorMessages, "; ")
			return h
		}
	}

	h.Snippet = redactAndTruncate(body)
	return h
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := util.RedactSecrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
