// Package config loads runtime configuration for a sync run. Configuration is
// env-first; an optional YAML profile tunes the sync behavior without
// touching credentials.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultServiceDeskKeys are the desks every synced organization is linked to
// when SERVICE_DESK_KEYS is not set.
var DefaultServiceDeskKeys = []string{"MOBILE", "ERT", "SNDBX"}

// Config is the full runtime configuration, established once per run and
// passed by reference to every collaborator. No hidden global state.
type Config struct {
	Salesforce Salesforce
	Desk       Desk
	Sync       Sync
}

// Salesforce holds the CRM OAuth client-credentials grant settings.
type Salesforce struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	APIVersion   string
}

// Desk holds the service-desk platform credentials and endpoints.
type Desk struct {
	BaseURL  string
	Email    string
	APIToken string
	CloudID  string

	// CSMBaseURL overrides the tenant detail-field base URL normally derived
	// from CloudID. Used by local runs against the mock server.
	CSMBaseURL string
}

// Sync tunes the reconciliation run.
type Sync struct {
	ServiceDeskKeys []string
	Workers         int
	RateLimitRPS    float64

	// RetryUnit scales every field-update delay and backoff. Production runs
	// use the default of one second.
	RetryUnit time.Duration
}

// Load reads configuration from the environment, then applies the optional
// SYNC_PROFILE YAML file on top of the sync settings.
func Load() (Config, error) {
	cfg := Config{
		Salesforce: Salesforce{
			ClientID:     strings.TrimSpace(os.Getenv("SF_CLIENT_ID")),
			ClientSecret: strings.TrimSpace(os.Getenv("SF_CLIENT_SECRET")),
			TokenURL:     strings.TrimSpace(os.Getenv("SF_TOKEN_URL")),
			APIVersion:   "v60.0",
		},
		Desk: Desk{
			BaseURL:    strings.TrimSpace(os.Getenv("JSM_BASE_URL")),
			Email:      strings.TrimSpace(os.Getenv("JSM_EMAIL")),
			APIToken:   strings.TrimSpace(os.Getenv("JSM_API_TOKEN")),
			CloudID:    strings.TrimSpace(os.Getenv("JSM_CLOUD_ID")),
			CSMBaseURL: strings.TrimSpace(os.Getenv("JSM_CSM_BASE_URL")),
		},
		Sync: Sync{
			ServiceDeskKeys: DefaultServiceDeskKeys,
			Workers:         1,
			RetryUnit:       time.Second,
		},
	}

	for name, val := range map[string]string{
		"SF_CLIENT_ID":     cfg.Salesforce.ClientID,
		"SF_CLIENT_SECRET": cfg.Salesforce.ClientSecret,
		"SF_TOKEN_URL":     cfg.Salesforce.TokenURL,
		"JSM_BASE_URL":     cfg.Desk.BaseURL,
		"JSM_EMAIL":        cfg.Desk.Email,
		"JSM_API_TOKEN":    cfg.Desk.APIToken,
	} {
		if val == "" {
			return Config{}, fmt.Errorf("%s is required", name)
		}
	}
	if cfg.Desk.CloudID == "" && cfg.Desk.CSMBaseURL == "" {
		return Config{}, fmt.Errorf("JSM_CLOUD_ID is required")
	}

	if keys := strings.TrimSpace(os.Getenv("SERVICE_DESK_KEYS")); keys != "" {
		cfg.Sync.ServiceDeskKeys = splitKeys(keys)
	}
	if w := strings.TrimSpace(os.Getenv("SYNC_WORKERS")); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("SYNC_WORKERS must be a positive integer (got %q)", w)
		}
		cfg.Sync.Workers = n
	}
	if r := strings.TrimSpace(os.Getenv("SYNC_RATE_LIMIT_RPS")); r != "" {
		f, err := strconv.ParseFloat(r, 64)
		if err != nil || f < 0 {
			return Config{}, fmt.Errorf("SYNC_RATE_LIMIT_RPS must be a non-negative number (got %q)", r)
		}
		cfg.Sync.RateLimitRPS = f
	}

	if path := strings.TrimSpace(os.Getenv("SYNC_PROFILE")); path != "" {
		if err := cfg.applyProfile(path); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// profile is the optional YAML overlay. Zero values leave the env-derived
// settings untouched.
type profile struct {
	ServiceDeskKeys []string `yaml:"service_desk_keys"`
	Workers         int      `yaml:"workers"`
	RateLimitRPS    float64  `yaml:"rate_limit_rps"`
	RetryUnitMS     int      `yaml:"retry_unit_ms"`
}

func (c *Config) applyProfile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrap(err, "read SYNC_PROFILE")
	}
	var p profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return eris.Wrap(err, "parse SYNC_PROFILE")
	}
	if len(p.ServiceDeskKeys) > 0 {
		c.Sync.ServiceDeskKeys = p.ServiceDeskKeys
	}
	if p.Workers > 0 {
		c.Sync.Workers = p.Workers
	}
	if p.RateLimitRPS > 0 {
		c.Sync.RateLimitRPS = p.RateLimitRPS
	}
	if p.RetryUnitMS > 0 {
		c.Sync.RetryUnit = time.Duration(p.RetryUnitMS) * time.Millisecond
	}
	return nil
}

func splitKeys(raw string) []string {
	var out []string
	for _, k := range strings.Split(raw, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
