package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globe-b2b/sf-jsm-sync/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SF_CLIENT_ID", "client-id")
	t.Setenv("SF_CLIENT_SECRET", "client-secret")
	t.Setenv("SF_TOKEN_URL", "https://login.example.test/services/oauth2/token")
	t.Setenv("JSM_BASE_URL", "https://acme.atlassian.test")
	t.Setenv("JSM_EMAIL", "bot@acme.test")
	t.Setenv("JSM_API_TOKEN", "tok")
	t.Setenv("JSM_CLOUD_ID", "cloud-1")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "v60.0", cfg.Salesforce.APIVersion)
	assert.Equal(t, config.DefaultServiceDeskKeys, cfg.Sync.ServiceDeskKeys)
	assert.Equal(t, 1, cfg.Sync.Workers)
	assert.Equal(t, time.Second, cfg.Sync.RetryUnit)
	assert.Zero(t, cfg.Sync.RateLimitRPS)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JSM_API_TOKEN", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSM_API_TOKEN is required")
}

func TestLoadCloudIDOptionalWithCSMOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JSM_CLOUD_ID", "")
	t.Setenv("JSM_CSM_BASE_URL", "http://127.0.0.1:9999/jsm/csm/cloudid/local/api/v1")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Desk.CloudID)
	assert.NotEmpty(t, cfg.Desk.CSMBaseURL)
}

func TestLoadServiceDeskKeys(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVICE_DESK_KEYS", "MOBILE, ERT, ,CORP")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"MOBILE", "ERT", "CORP"}, cfg.Sync.ServiceDeskKeys)
}

func TestLoadRejectsBadWorkers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SYNC_WORKERS", "zero")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoadProfileOverlay(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"service_desk_keys: [SNDBX]\nworkers: 4\nrate_limit_rps: 2.5\nretry_unit_ms: 10\n",
	), 0o644))
	t.Setenv("SYNC_PROFILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"SNDBX"}, cfg.Sync.ServiceDeskKeys)
	assert.Equal(t, 4, cfg.Sync.Workers)
	assert.Equal(t, 2.5, cfg.Sync.RateLimitRPS)
	assert.Equal(t, 10*time.Millisecond, cfg.Sync.RetryUnit)
}

func TestLoadProfileMissingFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SYNC_PROFILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := config.Load()
	assert.Error(t, err)
}
