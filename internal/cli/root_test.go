package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globe-b2b/sf-jsm-sync/internal/version"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Current)
}

func TestRunCommandRequiresConfiguration(t *testing.T) {
	t.Setenv("SF_CLIENT_ID", "")
	t.Setenv("SF_CLIENT_SECRET", "")
	t.Setenv("SF_TOKEN_URL", "")

	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is required")
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "reconcile")
	require.Error(t, err)
}
