package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/globe-b2b/sf-jsm-sync/internal/config"
	"github.com/globe-b2b/sf-jsm-sync/internal/jsm"
	"github.com/globe-b2b/sf-jsm-sync/internal/salesforce"
	"github.com/globe-b2b/sf-jsm-sync/internal/sync"
	"github.com/globe-b2b/sf-jsm-sync/internal/util"
)

// NewRunCommand creates the run command: one full reconciliation pass.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass over today's changed accounts",
		Long: `Run authenticates against the CRM, fetches the accounts modified today,
and reconciles each one into the service-desk platform. The structured
result is printed to stdout as JSON; logs go to stderr.

Example:
  sfjsmsync run
  SYNC_WORKERS=4 sfjsmsync run --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, rootOpts)
		},
	}
	return cmd
}

func runSync(cmd *cobra.Command, rootOpts *RootOptions) error {
	logger, err := newLogger(rootOpts.Verbose)
	if err != nil {
		return eris.Wrap(err, "build logger")
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "load configuration")
	}

	deskClient, err := jsm.NewClient(cfg.Desk)
	if err != nil {
		return eris.Wrap(err, "build service-desk client")
	}
	crm := salesforce.NewClient(cfg.Salesforce)

	co := sync.NewCoordinator(crm, deskClient, sync.Options{
		DeskKeys:     cfg.Sync.ServiceDeskKeys,
		Workers:      cfg.Sync.Workers,
		RateLimitRPS: cfg.Sync.RateLimitRPS,
		RetryUnit:    cfg.Sync.RetryUnit,
	}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := co.Run(ctx)

	out, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "encode result")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if result.Status != sync.StatusOK {
		return fmt.Errorf("run failed: %s", util.RedactSecrets(result.Message))
	}
	return nil
}

// newLogger builds the stderr logger. Verbose switches to development
// encoding at debug level; the default is production JSON at info.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
