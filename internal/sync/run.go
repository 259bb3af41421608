package sync

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/globe-b2b/sf-jsm-sync/internal/salesforce"
	"github.com/globe-b2b/sf-jsm-sync/pkg/worker"
)

// Result statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Result is the structured outcome of one run. Fatal credential or
// account-fetch failures come back as an error status, never as a raised
// error; per-account failures are observable only through logs.
type Result struct {
	Status            string `json:"status"`
	AccountsProcessed int    `json:"accounts_processed"`
	AccountsFailed    int    `json:"accounts_failed,omitempty"`
	Message           string `json:"message,omitempty"`
}

// Coordinator iterates the changed-account set for the period, invoking the
// reconciler per account with failures isolated per account.
type Coordinator struct {
	crm        CRM
	reconciler *Reconciler
	opts       Options
	logger     *zap.Logger
}

func NewCoordinator(crm CRM, desk Desk, opts Options, logger *zap.Logger) *Coordinator {
	opts = opts.withDefaults()
	return &Coordinator{
		crm:        crm,
		reconciler: NewReconciler(crm, desk, opts, logger),
		opts:       opts,
		logger:     logger,
	}
}

// Run executes one full reconciliation pass. Accounts are processed on a
// bounded pool; the default single worker preserves strictly sequential
// processing. Each account runs on one goroutine, so ordering inside an
// account (organization before its customers) always holds.
func (c *Coordinator) Run(ctx context.Context) Result {
	log := c.logger.With(zap.String("run_id", uuid.NewString()))

	if err := c.crm.Authenticate(ctx); err != nil {
		log.Error("credential acquisition failed", zap.Error(err))
		return Result{Status: StatusError, Message: err.Error()}
	}
	accounts, err := c.crm.RecentAccounts(ctx)
	if err != nil {
		log.Error("changed-account fetch failed", zap.Error(err))
		return Result{Status: StatusError, Message: err.Error()}
	}
	log.Info("run start",
		zap.Int("accounts", len(accounts)),
		zap.Int("workers", c.opts.Workers),
		zap.Float64("rate_limit_rps", c.opts.RateLimitRPS),
	)

	results := worker.ProcessAll(ctx, accounts, func(ctx context.Context, acc salesforce.Account) AccountResult {
		return c.reconciler.ReconcileAccount(ctx, acc)
	}, worker.Options{Workers: c.opts.Workers, RateLimitRPS: c.opts.RateLimitRPS})

	failed := 0
	for _, res := range results {
		if res.Output.Err != nil {
			failed++
			log.Error("account failed", zap.String("account", res.Output.Account), zap.Error(res.Output.Err))
		}
	}
	log.Info("run complete", zap.Int("accounts", len(accounts)), zap.Int("failed", failed))

	return Result{
		Status:            StatusOK,
		AccountsProcessed: len(accounts),
		AccountsFailed:    failed,
	}
}
