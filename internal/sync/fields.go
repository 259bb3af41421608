package sync

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/globe-b2b/sf-jsm-sync/pkg/retry"
)

// Target selects which detail endpoint a field write goes to.
type Target int

const (
	TargetOrganization Target = iota
	TargetCustomer
)

// Field is one (name, value) detail pair.
type Field struct {
	Name  string
	Value string
}

// Executor performs single detail-field writes with the retry discipline a
// lagging-consistency platform needs. Each write is independent: a false
// return means "this field did not get set" and nothing more.
type Executor struct {
	desk   Desk
	logger *zap.Logger
	sleep  func(time.Duration)
}

func NewExecutor(desk Desk, logger *zap.Logger) *Executor {
	return &Executor{desk: desk, logger: logger, sleep: time.Sleep}
}

// SetDetail writes one detail field under the given policy and reports
// whether the write landed. An empty value returns false without any
// network call: a retried run must never blank out a real value.
func (e *Executor) SetDetail(ctx context.Context, target Target, id, field, value string, policy retry.Policy) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	log := e.logger.With(zap.String("field", field), zap.String("id", id))

	// Buffer for indexing between entity creation and field visibility.
	e.sleep(policy.InitialDelay)

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		status, err := e.update(ctx, target, id, field, value)
		if err != nil {
			log.Warn("detail update transport error", zap.Int("attempt", attempt), zap.Error(err))
			e.sleep(policy.TransportDelay)
			continue
		}
		switch status {
		case http.StatusOK:
			return true
		case http.StatusNotFound:
			e.sleep(policy.NotFoundBackoff(attempt))
		case http.StatusTooManyRequests:
			e.sleep(policy.RateLimitDelay)
		default:
			// Non-retryable application error; abandon this field.
			log.Warn("detail update rejected", zap.Int("status", status))
			return false
		}
	}
	log.Warn("detail update retries exhausted", zap.Int("attempts", policy.MaxAttempts))
	return false
}

func (e *Executor) update(ctx context.Context, target Target, id, field, value string) (int, error) {
	if target == TargetCustomer {
		return e.desk.UpdateCustomerDetail(ctx, id, field, value)
	}
	return e.desk.UpdateOrganizationDetail(ctx, id, field, value)
}
