// Package retry defines the backoff policy used when pushing detail fields
// into the service-desk platform. The platform acknowledges entity creation
// before the entity is visible to its detail-field endpoints, so writes have
// to absorb an indexing lag rather than treat 404 as a hard failure.
package retry

import "time"

// Policy is a value object describing one retry discipline. The same shape is
// reused for organization and customer updates with different constants.
type Policy struct {
	// MaxAttempts bounds the write attempts, including the first one.
	MaxAttempts int

	// InitialDelay is slept once before the first attempt to absorb the
	// platform's indexing lag between entity creation and field visibility.
	InitialDelay time.Duration

	// NotFoundStep scales the backoff after a 404: attempt n sleeps
	// n * NotFoundStep before the next try.
	NotFoundStep time.Duration

	// RateLimitDelay is the fixed backoff after a 429.
	RateLimitDelay time.Duration

	// TransportDelay is the fixed backoff after a transport-level error.
	TransportDelay time.Duration
}

// NotFoundBackoff returns the sleep that follows a 404 on the given attempt
// (1-based).
func (p Policy) NotFoundBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * p.NotFoundStep
}

// Organization is the policy for organization detail writes. unit scales
// every delay; production callers pass time.Second, tests shrink it.
func Organization(unit time.Duration) Policy {
	return Policy{
		MaxAttempts:    3,
		InitialDelay:   unit,
		NotFoundStep:   unit * 3 / 2,
		RateLimitDelay: 5 * unit,
		TransportDelay: unit,
	}
}

// Customer is the policy for customer detail writes. Customer records take
// longer to index, so the budget is larger and the 404 backoff steeper.
func Customer(unit time.Duration) Policy {
	return Policy{
		MaxAttempts:    5,
		InitialDelay:   unit / 2,
		NotFoundStep:   2 * unit,
		RateLimitDelay: 5 * unit,
		TransportDelay: unit,
	}
}
