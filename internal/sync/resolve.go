package sync

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Outcome tags how an organization resolution concluded.
type Outcome int

const (
	// OutcomeCreated means the create call was accepted and a fresh identity returned.
	OutcomeCreated Outcome = iota
	// OutcomeFound means creation conflicted and the existing identity was discovered.
	OutcomeFound
	// OutcomeNotFound means creation conflicted but no exact match exists —
	// an inconsistent platform state, not a normal race.
	OutcomeNotFound
	// OutcomeAPIError means an unexpected status or transport failure.
	OutcomeAPIError
)

// Resolution is the result of the two-step create-or-find protocol.
type Resolution struct {
	Outcome Outcome
	ID      string
	Status  int
}

// orgPageSize is the fixed page size for the search-by-name fallback.
const orgPageSize = 50

// Resolver owns the create-or-find logic for organizations and customers
// and the service-desk linking that follows organization resolution.
type Resolver struct {
	desk     Desk
	deskKeys []string
	logger   *zap.Logger
}

func NewResolver(desk Desk, deskKeys []string, logger *zap.Logger) *Resolver {
	return &Resolver{desk: desk, deskKeys: deskKeys, logger: logger}
}

// ResolveOrganization returns a stable platform identity for the account
// name: attempt create, and on conflict fall back to an exact-name search
// over the paginated listing. At most one organization may exist per name;
// the resolver never creates a duplicate.
func (r *Resolver) ResolveOrganization(ctx context.Context, name string) Resolution {
	name = strings.TrimSpace(name)
	log := r.logger.With(zap.String("organization", name))

	id, status, err := r.desk.CreateOrganization(ctx, name)
	if err != nil {
		log.Error("organization create failed", zap.Error(err))
		return Resolution{Outcome: OutcomeAPIError}
	}

	switch status {
	case http.StatusCreated:
		log.Info("organization created", zap.String("org_id", id))
		return Resolution{Outcome: OutcomeCreated, ID: id, Status: status}
	case http.StatusBadRequest, http.StatusConflict:
		if foundID, ok := r.findOrganization(ctx, name); ok {
			log.Info("organization already exists", zap.String("org_id", foundID))
			return Resolution{Outcome: OutcomeFound, ID: foundID, Status: status}
		}
		// The platform rejected the create as a duplicate but the listing has
		// no exact match; surface it rather than treating it as a race.
		log.Error("organization create conflicted but no exact name match exists", zap.Int("status", status))
		return Resolution{Outcome: OutcomeNotFound, Status: status}
	default:
		log.Error("organization create rejected", zap.Int("status", status))
		return Resolution{Outcome: OutcomeAPIError, Status: status}
	}
}

// findOrganization paginates the full listing until a case-sensitive exact
// name match is found or the last page is reached.
func (r *Resolver) findOrganization(ctx context.Context, name string) (string, bool) {
	start := 0
	for {
		page, err := r.desk.ListOrganizations(ctx, start, orgPageSize)
		if err != nil {
			r.logger.Error("organization listing failed", zap.String("organization", name), zap.Error(err))
			return "", false
		}
		for _, org := range page.Values {
			if org.Name == name {
				return org.ID, true
			}
		}
		if page.IsLastPage {
			return "", false
		}
		start = page.Start + page.Limit
	}
}

// LinkServiceDesks links the organization to every configured desk key.
// Failures are independent per key and never abort resolution: a 404 means
// the desk key does not exist in this site and is benign.
func (r *Resolver) LinkServiceDesks(ctx context.Context, orgID string) {
	for _, key := range r.deskKeys {
		status, err := r.desk.AddOrganizationToDesk(ctx, key, orgID)
		if err != nil {
			r.logger.Warn("service desk link failed", zap.String("desk", key), zap.String("org_id", orgID), zap.Error(err))
			continue
		}
		if status != http.StatusNoContent && status != http.StatusNotFound {
			r.logger.Warn("service desk link rejected", zap.String("desk", key), zap.String("org_id", orgID), zap.Int("status", status))
		}
	}
}

// ResolveCustomer returns a stable platform identity for a (name, email)
// pair: attempt create, and on conflict recover the existing identity via a
// directory search filtered to an exact case-insensitive email match. Every
// failure is soft — the contact is skipped, siblings are unaffected.
func (r *Resolver) ResolveCustomer(ctx context.Context, name, email string) (string, bool) {
	log := r.logger.With(zap.String("email", email))

	id, status, err := r.desk.CreateCustomer(ctx, name, email)
	if err != nil {
		log.Warn("customer create failed", zap.Error(err))
		return "", false
	}

	switch status {
	case http.StatusCreated:
		log.Info("customer created", zap.String("customer_id", id))
		return id, true
	case http.StatusBadRequest, http.StatusConflict:
		users, err := r.desk.SearchUsers(ctx, email)
		if err != nil {
			log.Warn("user directory search failed", zap.Error(err))
			return "", false
		}
		for _, u := range users {
			if strings.EqualFold(u.EmailAddress, email) {
				log.Info("customer already exists", zap.String("customer_id", u.AccountID))
				return u.AccountID, true
			}
		}
		log.Warn("customer conflicted but no exact email match in directory")
		return "", false
	default:
		log.Warn("customer create rejected", zap.Int("status", status))
		return "", false
	}
}
