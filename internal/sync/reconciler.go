package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/globe-b2b/sf-jsm-sync/internal/salesforce"
	"github.com/globe-b2b/sf-jsm-sync/pkg/retry"
)

// AccountResult is the per-account outcome. The run never unwinds across the
// account boundary: whatever happened inside is carried here.
type AccountResult struct {
	Account           string
	OrgID             string
	FieldsSet         int
	CustomersAttached int
	Err               error
}

// Options tunes the reconciliation run.
type Options struct {
	DeskKeys     []string
	Workers      int
	RateLimitRPS float64

	// RetryUnit scales the field-update delays; production runs use a second.
	RetryUnit time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.RetryUnit <= 0 {
		o.RetryUnit = time.Second
	}
	return o
}

// Reconciler drives one account through the pipeline: resolve the
// organization, link desks, push organization fields, select contacts,
// resolve each as a customer, push customer fields, attach the customers.
type Reconciler struct {
	crm            CRM
	desk           Desk
	resolver       *Resolver
	exec           *Executor
	orgPolicy      retry.Policy
	customerPolicy retry.Policy
	logger         *zap.Logger
}

func NewReconciler(crm CRM, desk Desk, opts Options, logger *zap.Logger) *Reconciler {
	opts = opts.withDefaults()
	return &Reconciler{
		crm:            crm,
		desk:           desk,
		resolver:       NewResolver(desk, opts.DeskKeys, logger),
		exec:           NewExecutor(desk, logger),
		orgPolicy:      retry.Organization(opts.RetryUnit),
		customerPolicy: retry.Customer(opts.RetryUnit),
		logger:         logger,
	}
}

// ReconcileAccount runs the pipeline for one account. Failing to resolve the
// organization is terminal for the account; everything after that degrades
// field by field and contact by contact. A panic anywhere inside is
// recovered here and converted into the result error.
func (r *Reconciler) ReconcileAccount(ctx context.Context, acc salesforce.Account) (res AccountResult) {
	res.Account = acc.Name
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("account %q: panic: %v", acc.Name, p)
		}
	}()
	log := r.logger.With(zap.String("account", acc.Name), zap.String("account_id", acc.ID))
	log.Info("reconciling account")

	resolution := r.resolver.ResolveOrganization(ctx, acc.Name)
	if resolution.ID == "" {
		res.Err = fmt.Errorf("no organization resolved for %q", acc.Name)
		return res
	}
	res.OrgID = resolution.ID

	r.resolver.LinkServiceDesks(ctx, res.OrgID)

	for _, f := range orgFields(acc) {
		if r.exec.SetDetail(ctx, TargetOrganization, res.OrgID, f.Name, f.Value, r.orgPolicy) {
			res.FieldsSet++
		}
	}

	contacts, err := r.crm.AccountContacts(ctx, acc.ID)
	if err != nil {
		log.Error("contact fetch failed", zap.Error(err))
		res.Err = fmt.Errorf("fetch contacts for %q: %w", acc.Name, err)
		return res
	}

	var accountIDs []string
	for _, sc := range SelectContacts(contacts) {
		customerID, ok := r.resolver.ResolveCustomer(ctx, sc.Contact.Name, sc.Contact.Email)
		if !ok {
			continue
		}
		accountIDs = append(accountIDs, customerID)
		for _, f := range customerFields(sc) {
			if r.exec.SetDetail(ctx, TargetCustomer, customerID, f.Name, f.Value, r.customerPolicy) {
				res.FieldsSet++
			}
		}
	}

	if len(accountIDs) > 0 {
		if err := r.desk.AddUsersToOrganization(ctx, res.OrgID, accountIDs); err != nil {
			log.Warn("attaching customers to organization failed", zap.Error(err))
		} else {
			res.CustomersAttached = len(accountIDs)
		}
	}

	log.Info("account reconciled",
		zap.String("org_id", res.OrgID),
		zap.Int("fields_set", res.FieldsSet),
		zap.Int("customers_attached", res.CustomersAttached),
	)
	return res
}

// orgFields is the fixed, ordered list of organization detail fields. Empty
// source values stay in the list; the executor drops them without a call.
func orgFields(acc salesforce.Account) []Field {
	fields := []Field{
		{Name: "Salesforce Account Id", Value: acc.ID},
		{Name: "Company Name", Value: acc.Name},
		{Name: "Company Address", Value: acc.Address},
		{Name: "Industry", Value: acc.Industry},
		{Name: "Customer Type", Value: "Customer"},
	}
	if strings.TrimSpace(acc.OwnerName) != "" {
		fields = append(fields, Field{Name: "Account Manager", Value: acc.OwnerName})
	}
	return append(fields,
		Field{Name: "Sales Cluster", Value: acc.Cluster},
		Field{Name: "Sales Area", Value: acc.Area},
	)
}

func customerFields(sc SelectedContact) []Field {
	return []Field{
		{Name: "ROLE", Value: sc.Role},
		{Name: "Mobile Number", Value: sc.Phone},
		{Name: "Full Name", Value: sc.Contact.Name},
		{Name: "Email Address", Value: sc.Contact.Email},
	}
}
