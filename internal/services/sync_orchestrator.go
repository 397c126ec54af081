package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"crm-sync-service/internal/config"
	"crm-sync-service/internal/event"
	"crm-sync-service/internal/format"
	"crm-sync-service/internal/models"
	"crm-sync-service/internal/pipedrive"
	"crm-sync-service/internal/rest"

	"github.com/google/uuid"
)

// SourceClient is the policy-administration API surface the orchestrator
// consumes.
type SourceClient interface {
	ListCustomerIDs(ctx context.Context) ([]int64, error)
	GetCustomerPolicies(ctx context.Context, oid int64) (*models.CustomerBundle, error)
	GetPolicy(ctx context.Context, policyOID int64) (*models.Policy, error)
}

// CRMMaintenanceStore covers the filter-based maintenance passes.
type CRMMaintenanceStore interface {
	ListDealsByFilter(ctx context.Context, filterID int) ([]pipedrive.DealSummary, error)
	UpdateDealStatus(ctx context.Context, dealID int64, status string) error
	UpdateDealCustomFields(ctx context.Context, dealID int64, fields map[string]any) error
	ResolveFieldOption(ctx context.Context, fieldKey, label string) (int64, bool, error)
}

// CheckpointStore persists the position in the customer feed so an
// interrupted run resumes instead of starting over.
type CheckpointStore interface {
	Load(ctx context.Context) (int, error)
	Save(ctx context.Context, position int) error
	Clear(ctx context.Context) error
}

// RunEventPublisher pushes run lifecycle events to the broker. Publishing is
// best-effort; a dead broker never blocks a sync.
type RunEventPublisher interface {
	PublishRunEvent(ctx context.Context, evt event.SyncRunEvent) error
}

// SyncStats tracks one process's run statistics.
type SyncStats struct {
	CustomersProcessed int64     `json:"customers_processed"`
	CustomersSkipped   int64     `json:"customers_skipped"`
	DealsCreated       int64     `json:"deals_created"`
	DealsUpdated       int64     `json:"deals_updated"`
	NotesUpserted      int64     `json:"notes_upserted"`
	DealsAutoClosed    int64     `json:"deals_auto_closed"`
	LastRunStarted     time.Time `json:"last_run_started"`
	LastRunFinished    time.Time `json:"last_run_finished"`
}

// OrchestratorDeps bundles the collaborators of a SyncOrchestrator.
// Checkpoints and Publisher are optional.
type OrchestratorDeps struct {
	Source      SourceClient
	Resolver    *EntityResolver
	Deals       *DealSynchronizer
	Notes       *NoteSynchronizer
	Classifier  *ClassificationService
	Reference   *ReferenceLoader
	Maintenance CRMMaintenanceStore
	Checkpoints CheckpointStore
	Publisher   RunEventPublisher
}

// SyncOrchestrator drives the per-customer pipeline: fetch policies,
// classify, resolve the entity once per customer, upsert the deal and its
// note slots. Customers are processed strictly one at a time; both external
// APIs enforce global rate limits that a serialized caller respects more
// predictably than a parallel pool would.
type SyncOrchestrator struct {
	source      SourceClient
	resolver    *EntityResolver
	deals       *DealSynchronizer
	notes       *NoteSynchronizer
	classifier  *ClassificationService
	reference   *ReferenceLoader
	crm         CRMMaintenanceStore
	checkpoints CheckpointStore
	publisher   RunEventPublisher

	cfg          config.SyncConfig
	defaultOwner int64

	mu    sync.RWMutex
	stats SyncStats

	now   func() time.Time
	sleep func(time.Duration)
}

func NewSyncOrchestrator(deps OrchestratorDeps, cfg config.SyncConfig, defaultOwner int64) *SyncOrchestrator {
	return &SyncOrchestrator{
		source:       deps.Source,
		resolver:     deps.Resolver,
		deals:        deps.Deals,
		notes:        deps.Notes,
		classifier:   deps.Classifier,
		reference:    deps.Reference,
		crm:          deps.Maintenance,
		checkpoints:  deps.Checkpoints,
		publisher:    deps.Publisher,
		cfg:          cfg,
		defaultOwner: defaultOwner,
		now:          time.Now,
		sleep:        time.Sleep,
	}
}

// WithClock replaces the time functions, for tests.
func (o *SyncOrchestrator) WithClock(now func() time.Time, sleep func(time.Duration)) *SyncOrchestrator {
	o.now = now
	o.sleep = sleep
	return o
}

// Stats returns a snapshot of the run statistics.
func (o *SyncOrchestrator) Stats() SyncStats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stats
}

// Run executes one full sync pass over the customer feed. Individual
// customer failures are logged and skipped; the pass is complete once every
// customer has been attempted, so the returned error only reflects failures
// that prevent the pass itself (feed fetch, cancellation).
func (o *SyncOrchestrator) Run(ctx context.Context) error {
	runID := uuid.NewString()

	o.mu.Lock()
	o.stats.LastRunStarted = o.now()
	o.mu.Unlock()
	o.publish(ctx, event.SyncRunEvent{RunID: runID, Type: event.RunStarted, Timestamp: o.now()})

	oids, err := o.source.ListCustomerIDs(ctx)
	if err != nil {
		o.publish(ctx, event.SyncRunEvent{RunID: runID, Type: event.RunFailed, Detail: err.Error(), Timestamp: o.now()})
		return fmt.Errorf("failed to fetch customer list: %w", err)
	}
	if len(oids) == 0 {
		slog.Info("No customer OIDs found", "run_id", runID)
		return nil
	}

	start := o.startPosition(ctx)
	if start < 1 {
		start = 1
	}
	if start > len(oids) {
		slog.Info("Start position beyond feed, nothing to do", "run_id", runID, "start", start, "total", len(oids))
		return nil
	}
	slog.Info("Customer feed ready", "run_id", runID, "total", len(oids), "start_from", start)

	for i := start - 1; i < len(oids); i++ {
		if err := ctx.Err(); err != nil {
			o.publish(ctx, event.SyncRunEvent{RunID: runID, Type: event.RunFailed, Detail: err.Error(), Timestamp: o.now()})
			return err
		}

		o.processCustomerWithRetry(ctx, runID, oids[i], i+1)
		o.saveCheckpoint(ctx, i+1)
		o.sleep(o.cfg.InterCustomerDelay)
	}

	o.clearCheckpoint(ctx)

	o.mu.Lock()
	o.stats.LastRunFinished = o.now()
	stats := o.stats
	o.mu.Unlock()

	slog.Info("Sync run complete",
		"run_id", runID,
		"customers_processed", stats.CustomersProcessed,
		"customers_skipped", stats.CustomersSkipped,
		"deals_created", stats.DealsCreated,
		"deals_updated", stats.DealsUpdated)
	o.publish(ctx, event.SyncRunEvent{
		RunID:              runID,
		Type:               event.RunCompleted,
		CustomersProcessed: stats.CustomersProcessed,
		CustomersSkipped:   stats.CustomersSkipped,
		Timestamp:          o.now(),
	})
	return nil
}

// processCustomerWithRetry applies the failure taxonomy: validation errors
// burn a small fixed budget before the customer is skipped; non-retryable
// API failures and exhausted throttling abandon the customer immediately;
// transport and unexpected errors retry the whole customer after an
// exponential delay, bounded so no customer can stall the batch forever.
func (o *SyncOrchestrator) processCustomerWithRetry(ctx context.Context, runID string, oid int64, seq int) {
	retryDelay := o.cfg.RetryBaseDelay
	validationAttempts := 0

	for attempt := 1; attempt <= o.cfg.MaxCustomerAttempts; attempt++ {
		err := o.safeProcessCustomer(ctx, oid, seq)
		if err == nil {
			o.mu.Lock()
			o.stats.CustomersProcessed++
			o.mu.Unlock()
			return
		}

		var validationErr *models.ValidationError
		var apiErr *rest.APIError
		var exhaustedErr *rest.ThrottleExhaustedError

		switch {
		case errors.As(err, &validationErr):
			validationAttempts++
			slog.Warn("Validation failure",
				"customer_oid", oid,
				"attempts_left", o.cfg.ValidationBudget-validationAttempts,
				"error", err)
			if validationAttempts >= o.cfg.ValidationBudget {
				o.skipCustomer(ctx, runID, oid, err)
				return
			}

		case errors.As(err, &apiErr):
			// Structural problem: the same payload will keep failing.
			o.skipCustomer(ctx, runID, oid, err)
			return

		case errors.As(err, &exhaustedErr):
			o.skipCustomer(ctx, runID, oid, err)
			return

		default:
			// Transport failures and anything unclassified: upstream
			// schema drift is the usual cause, so retry with backoff.
			slog.Error("Error processing customer", "customer_oid", oid, "attempt", attempt, "error", err)
		}

		if attempt == o.cfg.MaxCustomerAttempts {
			break
		}
		slog.Info("Retrying customer", "customer_oid", oid, "delay", retryDelay)
		o.sleep(retryDelay)
		retryDelay = min(retryDelay*2, o.cfg.RetryMaxDelay)
	}

	o.skipCustomer(ctx, runID, oid, fmt.Errorf("retry attempts exhausted"))
}

func (o *SyncOrchestrator) safeProcessCustomer(ctx context.Context, oid int64, seq int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing customer %d: %v", oid, r)
		}
	}()
	return o.processCustomer(ctx, oid, seq)
}

type scopedPolicy struct {
	policy models.Policy
	status models.DealStatus
}

func (o *SyncOrchestrator) processCustomer(ctx context.Context, oid int64, seq int) error {
	bundle, err := o.source.GetCustomerPolicies(ctx, oid)
	if err != nil {
		return err
	}

	today := o.now()
	var inScope []scopedPolicy
	for _, policy := range bundle.Policies {
		status, ok := o.classifier.Classify(today, policy)
		if !ok {
			slog.Info("Policy outside sync window",
				"customer_oid", oid,
				"policy_no", policy.Number,
				"end_date", policy.EndDate.Format(dateLayout))
			continue
		}
		inScope = append(inScope, scopedPolicy{policy: policy, status: status})
	}
	if len(inScope) == 0 {
		slog.Info("No policies in scope", "seq", seq, "customer_oid", oid)
		return nil
	}

	// The entity is resolved once per customer, not per policy.
	entityID, kind, err := o.resolver.Resolve(ctx, bundle.Customer, bundle.Address)
	if err != nil {
		return err
	}

	owner := o.defaultOwner
	if bundle.Customer.BrokerOwnerID > 0 {
		owner = bundle.Customer.BrokerOwnerID
	}

	ref, err := o.reference.Get(ctx)
	if err != nil {
		slog.Warn("Reference data unavailable, syncing without it", "error", err)
		ref = &ReferenceData{}
	}

	for _, item := range inScope {
		dealID, created, err := o.deals.Upsert(ctx, item.policy, bundle.Customer, entityID, kind, item.status, owner)
		if err != nil {
			return err
		}

		o.mu.Lock()
		if created {
			o.stats.DealsCreated++
		} else {
			o.stats.DealsUpdated++
		}
		o.mu.Unlock()

		if created {
			o.applySellerFields(ctx, dealID, item.policy.Number, ref)
		}

		if err := o.notes.Upsert(ctx, dealID, format.ObjectsMarker, format.PolicyObjects(item.policy.Objects), owner); err != nil {
			return err
		}
		if err := o.notes.Upsert(ctx, dealID, format.PaymentsMarker, format.PaymentSchedule(item.policy.Installments), owner); err != nil {
			return err
		}
		o.mu.Lock()
		o.stats.NotesUpserted += 2
		o.mu.Unlock()
	}

	return nil
}

func (o *SyncOrchestrator) skipCustomer(ctx context.Context, runID string, oid int64, cause error) {
	slog.Error("Skipping customer", "customer_oid", oid, "error", cause)
	o.mu.Lock()
	o.stats.CustomersSkipped++
	o.mu.Unlock()
	o.publish(ctx, event.SyncRunEvent{
		RunID:       runID,
		Type:        event.CustomerSkipped,
		CustomerOID: oid,
		Detail:      cause.Error(),
		Timestamp:   o.now(),
	})
}

// applySellerFields writes the seller and policy-attribute custom fields
// from reference data. Best-effort: a miss here is never worth failing the
// customer over.
func (o *SyncOrchestrator) applySellerFields(ctx context.Context, dealID int64, policyNumber string, ref *ReferenceData) {
	if ref.Empty() || policyNumber == models.MissingPolicyNumber {
		return
	}

	fields := make(map[string]any)
	if seller, ok := ref.SellerByPolicy[policyNumber]; ok {
		optionID, found, err := o.crm.ResolveFieldOption(ctx, pipedrive.FieldSeller, seller)
		if err != nil {
			slog.Warn("Failed to resolve seller option", "seller", seller, "error", err)
		} else if found {
			fields[pipedrive.FieldSeller] = optionID
		}
	}
	if attb, ok := ref.AttbByPolicy[policyNumber]; ok {
		fields[pipedrive.FieldPolicyOnAttb] = attb
	}
	if len(fields) == 0 {
		return
	}

	if err := o.crm.UpdateDealCustomFields(ctx, dealID, fields); err != nil {
		slog.Warn("Failed to apply seller fields", "deal_id", dealID, "policy_number", policyNumber, "error", err)
	}
}

// RunSellerBackfill walks the saved filter of deals missing a seller and
// fills seller/attribute fields from reference data. Policy numbers repeat
// across deals, so processed numbers are deduped within the pass.
func (o *SyncOrchestrator) RunSellerBackfill(ctx context.Context) error {
	ref, err := o.reference.Get(ctx)
	if err != nil {
		return fmt.Errorf("reference data unavailable: %w", err)
	}
	if ref.Empty() {
		slog.Info("No reference data configured, skipping seller backfill")
		return nil
	}

	deals, err := o.crm.ListDealsByFilter(ctx, o.cfg.NoSellerFilterID)
	if err != nil {
		return err
	}
	slog.Info("Deals missing seller fetched", "count", len(deals))

	seen := make(map[string]bool)
	for _, deal := range deals {
		if deal.PolicyNumber == "" || deal.PolicyNumber == models.MissingPolicyNumber {
			continue
		}
		if seen[deal.PolicyNumber] {
			slog.Info("Policy number already processed", "policy_number", deal.PolicyNumber)
			continue
		}
		seen[deal.PolicyNumber] = true

		o.applySellerFields(ctx, deal.ID, deal.PolicyNumber, ref)
		o.sleep(o.cfg.InterCustomerDelay)
	}
	return nil
}

// RunAutoClose walks the saved auto-close filter and moves deals whose
// policy is fully paid and already expired to won.
func (o *SyncOrchestrator) RunAutoClose(ctx context.Context) error {
	deals, err := o.crm.ListDealsByFilter(ctx, o.cfg.AutoCloseFilterID)
	if err != nil {
		return err
	}
	slog.Info("Auto-close candidates fetched", "count", len(deals))

	today := truncateToDay(o.now())
	for _, deal := range deals {
		policyOID, err := strconv.ParseInt(deal.PolicyOID, 10, 64)
		if err != nil || policyOID == 0 {
			continue
		}

		policy, err := o.source.GetPolicy(ctx, policyOID)
		if err != nil {
			slog.Warn("Failed to fetch policy for auto-close", "policy_oid", policyOID, "error", err)
			o.sleep(o.cfg.InterCustomerDelay)
			continue
		}

		switch {
		case !policy.IsFullyPaid():
			slog.Info("Not fully paid", "policy_oid", policyOID)
		case !truncateToDay(policy.EndDate).Before(today):
			slog.Info("Not expired", "policy_oid", policyOID)
		default:
			if err := o.crm.UpdateDealStatus(ctx, deal.ID, string(models.DealStatusWon)); err != nil {
				slog.Warn("Failed to auto-close deal", "deal_id", deal.ID, "error", err)
			} else {
				o.mu.Lock()
				o.stats.DealsAutoClosed++
				o.mu.Unlock()
			}
		}
		o.sleep(o.cfg.InterCustomerDelay)
	}
	return nil
}

// RunDaily is the weekday routine: full sync followed by seller backfill.
func (o *SyncOrchestrator) RunDaily(ctx context.Context) error {
	if err := o.Run(ctx); err != nil {
		return err
	}
	return o.RunSellerBackfill(ctx)
}

// RunMaintenance is the designated-weekday routine.
func (o *SyncOrchestrator) RunMaintenance(ctx context.Context) error {
	return o.RunAutoClose(ctx)
}

func (o *SyncOrchestrator) startPosition(ctx context.Context) int {
	start := o.cfg.StartFrom
	if o.checkpoints == nil {
		return start
	}

	position, err := o.checkpoints.Load(ctx)
	if err != nil {
		slog.Warn("Failed to load sync checkpoint", "error", err)
		return start
	}
	if position+1 > start {
		slog.Info("Resuming from checkpoint", "position", position)
		return position + 1
	}
	return start
}

func (o *SyncOrchestrator) saveCheckpoint(ctx context.Context, position int) {
	if o.checkpoints == nil {
		return
	}
	if err := o.checkpoints.Save(ctx, position); err != nil {
		slog.Warn("Failed to save sync checkpoint", "position", position, "error", err)
	}
}

func (o *SyncOrchestrator) clearCheckpoint(ctx context.Context) {
	if o.checkpoints == nil {
		return
	}
	if err := o.checkpoints.Clear(ctx); err != nil {
		slog.Warn("Failed to clear sync checkpoint", "error", err)
	}
}

func (o *SyncOrchestrator) publish(ctx context.Context, evt event.SyncRunEvent) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishRunEvent(ctx, evt); err != nil {
		slog.Warn("Failed to publish run event", "event_type", evt.Type, "error", err)
	}
}
