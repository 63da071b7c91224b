package integration

import (
	"context"
	"errors"
	"strings"

	"github.com/adinventory/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// Reconciler upserts externally fetched records into canonical storage.
// Lookup is always by natural key; external IDs are informational only.
type Reconciler struct {
	repo   integration.CanonicalRepository
	logger *zap.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(repo integration.CanonicalRepository, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{repo: repo, logger: logger}
}

// ---------------------------------------------------------------------------
// Opportunities
// ---------------------------------------------------------------------------

// ReconcileOpportunities upserts a batch of opportunities. A bad record is
// reported in Errors and never aborts the batch.
func (r *Reconciler) ReconcileOpportunities(
	ctx context.Context,
	integ *integration.Integration,
	batch []integration.ExternalOpportunity,
	stages integration.StageMapping,
) integration.EntityResult {
	result := integration.EntityResult{Fetched: len(batch)}

	for _, ext := range batch {
		created, err := r.upsertOpportunity(ctx, integ, ext, stages)
		if err != nil {
			result.AddError(err)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	return result
}

func (r *Reconciler) upsertOpportunity(
	ctx context.Context,
	integ *integration.Integration,
	ext integration.ExternalOpportunity,
	stages integration.StageMapping,
) (bool, error) {
	if strings.TrimSpace(ext.Name) == "" {
		return false, recordError(integration.EntityOpportunities, ext.ExternalID, "missing name")
	}
	stage := stages.Resolve(ext.Stage)

	existing, err := r.repo.FindOpportunity(ctx, integ.CompanyID, integration.NaturalKey(ext.Name), integ.Provider)
	if err != nil && !errors.Is(err, integration.ErrRecordNotFound) {
		return false, recordError(integration.EntityOpportunities, ext.ExternalID, err.Error())
	}

	created := existing == nil
	opp := existing
	if created {
		opp = integration.NewCanonicalOpportunity(integ, ext, stage)
	} else {
		opp.Apply(integ, ext, stage)
	}

	if name := strings.TrimSpace(ext.AccountName); name != "" {
		adv, err := r.mergeAdvertiser(ctx, integ, integration.ExternalAdvertiser{Name: name})
		if err != nil {
			// the opportunity itself is still saved
			r.logger.Warn("Failed to upsert parent advertiser",
				zap.String("integration_id", integ.ID.String()),
				zap.String("advertiser", name),
				zap.Error(err),
			)
		} else {
			id := adv.ID
			opp.AdvertiserID = &id
		}
	}

	if err := r.repo.SaveOpportunity(ctx, opp); err != nil {
		return false, recordError(integration.EntityOpportunities, ext.ExternalID, err.Error())
	}
	return created, nil
}

// ---------------------------------------------------------------------------
// Contacts
// ---------------------------------------------------------------------------

// ReconcileContacts upserts a batch of contacts.
func (r *Reconciler) ReconcileContacts(
	ctx context.Context,
	integ *integration.Integration,
	batch []integration.ExternalContact,
) integration.EntityResult {
	result := integration.EntityResult{Fetched: len(batch)}

	for _, ext := range batch {
		created, err := r.upsertContact(ctx, integ, ext)
		if err != nil {
			result.AddError(err)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	return result
}

func (r *Reconciler) upsertContact(ctx context.Context, integ *integration.Integration, ext integration.ExternalContact) (bool, error) {
	name := ext.DisplayName()
	if name == "" {
		return false, recordError(integration.EntityContacts, ext.ExternalID, "missing name and email")
	}

	existing, err := r.repo.FindContact(ctx, integ.CompanyID, integration.NaturalKey(name), integ.Provider)
	if err != nil && !errors.Is(err, integration.ErrRecordNotFound) {
		return false, recordError(integration.EntityContacts, ext.ExternalID, err.Error())
	}

	created := existing == nil
	contact := existing
	if created {
		contact = integration.NewCanonicalContact(integ, ext)
	} else {
		contact.Apply(integ, ext)
	}

	if err := r.repo.SaveContact(ctx, contact); err != nil {
		return false, recordError(integration.EntityContacts, ext.ExternalID, err.Error())
	}
	return created, nil
}

// ---------------------------------------------------------------------------
// Advertisers
// ---------------------------------------------------------------------------

// ReconcileAdvertisers upserts a batch of advertisers keyed by (company, name, source).
func (r *Reconciler) ReconcileAdvertisers(
	ctx context.Context,
	integ *integration.Integration,
	batch []integration.ExternalAdvertiser,
) integration.EntityResult {
	result := integration.EntityResult{Fetched: len(batch)}

	for _, ext := range batch {
		created, err := r.upsertAdvertiser(ctx, integ, ext)
		if err != nil {
			result.AddError(err)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	return result
}

func (r *Reconciler) upsertAdvertiser(ctx context.Context, integ *integration.Integration, ext integration.ExternalAdvertiser) (bool, error) {
	if strings.TrimSpace(ext.Name) == "" {
		return false, recordError(integration.EntityAdvertisers, ext.ExternalID, "missing name")
	}

	existing, err := r.repo.FindAdvertiser(ctx, integ.CompanyID, integration.NaturalKey(ext.Name), integ.Provider)
	if err != nil && !errors.Is(err, integration.ErrRecordNotFound) {
		return false, recordError(integration.EntityAdvertisers, ext.ExternalID, err.Error())
	}

	created := existing == nil
	adv := existing
	if created {
		adv = integration.NewCanonicalAdvertiser(integ, ext)
	} else {
		adv.Apply(integ, ext)
	}

	if err := r.repo.SaveAdvertiser(ctx, adv); err != nil {
		return false, recordError(integration.EntityAdvertisers, ext.ExternalID, err.Error())
	}
	return created, nil
}

// mergeAdvertiser is the idempotent side-record upsert keyed on (company, name).
// Repeated references to the same account resolve to the stored row.
func (r *Reconciler) mergeAdvertiser(ctx context.Context, integ *integration.Integration, ext integration.ExternalAdvertiser) (*integration.CanonicalAdvertiser, error) {
	adv, _, err := r.repo.MergeAdvertiser(ctx, integration.NewCanonicalAdvertiser(integ, ext))
	return adv, err
}

func recordError(entity integration.EntityClass, externalID, reason string) error {
	return &integration.RecordProcessingError{Entity: entity, ExternalID: externalID, Reason: reason}
}
