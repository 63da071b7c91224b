package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncType
// ---------------------------------------------------------------------------

// SyncType selects which entity classes a run covers
type SyncType string

const (
	SyncTypeFull          SyncType = "full"
	SyncTypeOpportunities SyncType = "opportunities"
	SyncTypeContacts      SyncType = "contacts"
	SyncTypeAdvertisers   SyncType = "advertisers"
)

// IsValid checks if the sync type is valid
func (t SyncType) IsValid() bool {
	switch t {
	case SyncTypeFull, SyncTypeOpportunities, SyncTypeContacts, SyncTypeAdvertisers:
		return true
	default:
		return false
	}
}

// ParseSyncType parses a sync type, defaulting to full when empty
func ParseSyncType(s string) (SyncType, error) {
	if s == "" {
		return SyncTypeFull, nil
	}
	t := SyncType(s)
	if !t.IsValid() {
		return "", ErrInvalidSyncType
	}
	return t, nil
}

// EntityClasses returns the entity classes the sync type covers, in run order
func (t SyncType) EntityClasses() []EntityClass {
	switch t {
	case SyncTypeOpportunities:
		return []EntityClass{EntityOpportunities}
	case SyncTypeContacts:
		return []EntityClass{EntityContacts}
	case SyncTypeAdvertisers:
		return []EntityClass{EntityAdvertisers}
	default:
		return []EntityClass{EntityOpportunities, EntityContacts, EntityAdvertisers}
	}
}

// EntityClass names a kind of synced record
type EntityClass string

const (
	EntityOpportunities EntityClass = "opportunities"
	EntityContacts      EntityClass = "contacts"
	EntityAdvertisers   EntityClass = "advertisers"
)

// ---------------------------------------------------------------------------
// EntityResult
// ---------------------------------------------------------------------------

// EntityResult is the outcome of syncing one entity class
type EntityResult struct {
	Fetched int      `json:"fetched"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors"`
}

// Count returns the number of records written locally
func (r EntityResult) Count() int {
	return r.Created + r.Updated
}

// ErrorCount returns the number of recorded errors
func (r EntityResult) ErrorCount() int {
	return len(r.Errors)
}

// AddError appends an error message
func (r *EntityResult) AddError(err error) {
	r.Errors = append(r.Errors, err.Error())
}

// Merge adds the counters and errors of other into r
func (r *EntityResult) Merge(other EntityResult) {
	r.Fetched += other.Fetched
	r.Created += other.Created
	r.Updated += other.Updated
	r.Deleted += other.Deleted
	r.Errors = append(r.Errors, other.Errors...)
}

// ---------------------------------------------------------------------------
// SyncStatus
// ---------------------------------------------------------------------------

// SyncStatus is the overall status of a run
type SyncStatus string

const (
	SyncStatusCompleted           SyncStatus = "completed"
	SyncStatusCompletedWithErrors SyncStatus = "completed_with_errors"
	SyncStatusFailed              SyncStatus = "failed"
)

// DeriveSyncStatus computes the run status from totals
func DeriveSyncStatus(synced, errors int) SyncStatus {
	switch {
	case errors == 0:
		return SyncStatusCompleted
	case synced == 0:
		return SyncStatusFailed
	default:
		return SyncStatusCompletedWithErrors
	}
}

// ---------------------------------------------------------------------------
// SyncHistoryRecord
// ---------------------------------------------------------------------------

// SyncHistoryRecord is the append-only record of one orchestrator run
type SyncHistoryRecord struct {
	ID            uuid.UUID
	IntegrationID uuid.UUID
	CompanyID     uuid.UUID
	SyncType      SyncType
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        SyncStatus
	SyncedCount   int
	ErrorCount    int
	// Operations holds the per-entity breakdown
	Operations map[EntityClass]EntityResult
	// Error is set when the run failed before any entity was synced
	Error string
}

// NewSyncHistoryRecord builds the record for a finished run from its per-entity results
func NewSyncHistoryRecord(integ *Integration, syncType SyncType, startedAt time.Time, ops map[EntityClass]EntityResult) *SyncHistoryRecord {
	if ops == nil {
		ops = make(map[EntityClass]EntityResult)
	}
	synced, errCount := 0, 0
	for _, r := range ops {
		synced += r.Count()
		errCount += r.ErrorCount()
	}

	return &SyncHistoryRecord{
		ID:            uuid.New(),
		IntegrationID: integ.ID,
		CompanyID:     integ.CompanyID,
		SyncType:      syncType,
		StartedAt:     startedAt,
		FinishedAt:    time.Now(),
		Status:        DeriveSyncStatus(synced, errCount),
		SyncedCount:   synced,
		ErrorCount:    errCount,
		Operations:    ops,
	}
}

// NewFailedSyncHistoryRecord builds the record for a run aborted before any entity sync
func NewFailedSyncHistoryRecord(integ *Integration, syncType SyncType, startedAt time.Time, cause error) *SyncHistoryRecord {
	rec := NewSyncHistoryRecord(integ, syncType, startedAt, nil)
	rec.Status = SyncStatusFailed
	rec.ErrorCount = 1
	rec.Error = cause.Error()
	return rec
}

// SyncHistoryRepository stores sync history. There is no update method.
type SyncHistoryRepository interface {
	Create(ctx context.Context, rec *SyncHistoryRecord) error
	FindByIntegration(ctx context.Context, integrationID uuid.UUID, page, pageSize int) ([]SyncHistoryRecord, int64, error)
	DeleteByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error)
}
