package integration

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ---------------------------------------------------------------------------
// Stage
// ---------------------------------------------------------------------------

// Stage is the canonical pipeline stage of an opportunity
type Stage string

const (
	StageLead          Stage = "lead"
	StageQualification Stage = "qualification"
	StageProposal      Stage = "proposal"
	StageNegotiation   Stage = "negotiation"
	StageClosedWon     Stage = "closed_won"
	StageClosedLost    Stage = "closed_lost"
)

// IsValid checks if the stage is a canonical stage
func (s Stage) IsValid() bool {
	switch s {
	case StageLead, StageQualification, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost:
		return true
	default:
		return false
	}
}

// StageMapping translates provider stage strings to canonical stages.
// Keys are matched case-insensitively; unknown inputs resolve to Default.
type StageMapping struct {
	Default Stage
	table   map[string]Stage
}

// NewStageMapping builds a mapping table. An invalid default falls back to StageLead.
func NewStageMapping(def Stage, entries map[string]Stage) StageMapping {
	if !def.IsValid() {
		def = StageLead
	}
	m := StageMapping{Default: def, table: make(map[string]Stage, len(entries))}
	for k, v := range entries {
		if v.IsValid() {
			m.table[normalizeStageKey(k)] = v
		}
	}
	return m
}

// WithOverrides returns a copy with per-integration entries applied on top.
// Override values that are not canonical stages are ignored.
func (m StageMapping) WithOverrides(overrides map[string]string) StageMapping {
	out := StageMapping{Default: m.Default, table: make(map[string]Stage, len(m.table)+len(overrides))}
	for k, v := range m.table {
		out.table[k] = v
	}
	for k, v := range overrides {
		if s := Stage(strings.ToLower(strings.TrimSpace(v))); s.IsValid() {
			out.table[normalizeStageKey(k)] = s
		}
	}
	if !out.Default.IsValid() {
		out.Default = StageLead
	}
	return out
}

// Resolve maps a raw provider stage. It never fails.
func (m StageMapping) Resolve(raw string) Stage {
	if s, ok := m.table[normalizeStageKey(raw)]; ok {
		return s
	}
	if m.Default.IsValid() {
		return m.Default
	}
	return StageLead
}

func normalizeStageKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ---------------------------------------------------------------------------
// Natural key
// ---------------------------------------------------------------------------

// NaturalKey normalises a business name for dedup: NFKC, trimmed,
// inner whitespace collapsed, case folded.
func NaturalKey(name string) string {
	s := norm.NFKC.String(name)
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}

// ---------------------------------------------------------------------------
// External records (as fetched from a provider)
// ---------------------------------------------------------------------------

// ExternalOpportunity is a deal/opportunity in provider-neutral shape
type ExternalOpportunity struct {
	ExternalID  string
	Name        string
	Stage       string
	Amount      decimal.Decimal
	Currency    string
	CloseDate   *time.Time
	AccountName string
}

// ExternalContact is a person record in provider-neutral shape
type ExternalContact struct {
	ExternalID  string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	CompanyName string
}

// DisplayName returns the name used as the contact's natural key
func (c ExternalContact) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name == "" {
		return strings.TrimSpace(c.Email)
	}
	return name
}

// ExternalAdvertiser is an account/company/brand in provider-neutral shape
type ExternalAdvertiser struct {
	ExternalID string
	Name       string
	Website    string
	Industry   string
}

// ---------------------------------------------------------------------------
// Canonical records
// ---------------------------------------------------------------------------

// CanonicalRecord holds the fields shared by all reconciled records
type CanonicalRecord struct {
	ID                       uuid.UUID
	CompanyID                uuid.UUID
	Name                     string
	NaturalKey               string
	Source                   Provider
	ExternalID               string
	DerivedFromIntegrationID uuid.UUID
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func newCanonicalRecord(integ *Integration, name, externalID string) CanonicalRecord {
	now := time.Now()
	return CanonicalRecord{
		ID:                       uuid.New(),
		CompanyID:                integ.CompanyID,
		Name:                     strings.TrimSpace(name),
		NaturalKey:               NaturalKey(name),
		Source:                   integ.Provider,
		ExternalID:               externalID,
		DerivedFromIntegrationID: integ.ID,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
}

func (r *CanonicalRecord) touch(integ *Integration, name, externalID string) {
	r.Name = strings.TrimSpace(name)
	if externalID != "" {
		r.ExternalID = externalID
	}
	r.DerivedFromIntegrationID = integ.ID
	r.UpdatedAt = time.Now()
}

// CanonicalOpportunity is the local representation of a deal
type CanonicalOpportunity struct {
	CanonicalRecord
	Stage          Stage
	RawStage       string
	Amount         decimal.Decimal
	Currency       string
	CloseDate      *time.Time
	AdvertiserID   *uuid.UUID
	AdvertiserName string
}

// NewCanonicalOpportunity creates a local opportunity from an external one
func NewCanonicalOpportunity(integ *Integration, ext ExternalOpportunity, stage Stage) *CanonicalOpportunity {
	o := &CanonicalOpportunity{CanonicalRecord: newCanonicalRecord(integ, ext.Name, ext.ExternalID)}
	o.apply(ext, stage)
	return o
}

// Apply updates the opportunity in place from a fresh external copy
func (o *CanonicalOpportunity) Apply(integ *Integration, ext ExternalOpportunity, stage Stage) {
	o.touch(integ, ext.Name, ext.ExternalID)
	o.apply(ext, stage)
}

func (o *CanonicalOpportunity) apply(ext ExternalOpportunity, stage Stage) {
	o.Stage = stage
	o.RawStage = ext.Stage
	o.Amount = ext.Amount
	o.Currency = ext.Currency
	o.CloseDate = ext.CloseDate
	o.AdvertiserName = strings.TrimSpace(ext.AccountName)
}

// CanonicalContact is the local representation of a person
type CanonicalContact struct {
	CanonicalRecord
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	CompanyName string
}

// NewCanonicalContact creates a local contact from an external one
func NewCanonicalContact(integ *Integration, ext ExternalContact) *CanonicalContact {
	c := &CanonicalContact{CanonicalRecord: newCanonicalRecord(integ, ext.DisplayName(), ext.ExternalID)}
	c.apply(ext)
	return c
}

// Apply updates the contact in place
func (c *CanonicalContact) Apply(integ *Integration, ext ExternalContact) {
	c.touch(integ, ext.DisplayName(), ext.ExternalID)
	c.apply(ext)
}

func (c *CanonicalContact) apply(ext ExternalContact) {
	c.FirstName = ext.FirstName
	c.LastName = ext.LastName
	c.Email = strings.ToLower(strings.TrimSpace(ext.Email))
	c.Phone = ext.Phone
	c.CompanyName = ext.CompanyName
}

// CanonicalAdvertiser is the local representation of an account/brand
type CanonicalAdvertiser struct {
	CanonicalRecord
	Website  string
	Industry string
}

// NewCanonicalAdvertiser creates a local advertiser from an external one
func NewCanonicalAdvertiser(integ *Integration, ext ExternalAdvertiser) *CanonicalAdvertiser {
	a := &CanonicalAdvertiser{CanonicalRecord: newCanonicalRecord(integ, ext.Name, ext.ExternalID)}
	a.Website = ext.Website
	a.Industry = ext.Industry
	return a
}

// Apply updates the advertiser in place. Empty incoming fields keep existing values.
func (a *CanonicalAdvertiser) Apply(integ *Integration, ext ExternalAdvertiser) {
	a.touch(integ, ext.Name, ext.ExternalID)
	if ext.Website != "" {
		a.Website = ext.Website
	}
	if ext.Industry != "" {
		a.Industry = ext.Industry
	}
}

// ---------------------------------------------------------------------------
// CanonicalRepository
// ---------------------------------------------------------------------------

// CanonicalRepository stores reconciled records. Find methods return ErrRecordNotFound.
type CanonicalRepository interface {
	FindOpportunity(ctx context.Context, companyID uuid.UUID, naturalKey string, source Provider) (*CanonicalOpportunity, error)
	SaveOpportunity(ctx context.Context, o *CanonicalOpportunity) error

	FindContact(ctx context.Context, companyID uuid.UUID, naturalKey string, source Provider) (*CanonicalContact, error)
	SaveContact(ctx context.Context, c *CanonicalContact) error

	FindAdvertiser(ctx context.Context, companyID uuid.UUID, naturalKey string, source Provider) (*CanonicalAdvertiser, error)
	SaveAdvertiser(ctx context.Context, a *CanonicalAdvertiser) error
	// MergeAdvertiser inserts the advertiser unless one with the same
	// (company, natural key) exists from any source, and returns the stored row.
	MergeAdvertiser(ctx context.Context, a *CanonicalAdvertiser) (*CanonicalAdvertiser, bool, error)

	DeleteByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error)
}
