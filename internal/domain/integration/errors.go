package integration

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	// Lookup errors
	ErrNotFound            = errors.New("integration: not found")
	ErrIntegrationNotFound = fmt.Errorf("%w: integration", ErrNotFound)
	ErrCampaignNotFound    = fmt.Errorf("%w: campaign", ErrNotFound)
	ErrMappingNotFound     = fmt.Errorf("%w: campaign mapping", ErrNotFound)
	ErrRecordNotFound      = fmt.Errorf("%w: canonical record", ErrNotFound)
	ErrCrossCompanyAccess  = errors.New("integration: resource belongs to another company")

	// Provider errors
	ErrUnsupportedProvider  = errors.New("integration: unsupported provider")
	ErrAuthenticationFailed = errors.New("integration: provider authentication failed")
	ErrMissingCredentials   = errors.New("integration: missing credentials")
	ErrExternalAPI          = errors.New("integration: external API request failed")
	ErrInvalidResponse      = errors.New("integration: invalid provider response")

	// Processing errors
	ErrRecordProcessing = errors.New("integration: record processing failed")
	ErrNotPushed        = errors.New("integration: campaign has not been pushed to this integration")
	ErrInvalidJobSpec   = errors.New("integration: invalid async job spec")

	// Lifecycle errors
	ErrIntegrationDisabled = errors.New("integration: integration is disabled")
	ErrSyncInProgress      = errors.New("integration: a sync is already running for this integration")
	ErrInvalidSyncType     = errors.New("integration: invalid sync type")
	ErrInvalidCompanyID    = errors.New("integration: invalid company ID")
	ErrInvalidProvider     = errors.New("integration: invalid provider")
)

// AuthenticationError is returned when a credential exchange is rejected.
// Body holds the provider's error payload as received.
type AuthenticationError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("integration: %s authentication failed (HTTP %d): %s", e.Provider, e.StatusCode, e.Body)
}

func (e *AuthenticationError) Unwrap() error { return ErrAuthenticationFailed }

// MissingCredentialsError is returned when an integration lacks a required secret.
type MissingCredentialsError struct {
	Provider Provider
	Field    string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("integration: %s credentials missing %q", e.Provider, e.Field)
}

func (e *MissingCredentialsError) Unwrap() error { return ErrMissingCredentials }

// ExternalAPIError is a failed provider call: either a non-2xx answer
// (StatusCode and Body set) or a transport failure (Err set, StatusCode 0).
type ExternalAPIError struct {
	Provider   Provider
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *ExternalAPIError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("integration: %s %s failed: %v", e.Provider, e.Operation, e.Err)
	}
	return fmt.Sprintf("integration: %s %s failed (HTTP %d): %s", e.Provider, e.Operation, e.StatusCode, e.Body)
}

// Unwrap exposes both ErrExternalAPI and the transport cause, so
// errors.Is(err, context.DeadlineExceeded) holds for timed-out calls.
func (e *ExternalAPIError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalAPI}
	}
	return []error{ErrExternalAPI, e.Err}
}

// RecordProcessingError describes one external record that could not be reconciled.
type RecordProcessingError struct {
	Entity     EntityClass
	ExternalID string
	Reason     string
}

func (e *RecordProcessingError) Error() string {
	if e.ExternalID == "" {
		return fmt.Sprintf("%s record: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s record %s: %s", e.Entity, e.ExternalID, e.Reason)
}

func (e *RecordProcessingError) Unwrap() error { return ErrRecordProcessing }

// InvalidJobSpecError is returned by JobSpec.Validate.
type InvalidJobSpecError struct {
	Kind   JobKind
	Field  string
	Reason string
}

func (e *InvalidJobSpecError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("integration: invalid %q job spec: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("integration: invalid %q job spec: %s %s", e.Kind, e.Field, e.Reason)
}

func (e *InvalidJobSpecError) Unwrap() error { return ErrInvalidJobSpec }
