package integration

import (
	"context"
	"strings"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AsyncJobService is a stateless proxy for provider-side async jobs.
// Callers keep the job ID and decide their own poll cadence.
type AsyncJobService struct {
	integrations integration.IntegrationRepository
	registry     integration.AdapterRegistry
	credentials  integration.CredentialResolver
	archive      integration.JobResultArchive
	logger       *zap.Logger
}

// NewAsyncJobService creates a new AsyncJobService. archive may be nil.
func NewAsyncJobService(
	integrations integration.IntegrationRepository,
	registry integration.AdapterRegistry,
	credentials integration.CredentialResolver,
	archive integration.JobResultArchive,
	logger *zap.Logger,
) *AsyncJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncJobService{
		integrations: integrations,
		registry:     registry,
		credentials:  credentials,
		archive:      archive,
		logger:       logger,
	}
}

// Start validates the JobSpec, then asks the provider to start the job.
// An invalid spec fails before any lookup or network call.
func (s *AsyncJobService) Start(
	ctx context.Context,
	companyID uuid.UUID,
	integrationID uuid.UUID,
	spec integration.JobSpec,
) (*integration.AsyncJob, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "job", "start",
		telemetry.SpanAttrIntegrationID, integrationID.String(),
		telemetry.SpanAttrJobKind, string(spec.Kind),
	)
	defer span.End()

	integ, platform, cred, err := s.prepare(ctx, companyID, integrationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	job, err := platform.StartJob(ctx, integ, cred, spec)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	job.IntegrationID = integ.ID
	if job.Kind == "" {
		job.Kind = spec.Kind
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrJobID, job.ExternalJobID)
	telemetry.SetOK(span)

	s.logger.Info("Async job started",
		zap.String("integration_id", integ.ID.String()),
		zap.String("job_id", job.ExternalJobID),
		zap.String("job_kind", string(job.Kind)),
		zap.String("status", string(job.Status)),
	)

	s.archiveIfFinished(ctx, job)
	return job, nil
}

// Poll returns the current state of a job.
func (s *AsyncJobService) Poll(
	ctx context.Context,
	companyID uuid.UUID,
	integrationID uuid.UUID,
	jobID string,
) (*integration.AsyncJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, &integration.InvalidJobSpecError{Field: "job_id", Reason: "is required"}
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "job", "poll",
		telemetry.SpanAttrIntegrationID, integrationID.String(),
		telemetry.SpanAttrJobID, jobID,
	)
	defer span.End()

	integ, platform, cred, err := s.prepare(ctx, companyID, integrationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	job, err := platform.PollJob(ctx, integ, cred, jobID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	job.IntegrationID = integ.ID
	if job.ExternalJobID == "" {
		job.ExternalJobID = jobID
	}
	telemetry.AddEvent(span, "job.polled",
		"status", string(job.Status),
		"progress", job.Progress,
	)
	telemetry.SetOK(span)

	if job.Status.IsTerminal() {
		s.logger.Info("Async job settled",
			zap.String("integration_id", integ.ID.String()),
			zap.String("job_id", job.ExternalJobID),
			zap.String("status", string(job.Status)),
		)
	}

	s.archiveIfFinished(ctx, job)
	return job, nil
}

func (s *AsyncJobService) prepare(
	ctx context.Context,
	companyID uuid.UUID,
	integrationID uuid.UUID,
) (*integration.Integration, integration.ForecastPlatform, *integration.AccessCredential, error) {
	integ, err := loadIntegration(ctx, s.integrations, companyID, integrationID)
	if err != nil {
		return nil, nil, nil, err
	}
	platform, err := s.registry.ResolveForecastPlatform(integ.Provider)
	if err != nil {
		return nil, nil, nil, err
	}
	cred, err := s.credentials.Resolve(ctx, integ)
	if err != nil {
		return nil, nil, nil, err
	}
	return integ, platform, cred, nil
}

// archiveIfFinished stores a finished result. Failures are logged only.
func (s *AsyncJobService) archiveIfFinished(ctx context.Context, job *integration.AsyncJob) {
	if s.archive == nil || job.Status != integration.JobStatusFinished {
		return
	}
	if err := s.archive.Store(ctx, job); err != nil {
		s.logger.Warn("Failed to archive job result",
			zap.String("integration_id", job.IntegrationID.String()),
			zap.String("job_id", job.ExternalJobID),
			zap.Error(err),
		)
	}
}
