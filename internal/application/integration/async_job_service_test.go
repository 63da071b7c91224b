package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type jobFixture struct {
	integrations *MockIntegrationRepository
	registry     *MockAdapterRegistry
	credentials  *MockCredentialResolver
	platform     *MockForecastPlatform
	archive      *MockJobResultArchive
	service      *AsyncJobService
	integ        *integration.Integration
	cred         *integration.AccessCredential
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()
	f := &jobFixture{
		integrations: new(MockIntegrationRepository),
		registry:     new(MockAdapterRegistry),
		credentials:  new(MockCredentialResolver),
		platform:     new(MockForecastPlatform),
		archive:      new(MockJobResultArchive),
		integ:        newTestIntegration(t, integration.ProviderKevel),
		cred:         &integration.AccessCredential{Provider: integration.ProviderKevel, AccessToken: "key"},
	}
	f.service = NewAsyncJobService(f.integrations, f.registry, f.credentials, f.archive, nil)
	return f
}

func (f *jobFixture) expectReady() {
	f.integrations.On("FindByID", mock.Anything, f.integ.ID).Return(f.integ, nil)
	f.registry.On("ResolveForecastPlatform", integration.ProviderKevel).Return(f.platform, nil)
	f.credentials.On("Resolve", mock.Anything, f.integ).Return(f.cred, nil)
}

func validForecastSpec() integration.JobSpec {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return integration.JobSpec{Kind: integration.JobKindForecast, StartDate: start, EndDate: start.AddDate(0, 0, 30)}
}

func TestAsyncJobStart_InvalidSpecFailsBeforeAnyCall(t *testing.T) {
	f := newJobFixture(t)

	_, err := f.service.Start(context.Background(), f.integ.CompanyID, f.integ.ID, integration.JobSpec{Kind: "inventory"})

	assert.ErrorIs(t, err, integration.ErrInvalidJobSpec)
	f.integrations.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	f.platform.AssertNotCalled(t, "StartJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAsyncJobStart_Enqueued(t *testing.T) {
	// Setup
	f := newJobFixture(t)
	f.expectReady()
	spec := validForecastSpec()
	f.platform.On("StartJob", mock.Anything, f.integ, f.cred, spec).
		Return(&integration.AsyncJob{ExternalJobID: "fc-1", Status: integration.JobStatusEnqueued}, nil)

	// Execute
	job, err := f.service.Start(context.Background(), f.integ.CompanyID, f.integ.ID, spec)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, "fc-1", job.ExternalJobID)
	assert.Equal(t, f.integ.ID, job.IntegrationID)
	assert.Equal(t, integration.JobKindForecast, job.Kind)
	f.archive.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
}

func TestAsyncJobStart_UnsupportedProvider(t *testing.T) {
	f := newJobFixture(t)
	f.integrations.On("FindByID", mock.Anything, f.integ.ID).Return(f.integ, nil)
	f.registry.On("ResolveForecastPlatform", integration.ProviderKevel).Return(nil, integration.ErrUnsupportedProvider)

	_, err := f.service.Start(context.Background(), f.integ.CompanyID, f.integ.ID, validForecastSpec())

	assert.ErrorIs(t, err, integration.ErrUnsupportedProvider)
	f.credentials.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestAsyncJobPoll_FinishedIsArchived(t *testing.T) {
	// Setup
	f := newJobFixture(t)
	f.expectReady()
	finished := &integration.AsyncJob{
		ExternalJobID: "fc-1",
		Status:        integration.JobStatusFinished,
		Progress:      100,
		Result:        map[string]any{"impressions": float64(12000)},
	}
	f.platform.On("PollJob", mock.Anything, f.integ, f.cred, "fc-1").Return(finished, nil)
	f.archive.On("Store", mock.Anything, finished).Return(errors.New("bucket unavailable"))

	// Execute
	job, err := f.service.Poll(context.Background(), f.integ.CompanyID, f.integ.ID, "fc-1")

	// Verify
	require.NoError(t, err, "archive failures never fail the poll")
	assert.Equal(t, integration.JobStatusFinished, job.Status)
	assert.Equal(t, f.integ.ID, job.IntegrationID)
	f.archive.AssertExpectations(t)
}

func TestAsyncJobPoll_Running(t *testing.T) {
	f := newJobFixture(t)
	f.expectReady()
	f.platform.On("PollJob", mock.Anything, f.integ, f.cred, "fc-2").
		Return(&integration.AsyncJob{Status: integration.JobStatusRunning, Progress: 40}, nil)

	job, err := f.service.Poll(context.Background(), f.integ.CompanyID, f.integ.ID, "fc-2")

	require.NoError(t, err)
	assert.Equal(t, "fc-2", job.ExternalJobID)
	assert.Equal(t, 40, job.Progress)
	f.archive.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
}

func TestAsyncJobPoll_EmptyJobID(t *testing.T) {
	f := newJobFixture(t)

	_, err := f.service.Poll(context.Background(), f.integ.CompanyID, f.integ.ID, " ")

	assert.ErrorIs(t, err, integration.ErrInvalidJobSpec)
}

func TestAsyncJobPoll_RecordsProgressAndSettledState(t *testing.T) {
	// Setup
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	core, logs := observer.New(zap.InfoLevel)
	f := newJobFixture(t)
	f.service = NewAsyncJobService(f.integrations, f.registry, f.credentials, nil, zap.New(core))
	f.expectReady()
	f.platform.On("PollJob", mock.Anything, f.integ, f.cred, "fc-3").
		Return(&integration.AsyncJob{Status: integration.JobStatusError, Error: "no inventory"}, nil).Once()
	f.platform.On("PollJob", mock.Anything, f.integ, f.cred, "fc-4").
		Return(&integration.AsyncJob{Status: integration.JobStatusRunning, Progress: 10}, nil).Once()

	// Execute
	_, err := f.service.Poll(context.Background(), f.integ.CompanyID, f.integ.ID, "fc-3")
	require.NoError(t, err)
	_, err = f.service.Poll(context.Background(), f.integ.CompanyID, f.integ.ID, "fc-4")
	require.NoError(t, err)

	// Verify
	spans := recorder.Ended()
	require.Len(t, spans, 2)
	for _, span := range spans {
		assert.Equal(t, "job.poll", span.Name())
		assert.Equal(t, codes.Ok, span.Status().Code)
		require.Len(t, span.Events(), 1)
		assert.Equal(t, "job.polled", span.Events()[0].Name)
	}

	settled := logs.FilterMessage("Async job settled").All()
	require.Len(t, settled, 1, "only terminal states are logged")
	assert.Equal(t, "fc-3", settled[0].ContextMap()["job_id"])
}
