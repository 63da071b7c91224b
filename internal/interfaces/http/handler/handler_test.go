package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	appintegration "github.com/adinventory/backend/internal/application/integration"
	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/interfaces/http/dto"
	"github.com/adinventory/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockSyncRunner struct {
	mock.Mock
}

func (m *mockSyncRunner) RunSync(ctx context.Context, companyID, integrationID uuid.UUID, syncType integration.SyncType) (*integration.SyncHistoryRecord, error) {
	args := m.Called(ctx, companyID, integrationID, syncType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncHistoryRecord), args.Error(1)
}

func (m *mockSyncRunner) ListHistory(ctx context.Context, companyID, integrationID uuid.UUID, page, pageSize int) ([]integration.SyncHistoryRecord, int64, error) {
	args := m.Called(ctx, companyID, integrationID, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]integration.SyncHistoryRecord), args.Get(1).(int64), args.Error(2)
}

type mockJobRunner struct {
	mock.Mock
}

func (m *mockJobRunner) Start(ctx context.Context, companyID, integrationID uuid.UUID, spec integration.JobSpec) (*integration.AsyncJob, error) {
	args := m.Called(ctx, companyID, integrationID, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.AsyncJob), args.Error(1)
}

func (m *mockJobRunner) Poll(ctx context.Context, companyID, integrationID uuid.UUID, jobID string) (*integration.AsyncJob, error) {
	args := m.Called(ctx, companyID, integrationID, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.AsyncJob), args.Error(1)
}

type mockDeleter struct {
	mock.Mock
}

func (m *mockDeleter) DeleteIntegration(ctx context.Context, companyID, integrationID uuid.UUID) (*appintegration.DeletionSummary, error) {
	args := m.Called(ctx, companyID, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.DeletionSummary), args.Error(1)
}

type mockCampaignPusher struct {
	mock.Mock
}

func (m *mockCampaignPusher) Push(ctx context.Context, companyID, campaignID, integrationID uuid.UUID) (*appintegration.PushResult, error) {
	args := m.Called(ctx, companyID, campaignID, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.PushResult), args.Error(1)
}

func (m *mockCampaignPusher) Toggle(ctx context.Context, companyID, campaignID, integrationID uuid.UUID, activate bool) (*appintegration.ToggleResult, error) {
	args := m.Called(ctx, companyID, campaignID, integrationID, activate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.ToggleResult), args.Error(1)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// withCompany stands in for JWTAuth
func withCompany(companyID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if companyID != uuid.Nil {
			c.Set(middleware.JWTCompanyIDKey, companyID)
		}
		c.Next()
	}
}

func newTestRouter(companyID uuid.UUID) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), withCompany(companyID))
	return router
}

func performRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeResponse decodes the envelope and re-decodes data into out
// rawEnvelope is dto.Response with the payload left undecoded
type rawEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *dto.ErrorInfo  `json:"error,omitempty"`
	Meta    *dto.Meta       `json:"meta,omitempty"`
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var raw rawEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return dto.Response{Success: raw.Success, Error: raw.Error, Meta: raw.Meta}
}
