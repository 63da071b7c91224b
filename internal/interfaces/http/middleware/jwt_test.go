package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adinventory/backend/internal/infrastructure/auth"
	"github.com/adinventory/backend/internal/infrastructure/config"
	"github.com/adinventory/backend/internal/infrastructure/logger"
	"github.com/adinventory/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "test-issuer",
	})
}

func newAuthRouter(t *testing.T, svc *auth.JWTService, handler gin.HandlerFunc) *gin.Engine {
	t.Helper()
	router := gin.New()
	router.Use(JWTAuth(JWTMiddlewareConfig{
		Validator: svc,
		SkipPaths: []string{"/health"},
	}))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/protected", handler)
	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestJWTAuth_ValidToken(t *testing.T) {
	// Setup
	svc := newTestJWTService()
	companyID, userID := uuid.New(), uuid.New()
	token, err := svc.IssueAccessToken(companyID, userID, time.Hour)
	require.NoError(t, err)

	var gotCompany uuid.UUID
	var gotUser, logCompany, logUser string
	router := newAuthRouter(t, svc, func(c *gin.Context) {
		gotCompany, _ = GetCompanyID(c)
		gotUser = GetUserID(c)
		logCompany = logger.GetCompanyID(c.Request.Context())
		logUser = logger.GetUserID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	// Execute
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Verify
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, companyID, gotCompany)
	assert.Equal(t, userID.String(), gotUser)
	assert.Equal(t, companyID.String(), logCompany)
	assert.Equal(t, userID.String(), logUser)
}

func TestJWTAuth_Rejections(t *testing.T) {
	svc := newTestJWTService()
	expired, err := svc.IssueAccessToken(uuid.New(), uuid.New(), -time.Minute)
	require.NoError(t, err)
	otherIssuer, err := auth.NewJWTService(config.JWTConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "someone-else",
	}).IssueAccessToken(uuid.New(), uuid.New(), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"not a bearer", "Basic abc", dto.ErrCodeUnauthorized},
		{"empty bearer", BearerPrefix, dto.ErrCodeUnauthorized},
		{"garbage token", BearerPrefix + "not.a.jwt", dto.ErrCodeTokenInvalid},
		{"expired token", BearerPrefix + expired, dto.ErrCodeTokenExpired},
		{"wrong issuer", BearerPrefix + otherIssuer, dto.ErrCodeTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			router := newAuthRouter(t, svc, func(c *gin.Context) { called = true })

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, called)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}
}

func TestJWTAuth_SkipPaths(t *testing.T) {
	router := newAuthRouter(t, newTestJWTService(), func(c *gin.Context) {})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuth_CarriesRequestIDOnRejection(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), JWTAuth(DefaultJWTConfig(newTestJWTService())))
	router.GET("/protected", func(c *gin.Context) {})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", decodeError(t, w).RequestID)
}

func TestGetCompanyID_Unauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	id, ok := GetCompanyID(c)
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, id)
	assert.Empty(t, GetUserID(c))
	assert.Nil(t, GetJWTClaims(c))

	c.Set(JWTCompanyIDKey, uuid.Nil)
	_, ok = GetCompanyID(c)
	assert.False(t, ok)
}
