package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/domain/shared"
	"github.com/adinventory/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", integration.ErrCampaignNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", integration.ErrMappingNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"cross company", integration.ErrCrossCompanyAccess, http.StatusForbidden, dto.ErrCodeForbidden},
		{"not pushed", integration.ErrNotPushed, http.StatusUnprocessableEntity, dto.ErrCodeNotPushed},
		{"invalid job spec", &integration.InvalidJobSpecError{Kind: integration.JobKindAvailability, Reason: "targeting required"}, http.StatusBadRequest, dto.ErrCodeInvalidJobSpec},
		{"missing credentials", &integration.MissingCredentialsError{Provider: integration.ProviderVTEX, Field: "app_token"}, http.StatusUnprocessableEntity, dto.ErrCodeMissingCredentials},
		{"authentication", &integration.AuthenticationError{Provider: integration.ProviderSalesforce, StatusCode: 400, Body: "invalid_grant"}, http.StatusBadGateway, dto.ErrCodeUpstreamAuth},
		{"external api", &integration.ExternalAPIError{Provider: integration.ProviderPipedrive, Operation: "list deals", StatusCode: 500}, http.StatusBadGateway, dto.ErrCodeExternalAPI},
		{"invalid response", integration.ErrInvalidResponse, http.StatusBadGateway, dto.ErrCodeExternalAPI},
		{"unsupported provider", integration.ErrUnsupportedProvider, http.StatusBadRequest, dto.ErrCodeUnsupportedProvider},
		{"sync in progress", integration.ErrSyncInProgress, http.StatusConflict, dto.ErrCodeSyncInProgress},
		{"disabled", integration.ErrIntegrationDisabled, http.StatusUnprocessableEntity, dto.ErrCodeIntegrationDisabled},
		{"domain error", shared.NewDomainError("INVALID_INPUT", "name is required"), http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message := classifyError(tt.err)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
			assert.NotEmpty(t, message)
		})
	}
}

func TestClassifyError_MessagePassthrough(t *testing.T) {
	err := &integration.ExternalAPIError{Provider: integration.ProviderKevel, Operation: "create flight", StatusCode: 422, Body: "bad goal"}

	_, _, message := classifyError(err)

	assert.Equal(t, err.Error(), message)
}
