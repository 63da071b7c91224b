package handler

import (
	"errors"
	"net/http"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/domain/shared"
	"github.com/adinventory/backend/internal/interfaces/http/dto"
)

// errorMapping binds a domain sentinel to an API error code
type errorMapping struct {
	target error
	code   string
}

// errorMappings is checked in order with errors.Is; typed provider errors
// unwrap to their sentinel so they match here too.
var errorMappings = []errorMapping{
	{integration.ErrCrossCompanyAccess, dto.ErrCodeForbidden},
	{integration.ErrNotFound, dto.ErrCodeNotFound},
	{integration.ErrSyncInProgress, dto.ErrCodeSyncInProgress},
	{integration.ErrIntegrationDisabled, dto.ErrCodeIntegrationDisabled},
	{integration.ErrUnsupportedProvider, dto.ErrCodeUnsupportedProvider},
	{integration.ErrInvalidJobSpec, dto.ErrCodeInvalidJobSpec},
	{integration.ErrInvalidSyncType, dto.ErrCodeInvalidSyncType},
	{integration.ErrNotPushed, dto.ErrCodeNotPushed},
	{integration.ErrMissingCredentials, dto.ErrCodeMissingCredentials},
	{integration.ErrAuthenticationFailed, dto.ErrCodeUpstreamAuth},
	{integration.ErrExternalAPI, dto.ErrCodeExternalAPI},
	{integration.ErrInvalidResponse, dto.ErrCodeExternalAPI},
}

// domainCodes maps shared.DomainError codes to API codes
var domainCodes = map[string]string{
	shared.CodeNotFound:     dto.ErrCodeNotFound,
	shared.CodeInvalidInput: dto.ErrCodeBadRequest,
	shared.CodeInvalidState: dto.ErrCodeConflict,
	shared.CodeForbidden:    dto.ErrCodeForbidden,
	shared.CodeUnauthorized: dto.ErrCodeUnauthorized,
}

// classifyError returns the status, code and client message for err.
// Unknown errors become a generic 500 so internals never leak.
func classifyError(err error) (int, string, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return dto.GetHTTPStatus(m.code), m.code, err.Error()
		}
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code, ok := domainCodes[domainErr.Code]
		if !ok {
			code = dto.ErrCodeBadRequest
		}
		return dto.GetHTTPStatus(code), code, domainErr.Message
	}

	return http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred"
}
