package dto

import "net/http"

// Error codes. Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request error codes
const (
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound = "ERR_NOT_FOUND"
	ErrCodeConflict = "ERR_CONFLICT"
)

// Integration error codes
const (
	// ErrCodeSyncInProgress is returned while another run holds the integration lease
	ErrCodeSyncInProgress      = "ERR_SYNC_IN_PROGRESS"
	ErrCodeIntegrationDisabled = "ERR_INTEGRATION_DISABLED"
	ErrCodeUnsupportedProvider = "ERR_UNSUPPORTED_PROVIDER"
	ErrCodeInvalidJobSpec      = "ERR_INVALID_JOB_SPEC"
	ErrCodeInvalidSyncType     = "ERR_INVALID_SYNC_TYPE"
	ErrCodeNotPushed           = "ERR_NOT_PUSHED"
	ErrCodeMissingCredentials  = "ERR_MISSING_CREDENTIALS"
	// ErrCodeUpstreamAuth means the provider rejected the stored credentials
	ErrCodeUpstreamAuth = "ERR_UPSTREAM_AUTH"
	ErrCodeExternalAPI  = "ERR_EXTERNAL_API"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	ErrCodeSyncInProgress:      http.StatusConflict,
	ErrCodeIntegrationDisabled: http.StatusUnprocessableEntity,
	ErrCodeUnsupportedProvider: http.StatusBadRequest,
	ErrCodeInvalidJobSpec:      http.StatusBadRequest,
	ErrCodeInvalidSyncType:     http.StatusBadRequest,
	ErrCodeNotPushed:           http.StatusUnprocessableEntity,
	ErrCodeMissingCredentials:  http.StatusUnprocessableEntity,
	ErrCodeUpstreamAuth:        http.StatusBadGateway,
	ErrCodeExternalAPI:         http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
