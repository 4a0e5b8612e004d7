package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string identifier for a specific failure category.
// The prefix before the underscore names the owning module.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every layer.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeValidation         ErrorCode = "COMMON_005"
	ErrCodeSerialization      ErrorCode = "COMMON_006"
	ErrCodeDatabaseError      ErrorCode = "COMMON_007"
	ErrCodeCacheError         ErrorCode = "COMMON_008"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_009"
	ErrCodeTimeout            ErrorCode = "COMMON_010"
)

// Property module error codes.
const (
	ErrCodePropertyNotFound ErrorCode = "PROP_001"
	ErrCodeInvalidPIN       ErrorCode = "PROP_002"
)

// Comparable-matching module error codes.
const (
	ErrCodeInvalidLimit ErrorCode = "CMP_001"
)

// Analysis module error codes.
const (
	ErrCodeAnalysisNotFound ErrorCode = "ANL_001"
	ErrCodeAnalysisFailed   ErrorCode = "ANL_002"
)

// Data source error codes.
const (
	ErrCodeDataSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeDataSourceRateLimited ErrorCode = "SRC_002"
	ErrCodeDataSourceParseError  ErrorCode = "SRC_003"
)

// CodeOK is the sentinel returned by GetCode for a nil error.
const CodeOK = ErrorCode("OK")

// errorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var errorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,

	ErrCodePropertyNotFound: http.StatusNotFound,
	ErrCodeInvalidPIN:       http.StatusBadRequest,

	ErrCodeInvalidLimit: http.StatusBadRequest,

	ErrCodeAnalysisNotFound: http.StatusNotFound,
	ErrCodeAnalysisFailed:   http.StatusInternalServerError,

	ErrCodeDataSourceUnavailable: http.StatusServiceUnavailable,
	ErrCodeDataSourceRateLimited: http.StatusTooManyRequests,
	ErrCodeDataSourceParseError:  http.StatusBadGateway,
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
// Unknown codes map to 500.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether the code maps to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError reports whether the code maps to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode (e.g. "PROP").
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
