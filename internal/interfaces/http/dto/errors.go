package dto

import "net/http"

// Transport error codes. Ledger rule codes come from the domain errors and
// are passed through unchanged.
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeRequestTooLarge    = "REQUEST_TOO_LARGE"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeStorageFailure     = "STORAGE_FAILURE"
	ErrCodeIdempotencyReused  = "IDEMPOTENCY_KEY_REUSED"
)

// Domain error codes
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"

	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeInvalidInterest    = "INVALID_INTEREST"
	ErrCodeInvalidClient      = "INVALID_CLIENT"
	ErrCodeInvalidName        = "INVALID_NAME"
	ErrCodeInvalidEstado      = "INVALID_ESTADO"
	ErrCodeAlreadyPaid        = "ALREADY_PAID"
	ErrCodeExceedsOutstanding = "EXCEEDS_OUTSTANDING"
	ErrCodeAmountMismatch     = "AMOUNT_MISMATCH"
	ErrCodeBelowCollected     = "BELOW_COLLECTED"
	ErrCodeNoEligibleFiados   = "NO_ELIGIBLE_FIADOS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
// Malformed input is 400; a well-formed request the ledger refuses is 422.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeRequestTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeStorageUnavailable: http.StatusServiceUnavailable,
	ErrCodeStorageFailure:     http.StatusInternalServerError,
	ErrCodeIdempotencyReused:  http.StatusConflict,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidAmount:   http.StatusBadRequest,
	ErrCodeInvalidInterest: http.StatusBadRequest,
	ErrCodeInvalidClient:   http.StatusBadRequest,
	ErrCodeInvalidName:     http.StatusBadRequest,
	ErrCodeInvalidEstado:   http.StatusBadRequest,

	ErrCodeAlreadyPaid:        http.StatusUnprocessableEntity,
	ErrCodeExceedsOutstanding: http.StatusUnprocessableEntity,
	ErrCodeAmountMismatch:     http.StatusUnprocessableEntity,
	ErrCodeBelowCollected:     http.StatusUnprocessableEntity,
	ErrCodeNoEligibleFiados:   http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status for code.
// Unknown domain codes are business-rule rejections and map to 422.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}
