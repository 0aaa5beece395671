package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeVehicleNotFound          ErrorCode = "VEHICLE_NOT_FOUND"
	ErrCodeInvalidLeadCapacity      ErrorCode = "INVALID_LEAD_CAPACITY"
	ErrCodeInvalidMatchingSettings  ErrorCode = "INVALID_MATCHING_SETTINGS"
	ErrCodeInvalidJobInput          ErrorCode = "INVALID_JOB_INPUT"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseQueryFailed      ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeIndexingFailed           ErrorCode = "INDEXING_FAILED"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches on Code so callers can use errors.Is against a sentinel built
// with the same code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// BPMNError is what gets thrown back to the Zeebe engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func NewVehicleNotFoundError(vehicleID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeVehicleNotFound,
		Message:   "Vehicle not found",
		Details:   fmt.Sprintf("vehicleId: %s", vehicleID),
		Retryable: false,
		Metadata:  map[string]interface{}{"vehicleId": vehicleID},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidLeadCapacityError(salespersonID string, capacity int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidLeadCapacity,
		Message:   "Salesperson has a non-positive lead capacity",
		Details:   fmt.Sprintf("salespersonId: %s, maxLeadCapacity: %d", salespersonID, capacity),
		Retryable: false,
		Metadata:  map[string]interface{}{"salespersonId": salespersonID, "maxLeadCapacity": capacity},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidMatchingSettingsError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidMatchingSettings,
		Message:   "Matching settings are invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidJobInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidJobInput,
		Message:   "Job variables failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseQueryFailedError(query string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseQueryFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("query: %s, error: %s", query, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewQueryTimeoutError(query string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("query: %s", query),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewIndexingFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexingFailed,
		Message:   "Elasticsearch indexing failed",
		Details:   fmt.Sprintf("index: %s, error: %s", index, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// AsStandardError unwraps err looking for a *StandardError.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err wraps a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeVehicleNotFound:          "VEHICLE_NOT_FOUND",
	ErrCodeInvalidLeadCapacity:      "INVALID_LEAD_CAPACITY",
	ErrCodeInvalidMatchingSettings:  "MATCHING_MISCONFIGURED",
	ErrCodeInvalidJobInput:          "INVALID_JOB_INPUT",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeDatabaseQueryFailed:      "DATABASE_QUERY_FAILED",
	ErrCodeQueryTimeout:             "QUERY_TIMEOUT",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
	ErrCodeIndexingFailed:           "INDEXING_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeIndexingFailed:
		return 3
	case ErrCodeQueryTimeout:
		return 2
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VEHICLE") || strings.Contains(codeStr, "CAPACITY") || strings.Contains(codeStr, "MATCHING"):
		return "MATCHING"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INDEXING"):
		return "SEARCH"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
