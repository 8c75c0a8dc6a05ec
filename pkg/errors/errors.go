package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrLoanNotFound      = errors.New("loan not found")
	ErrClientNotFound    = errors.New("client not found")
	ErrIPAddressNotFound = errors.New("ip address not found")
	ErrIPAddressMismatch = errors.New("ip address does not match the loan")
	ErrLoanRejected      = errors.New("loan rejected")
	ErrConcurrentUpdate  = errors.New("loan was modified concurrently")
	ErrLoanLocked        = errors.New("loan is locked by another operation")
	ErrInvalidRequest    = errors.New("invalid request")
)

// Kind classifies why an operation was refused
type Kind string

const (
	KindStructuralInvalid        Kind = "StructuralInvalid"
	KindRiskRejected             Kind = "RiskRejected"
	KindNotFound                 Kind = "NotFound"
	KindIPMismatch               Kind = "IPMismatch"
	KindExtensionCeilingExceeded Kind = "ExtensionCeilingExceeded"
)

// Reason names a single failed check
type Reason string

const (
	ReasonFaultyIPAddress          Reason = "faulty-ip-address"
	ReasonFaultyDuration           Reason = "faulty-loan-duration"
	ReasonFaultyAmount             Reason = "faulty-amount"
	ReasonDailyVolumeExceeded      Reason = "daily-volume-exceeded"
	ReasonHighRiskWindow           Reason = "high-risk-window"
	ReasonExtensionCeilingExceeded Reason = "extension-ceiling-exceeded"
)

// Violation is one named failure collected while checking a loan
type Violation struct {
	Kind    Kind   `json:"kind"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// BusinessError represents a business logic error
type BusinessError struct {
	Code       string
	Message    string
	Violations []Violation
	Err        error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// HasReason reports whether the error carries a violation with the given reason
func (e *BusinessError) HasReason(reason Reason) bool {
	for _, v := range e.Violations {
		if v.Reason == reason {
			return true
		}
	}
	return false
}

// Reasons lists the violation reasons in the order they were collected
func (e *BusinessError) Reasons() []Reason {
	reasons := make([]Reason, 0, len(e.Violations))
	for _, v := range e.Violations {
		reasons = append(reasons, v.Reason)
	}
	return reasons
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// AsBusinessError unwraps err into a *BusinessError if it is one
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// Error codes
const (
	ErrCodeLoanNotFound      = "LOAN_NOT_FOUND"
	ErrCodeClientNotFound    = "CLIENT_NOT_FOUND"
	ErrCodeIPAddressNotFound = "IP_ADDRESS_NOT_FOUND"
	ErrCodeIPAddressMismatch = "IP_ADDRESS_MISMATCH"
	ErrCodeLoanRejected      = "LOAN_REJECTED"
	ErrCodeConcurrentUpdate  = "CONCURRENT_UPDATE"
	ErrCodeLoanLocked        = "LOAN_LOCKED"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeCacheError        = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapClientNotFound(key string) *BusinessError {
	return NewBusinessError(
		ErrCodeClientNotFound,
		fmt.Sprintf("Client with key %s not found", key),
		ErrClientNotFound,
	)
}

func WrapIPAddressNotFound(value string) *BusinessError {
	return NewBusinessError(
		ErrCodeIPAddressNotFound,
		fmt.Sprintf("IP address %s is not registered", value),
		ErrIPAddressNotFound,
	)
}

func WrapIPAddressMismatch(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeIPAddressMismatch,
		fmt.Sprintf("Loan with ID %s was registered under a different IP address than the one supplied", loanID),
		ErrIPAddressMismatch,
	)
}

// WrapLoanRejected reports every collected violation at once
func WrapLoanRejected(violations []Violation) *BusinessError {
	messages := make([]string, 0, len(violations))
	for _, v := range violations {
		messages = append(messages, string(v.Reason))
	}
	be := NewBusinessError(
		ErrCodeLoanRejected,
		fmt.Sprintf("Loan rejected: %s", strings.Join(messages, ", ")),
		ErrLoanRejected,
	)
	be.Violations = violations
	return be
}

func WrapConcurrentUpdate(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrentUpdate,
		fmt.Sprintf("Loan with ID %s was modified by another request", loanID),
		ErrConcurrentUpdate,
	)
}

func WrapLoanLocked(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanLocked,
		fmt.Sprintf("Loan with ID %s is being modified by another request", loanID),
		ErrLoanLocked,
	)
}

func WrapInvalidRequest(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidRequest,
		"invalid request",
		errors.Join(ErrInvalidRequest, err),
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
