package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes reported to callers.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeInternal          = "INTERNAL_ERROR"
)

// Reasons refine a code without changing the wire contract.
const (
	ReasonDuplicateName   = "duplicate_name"
	ReasonInvalidCategory = "invalid_category"
)

// FieldError describes a single offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    []FieldError
	Reason     string
	Err        error
}

// Sentinels usable with errors.Is. A sentinel with an empty Reason matches every error
// carrying the same code.
var (
	ErrValidation        = &DomainError{Code: CodeValidation}
	ErrNotFound          = &DomainError{Code: CodeNotFound}
	ErrForbidden         = &DomainError{Code: CodeForbidden}
	ErrInvalidTransition = &DomainError{Code: CodeInvalidTransition}
	ErrDuplicateName     = &DomainError{Code: CodeValidation, Reason: ReasonDuplicateName}
	ErrInvalidCategory   = &DomainError{Code: CodeValidation, Reason: ReasonInvalidCategory}
)

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError of the same kind.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details []FieldError) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details ...FieldError) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewDuplicateName(field string) error {
	err := NewDomainError(CodeValidation, "Category name already exists", http.StatusBadRequest,
		[]FieldError{{Field: field, Message: "must be unique"}})
	err.Reason = ReasonDuplicateName
	return err
}

func NewInvalidCategory() error {
	err := NewDomainError(CodeValidation, "Invalid category", http.StatusBadRequest,
		[]FieldError{{Field: "category_id", Message: "Category not found or inactive"}})
	err.Reason = ReasonInvalidCategory
	return err
}

func NewNotFound(resource string) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("Cannot transition from %s to %s", from, to), http.StatusConflict, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		if domainErr.HTTPStatus == 0 {
			domainErr.HTTPStatus = statusForCode(domainErr.Code)
		}
		return domainErr
	}
	return NewInternalError(err).(*DomainError)
}

func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
