package model

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Details       any    `json:"details,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeMissingField         = "MISSING_FIELD"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeEmptyCart            = "EMPTY_CART"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeInventoryUnavailable = "INVENTORY_UNAVAILABLE"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeItemNotFound         = "ITEM_NOT_FOUND"
	ErrCodeInvalidStatus        = "INVALID_STATUS"
	ErrCodeAlreadyPaid          = "ALREADY_PAID"
	ErrCodeUnsupportedPayment   = "UNSUPPORTED_PAYMENT_METHOD"
	ErrCodeMissingCart          = "MISSING_CART_ID"
	ErrCodePaymentGateway       = "PAYMENT_GATEWAY_ERROR"
	ErrCodeInvalidSignature     = "INVALID_SIGNATURE"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeReviewNotRequired    = "REVIEW_NOT_REQUIRED"
	ErrCodeOrderNumberExhausted = "ORDER_NUMBER_EXHAUSTED"
	ErrCodeNotOrderSeller       = "NOT_ORDER_SELLER"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrEmptyCart                = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrProductNotFound          = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrInvalidQuantity          = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrOrderNotFound            = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrItemNotFound             = NewDomainError(ErrCodeItemNotFound, "Order item not found")
	ErrInvalidStatus            = NewDomainError(ErrCodeInvalidStatus, "Unknown or disallowed status")
	ErrAlreadyPaid              = NewDomainError(ErrCodeAlreadyPaid, "Order is already marked as paid")
	ErrUnsupportedPaymentMethod = NewDomainError(ErrCodeUnsupportedPayment, "Payment method must be cod or online")
	ErrReviewNotRequired        = NewDomainError(ErrCodeReviewNotRequired, "Order is not flagged for review")
	ErrOrderNumberExhausted     = NewDomainError(ErrCodeOrderNumberExhausted, "Could not allocate a unique order number")
	ErrNotOrderSeller           = NewDomainError(ErrCodeNotOrderSeller, "Seller has no items in this order")
	ErrMissingCart              = NewDomainError(ErrCodeMissingCart, "X-Cart-ID header is required")
)

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// Add records a failed field. It returns the receiver for chaining.
func (e *ValidationError) Add(field, reason string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = reason
	return e
}

// Empty reports whether no fields were recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// InventoryError reports every cart line that cannot be fulfilled.
type InventoryError struct {
	Issues []LineIssue
}

func (e *InventoryError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	return "inventory unavailable: " + strings.Join(parts, "; ")
}
