package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a lookup by id finds nothing
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// FieldError describes one invalid field of a request
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrValidation reports malformed or missing request fields. No state is changed.
type ErrValidation struct {
	Fields []FieldError
}

func (e *ErrValidation) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error
func (e *ErrValidation) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field failed
func (e *ErrValidation) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ErrInvalidStateTransition is returned when an operation is not allowed in the current lifecycle state
type ErrInvalidStateTransition struct {
	Resource string
	From     string
	To       string
}

func (e *ErrInvalidStateTransition) Error() string {
	resource := e.Resource
	if resource == "" {
		resource = "order"
	}
	return fmt.Sprintf("invalid %s state transition from %s to %s", resource, e.From, e.To)
}

// ErrAlreadyCompleted is returned when cancelling an order that has completed
type ErrAlreadyCompleted struct {
	OrderID string
}

func (e *ErrAlreadyCompleted) Error() string {
	return fmt.Sprintf("order %s is already completed", e.OrderID)
}

// ErrSupplierUnavailable wraps a failed or timed out supplier call
type ErrSupplierUnavailable struct {
	SupplierID string
	Operation  string
	Retryable  bool
	Cause      error
}

func (e *ErrSupplierUnavailable) Error() string {
	msg := fmt.Sprintf("supplier %s unavailable during %s", e.SupplierID, e.Operation)
	if e.Retryable {
		msg += " (retryable)"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ErrSupplierUnavailable) Unwrap() error {
	return e.Cause
}

// GroupFailure is one supplier group that could not be dispatched
type GroupFailure struct {
	SupplierID string `json:"supplier_id"`
	Reason     string `json:"reason"`
	Retryable  bool   `json:"retryable"`
}

// ErrPartialDispatch reports which supplier groups succeeded and which failed
// during order processing. Successful sub-orders are already committed.
type ErrPartialDispatch struct {
	OrderID   string
	Succeeded []string
	Failed    []GroupFailure
}

func (e *ErrPartialDispatch) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		ids = append(ids, f.SupplierID)
	}
	return fmt.Sprintf("order %s: %d supplier group(s) dispatched, %d failed [%s]",
		e.OrderID, len(e.Succeeded), len(e.Failed), strings.Join(ids, ", "))
}

// ErrUnsupportedDestination is returned when a supplier does not ship to a country
type ErrUnsupportedDestination struct {
	SupplierID string
	Country    string
}

func (e *ErrUnsupportedDestination) Error() string {
	return fmt.Sprintf("supplier %s does not ship to %s", e.SupplierID, e.Country)
}

// ErrConflict is returned when an optimistic update keeps losing to concurrent writers
type ErrConflict struct {
	Resource string
	ID       string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("concurrent update conflict on %s %s", e.Resource, e.ID)
}

// ErrDiscountRejected is returned when a discount code fails validation
type ErrDiscountRejected struct {
	Code   string
	Reason string
}

func (e *ErrDiscountRejected) Error() string {
	return fmt.Sprintf("discount code %q rejected: %s", e.Code, e.Reason)
}

func IsNotFound(err error) bool {
	var target *ErrNotFound
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ErrValidation
	return errors.As(err, &target)
}

func IsInvalidState(err error) bool {
	var target *ErrInvalidStateTransition
	return errors.As(err, &target)
}

func IsAlreadyCompleted(err error) bool {
	var target *ErrAlreadyCompleted
	return errors.As(err, &target)
}

func IsSupplierUnavailable(err error) bool {
	var target *ErrSupplierUnavailable
	return errors.As(err, &target)
}

func IsUnsupportedDestination(err error) bool {
	var target *ErrUnsupportedDestination
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ErrConflict
	return errors.As(err, &target)
}

// AsPartialDispatch extracts a partial dispatch report
func AsPartialDispatch(err error) (*ErrPartialDispatch, bool) {
	var target *ErrPartialDispatch
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AsDiscountRejected extracts a discount rejection
func AsDiscountRejected(err error) (*ErrDiscountRejected, bool) {
	var target *ErrDiscountRejected
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AsSupplierUnavailable extracts a supplier failure
func AsSupplierUnavailable(err error) (*ErrSupplierUnavailable, bool) {
	var target *ErrSupplierUnavailable
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsRetryable reports whether the error is a supplier failure worth retrying
func IsRetryable(err error) bool {
	target, ok := AsSupplierUnavailable(err)
	return ok && target.Retryable
}
