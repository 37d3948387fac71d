package errors

import (
	"fmt"
	"testing"
)

func TestValidationOrNil(t *testing.T) {
	verr := &ErrValidation{}
	if verr.OrNil() != nil {
		t.Fatal("expected nil without field errors")
	}
	verr.Add("items", "must contain at least one item")
	err := verr.OrNil()
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := err.Error(); got != "validation failed: items: must contain at least one item" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestWrappedClassification(t *testing.T) {
	partial := &ErrPartialDispatch{
		OrderID:   "order-1",
		Succeeded: []string{"sup-001"},
		Failed:    []GroupFailure{{SupplierID: "sup-002", Reason: "timeout", Retryable: true}},
	}
	unavailable := &ErrSupplierUnavailable{SupplierID: "sup-002", Operation: "dispatch", Retryable: true, Cause: partial}
	wrapped := fmt.Errorf("process order: %w", unavailable)

	if !IsSupplierUnavailable(wrapped) || !IsRetryable(wrapped) {
		t.Fatal("expected a retryable supplier failure")
	}
	got, ok := AsPartialDispatch(wrapped)
	if !ok || got.OrderID != "order-1" {
		t.Fatal("expected the partial dispatch report through the wrapping")
	}
	if IsNotFound(wrapped) || IsConflict(wrapped) {
		t.Fatal("unexpected classification")
	}

	if IsRetryable(&ErrSupplierUnavailable{SupplierID: "sup-001"}) {
		t.Fatal("non-retryable failure reported as retryable")
	}
}

func TestDiscountRejected(t *testing.T) {
	err := fmt.Errorf("apply: %w", &ErrDiscountRejected{Code: "SPRING30", Reason: "minimum order not met"})
	rejected, ok := AsDiscountRejected(err)
	if !ok || rejected.Code != "SPRING30" {
		t.Fatalf("expected a discount rejection, got %v", err)
	}
}
