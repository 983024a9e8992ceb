package checkout

import (
	"errors"
	"fmt"
)

// ErrEmptyCart is returned when checkout runs against a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

// ErrNotFound is returned when an order does not exist or belongs to a
// different user. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("order not found")

// ErrNotCancellable is returned when an order has progressed past the point
// where the customer may cancel it.
var ErrNotCancellable = errors.New("order can no longer be cancelled")

// ErrNotPayable is returned when payment confirmation targets an order that
// is not awaiting payment.
var ErrNotPayable = errors.New("order is not awaiting payment")

// ValidationError reports a problem with the request content itself.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// PersistenceError wraps an infrastructure failure during checkout. Any
// reservation taken before the failure has already been handed back by the
// time the caller sees this.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
