package services

import (
	"errors"
	"fmt"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutNotFound indicates the session or order does not exist.
	ErrCheckoutNotFound = errors.New("checkout: not found")
	// ErrCheckoutTerminal indicates the session is completed or canceled.
	ErrCheckoutTerminal = errors.New("checkout: session terminal")
	// ErrCheckoutNotReady indicates completion was attempted before the session was ready for payment.
	ErrCheckoutNotReady = errors.New("checkout: session not ready")
	// ErrCheckoutOutOfStock indicates a requested product is unknown or lacks stock.
	ErrCheckoutOutOfStock = errors.New("checkout: out of stock")
	// ErrCheckoutPaymentDeclined indicates the PSP declined the delegated token.
	ErrCheckoutPaymentDeclined = errors.New("checkout: payment declined")
	// ErrCheckoutConflict indicates a concurrent modification could not be resolved.
	ErrCheckoutConflict = errors.New("checkout: conflict")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// ValidationError is an invalid-input failure pointing at a specific request
// field. It matches ErrCheckoutInvalidInput under errors.Is.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("checkout: invalid input: %s", e.Message)
	}
	return fmt.Sprintf("checkout: invalid input: %s: %s", e.Param, e.Message)
}

// Is reports sentinel equivalence so handlers can branch with errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrCheckoutInvalidInput
}

func invalidParam(param, message string) error {
	return &ValidationError{Param: param, Message: message}
}
