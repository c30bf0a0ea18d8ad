// Package apperr defines the error kinds raised by the account and
// transaction engine. Every failure the engine can produce is one of these
// values or types, so the service layer can map them exhaustively to status
// codes with errors.Is and errors.As.
package apperr

import (
	"errors"
	"fmt"
)

// Predefined sentinel errors for failures that carry no extra detail.
var (
	// ErrAuthentication is returned for unknown users and wrong passwords
	// alike; the two cases are deliberately indistinguishable to callers.
	ErrAuthentication = errors.New("incorrect username or password")
	// ErrInsufficientFunds indicates the account balance is below the item price.
	ErrInsufficientFunds = errors.New("insufficient coins to purchase the item")
	// ErrPartialFailure indicates a purchase commit failed after the debit and
	// the inventory grant were both written inside the transaction.
	ErrPartialFailure = errors.New("purchase could not be committed")
)

// ValidationError reports the first registration rule a candidate account
// violated. Field names the offending field; Reason is the client-facing message.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ConflictError reports a uniqueness violation on a registration field,
// either "email" or "username".
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("an account with this %s already exists", e.Field)
}

// NotFoundError reports that a referenced record does not exist.
// Entity is "account" or "item".
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}
