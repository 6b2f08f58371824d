package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a mutation that references a missing record.
	ErrNotFound = errors.New("not found")
	// ErrInvalid reports input that fails validation.
	ErrInvalid = errors.New("invalid input")
	// ErrInsufficientFunds reports a debit larger than the account balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInUse reports a delete of a record that is still referenced.
	ErrInUse = errors.New("still referenced")
	// ErrNotLoaded is returned by mutations issued before Load.
	ErrNotLoaded = errors.New("ledger not loaded")
)

func notFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

func invalid(entity string, err error) error {
	return fmt.Errorf("%s: %w: %w", entity, ErrInvalid, err)
}

func inUse(entity, id, by, byID string) error {
	return fmt.Errorf("%s %q referenced by %s %q: %w", entity, id, by, byID, ErrInUse)
}
