package core

import (
	"errors"
	"fmt"
)

// InsufficientFundsCode is the machine-readable code of a rejected outflow.
const InsufficientFundsCode = "INSUFFICIENT_FUNDS"

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTypeInUse         = errors.New("type is referenced by entries")
)

// InsufficientFundsError is returned when an outflow exceeds the current
// balance of its type. It matches ErrInsufficientFunds with errors.Is.
type InsufficientFundsError struct {
	TypeRef   int64
	Balance   Money
	Requested Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for type %d: balance %s, requested %s",
		e.TypeRef, e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Code returns InsufficientFundsCode.
func (e *InsufficientFundsError) Code() string {
	return InsufficientFundsCode
}

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
