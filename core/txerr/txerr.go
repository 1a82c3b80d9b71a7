// Package txerr defines the two error classes the validator distinguishes:
// invalid transactions, which are rejected with a user-visible message, and
// internal errors, which are retriable.
package txerr

import (
	"errors"
	"fmt"
)

// InvalidTransaction marks a transaction as semantically wrong. The message is
// surfaced to the client verbatim and no state is mutated.
type InvalidTransaction struct {
	Msg string
}

func (e *InvalidTransaction) Error() string { return e.Msg }

// InternalError marks an environmental failure. The validator treats it as
// retriable.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return e.Msg }

// Invalid builds an InvalidTransaction with a fixed message.
func Invalid(msg string) error {
	return &InvalidTransaction{Msg: msg}
}

// Invalidf builds an InvalidTransaction with a formatted message.
func Invalidf(format string, args ...interface{}) error {
	return &InvalidTransaction{Msg: fmt.Sprintf(format, args...)}
}

// Internal builds an InternalError with a fixed message.
func Internal(msg string) error {
	return &InternalError{Msg: msg}
}

// Internalf builds an InternalError with a formatted message.
func Internalf(format string, args ...interface{}) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

// IsInvalid reports whether err is an InvalidTransaction.
func IsInvalid(err error) bool {
	var inv *InvalidTransaction
	return errors.As(err, &inv)
}

// IsInternal reports whether err is an InternalError.
func IsInternal(err error) bool {
	var internal *InternalError
	return errors.As(err, &internal)
}
