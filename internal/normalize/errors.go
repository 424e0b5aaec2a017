package normalize

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrBadAmount       = errors.New("bad amount")
	ErrBadDate         = errors.New("bad date")
	ErrEmpty           = errors.New("empty value")
)

// RowError explains why one statement row was skipped.
type RowError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
