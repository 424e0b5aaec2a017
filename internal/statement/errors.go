package statement

import (
	"errors"
	"fmt"
)

var (
	ErrUploadNotFound = errors.New("upload not found")
	ErrInvalidUpload  = errors.New("invalid upload")
)

type ErrorKind string

const (
	UnsupportedFormat ErrorKind = "unsupported_format"
	CorruptFile       ErrorKind = "corrupt_file"
	EmptyStatement    ErrorKind = "empty_statement"
)

// ParseError fails a whole file. Other files in the same run are unaffected.
type ParseError struct {
	Kind ErrorKind
	Bank Bank
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s statement: %s", e.Bank, e.Kind)
	}

	return fmt.Sprintf("%s statement: %s: %v", e.Bank, e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErr(kind ErrorKind, bank Bank, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Bank: bank, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether err is a ParseError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ParseError

	return errors.As(err, &pe) && pe.Kind == kind
}
