package transaction

import "errors"

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrInvalidStatus = errors.New("invalid transaction status")
	ErrSuperseded    = errors.New("transaction superseded")
)
