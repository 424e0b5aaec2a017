package matching

import (
	"fmt"

	"github.com/google/uuid"
)

// DocumentError reports a document left out of a match pass.
type DocumentError struct {
	DocumentID uuid.UUID
	Err        error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s: %v", e.DocumentID, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}
