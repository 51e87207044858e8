package service

import (
	"errors"
	"fmt"
)

// DataInvariantError marks inconsistent Student Records data: a missing
// primary subject, an instructor without a pennkey, an unparseable term. The
// affected request or row is reported and skipped; the surrounding job
// continues.
type DataInvariantError struct {
	Reason string
}

func (e *DataInvariantError) Error() string {
	return fmt.Sprintf("data invariant violated: %s", e.Reason)
}

// IsDataInvariant reports whether the error chain contains a
// DataInvariantError.
func IsDataInvariant(err error) bool {
	var invariant *DataInvariantError
	return errors.As(err, &invariant)
}
