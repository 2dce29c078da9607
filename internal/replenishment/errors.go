package replenishment

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSupplier is logged when no supplier carries an item's category.
	// It is an engine outcome, not a failure: the decision still gets built.
	ErrNoSupplier = errors.New("no supplier found for category")

	// ErrCollaboratorUnavailable is matched by every UnavailableError.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// DataError reports a malformed or missing field on a single item, its sales
// window or a supplier. The item is skipped and the cycle continues.
type DataError struct {
	SKU    string
	Field  string
	Reason string
}

func (e *DataError) Error() string {
	if e.SKU == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("sku %s: invalid %s: %s", e.SKU, e.Field, e.Reason)
}

func newDataError(sku, field, format string, args ...interface{}) *DataError {
	return &DataError{SKU: sku, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UnavailableError wraps a failure of the catalog reader or decision sink.
// It escalates to the cycle and triggers backoff.
type UnavailableError struct {
	Collaborator string
	Err          error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrCollaboratorUnavailable
}

// Unavailable wraps err as an UnavailableError for collaborator.
func Unavailable(collaborator string, err error) error {
	if err == nil {
		return nil
	}
	return &UnavailableError{Collaborator: collaborator, Err: err}
}

// IsDataError reports whether err is (or wraps) a DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}
