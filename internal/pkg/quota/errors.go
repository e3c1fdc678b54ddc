package quota

import (
	"errors"
	"fmt"
)

// ErrStoreNotFound is returned when neither the internal id nor the shop domain resolves.
var ErrStoreNotFound = errors.New("store not found")

// StorageError wraps a failure of the datastore. It is transient from the caller's point
// of view; nothing in this package retries it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
