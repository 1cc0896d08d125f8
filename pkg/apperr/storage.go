package apperr

import (
	"errors"
	"strings"

	"github.com/platinummonkey/taskboard/pkg/storage"
)

// FromStorage classifies a persistence error. Missing documents become
// NotFound for resource, unique violations become Conflict, anything else
// is Internal with the cause kept for logging. Already classified errors
// pass through.
func FromStorage(err error, resource string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case storage.IsNotFound(err):
		return &Error{Kind: KindNotFound, Message: resource + " not found", Err: err}
	case storage.IsConflict(err):
		return &Error{Kind: KindConflict, Message: resource + " already exists", Err: err}
	}
	return Internal("failed to access "+strings.ToLower(resource), err)
}
