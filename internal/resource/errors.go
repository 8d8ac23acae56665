package resource

import (
	"fmt"
	"strconv"
)

// NotFoundError reports a missing record, either the one addressed by the
// request or one it references.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

func notFound(resource string, id int64) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: strconv.FormatInt(id, 10)}
}

// ConflictError reports a request that is well-formed but clashes with
// existing data: a duplicate unique field, an unavailable product, or an
// invalid relation.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func conflictf(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
