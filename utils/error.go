package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// DependencyError rejects a delete while other rows still reference the
// target. The count is surfaced to the caller; nothing is ever cascaded.
type DependencyError struct {
	Resource   string
	References int64
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s has %d dependent record(s); delete is not allowed", e.Resource, e.References)
}

func NewDependencyError(resource string, references int64) error {
	return &DependencyError{Resource: resource, References: references}
}

func IsDependencyError(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
