package parse

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var ErrFetchFailed = errors.New("could not fetch record from the backing store")
var ErrValidationFailed = errors.New("record failed validation")
var ErrNoRepository = errors.New("no repository configured")
var ErrInvalidJSON = errors.New("payload is not valid json")
var ErrClassAlreadyRegistered = errors.New("class is already registered")
var ErrClassNotRegistered = errors.New("class is not registered")
var ErrUnsupportedOperation = errors.New("operation is not supported by this runner")
var ErrBatchAborted = errors.New("batch aborted by an earlier failure")

// ValidationError collects per-field constraint failures for one record.
// The record itself is left untouched: its journal keeps the attempted
// values so the caller can correct them and retry.
type ValidationError struct {
	ClassName string
	Failures  map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for n := range e.Failures {
		names = append(names, n)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s is invalid:", e.ClassName)
	for _, n := range names {
		fmt.Fprintf(&sb, " %s %s;", n, e.Failures[n])
	}

	return strings.TrimSuffix(sb.String(), ";")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// FetchError wraps a failed full fetch. It matches ErrFetchFailed and
// keeps the repository's error reachable through the chain.
type FetchError struct {
	ClassName string
	ObjectID  string
	Cause     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("could not fetch %s %s: %s", e.ClassName, e.ObjectID, e.Cause)
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}
