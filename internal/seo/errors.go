package seo

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups for unknown schedule or submission IDs.
// Returned to the caller directly; no state changes.
var ErrNotFound = errors.New("not found")

// ErrNotCancellable is returned by Cancel when the record is already
// processing or terminal.
var ErrNotCancellable = errors.New("record is not cancellable")

// ValidationError rejects a malformed crawl request at Submit time.
// Nothing is persisted when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FetchErrorKind classifies fetch failures.
type FetchErrorKind string

// Fetch failure kinds.
const (
	FetchTimeout    FetchErrorKind = "timeout"
	FetchDNS        FetchErrorKind = "dns"
	FetchHTTPStatus FetchErrorKind = "http_status"
	FetchParse      FetchErrorKind = "parse"
	FetchNetwork    FetchErrorKind = "network"
)

// FetchError wraps a failed fetch attempt. Fetch errors are absorbed by the
// worker and recorded on the submission; they are never retried automatically.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchHTTPStatus {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a store failure so callers can distinguish an
// unavailable backend from a bad request.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
