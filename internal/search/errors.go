// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports bad construction or execution input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMalformedResponse reports a page missing its total count or entries.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrMissingContinuation reports a page that leaves results outstanding
	// but advertises no "next" link.
	ErrMissingContinuation = errors.New("missing continuation link")

	// ErrExecuteInProgress reports an Execute call that overlaps another on
	// the same session.
	ErrExecuteInProgress = errors.New("execute already in progress")
)

// TransportError wraps a failed page request. The core never retries; any
// retry policy lives in the Executor.
type TransportError struct {
	// URI is the request that failed.
	URI string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Message is the provider's error text, if any.
	Message string

	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("request %s: HTTP %d: %s", e.URI, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("request %s: HTTP %d", e.URI, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("request %s: %v", e.URI, e.Err)
	default:
		return fmt.Sprintf("request %s failed", e.URI)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// asTransportError returns err unchanged when it already carries a
// TransportError or reports an undecodable body, and wraps it otherwise.
func asTransportError(uri string, err error) error {
	var te *TransportError
	if errors.As(err, &te) || errors.Is(err, ErrMalformedResponse) {
		return err
	}
	return &TransportError{URI: uri, Err: err}
}
