package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrAuthExhausted signals that credential refresh failed repeatedly. The
// aggregator marks every session-dependent kind Failed for the cycle instead of
// retrying further.
var ErrAuthExhausted = errors.New("authentication attempts exhausted")

// ErrUnauthorized marks a credential rejected by the remote API
var ErrUnauthorized = errors.New("unauthorized")

// ErrPartialDrain wraps a pagination abort: the records obtained before the
// failure are still usable and the kind must be marked Partial, never silently
// truncated.
var ErrPartialDrain = errors.New("pagination drain aborted")

// StatusError is a non-2xx HTTP response from the control plane
type StatusError struct {
	Endpoint string
	Code     int
}

// Error returns the string representation of the error
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d on %s", e.Code, e.Endpoint)
}

// ErrClass buckets a remote call failure for retry-policy purposes
type ErrClass int

const (
	// ClassTransient covers timeouts, 5xx and rate-limit rejections; retried
	// with backoff within the cycle budget
	ClassTransient ErrClass = iota
	// ClassPermanent covers non-auth 4xx and malformed response schemas; the
	// kind is marked Failed until the next scheduled cycle
	ClassPermanent
	// ClassAuth covers rejected or exhausted credentials
	ClassAuth
)

// Classify maps an adapter or session error onto the retry taxonomy
func Classify(err error) ErrClass {
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrAuthExhausted) {
		return ClassAuth
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == 401 || statusErr.Code == 403:
			return ClassAuth
		case statusErr.Code == 429 || statusErr.Code >= 500:
			return ClassTransient
		default:
			return ClassPermanent
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassTransient
	}

	return ClassPermanent
}
