package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSequenceConflict indicates the chosen sequence number was already consumed on chain.
	ErrSequenceConflict = errors.New("sequence conflict")
	// ErrRejected indicates the chain refused the payload.
	ErrRejected = errors.New("chain rejected transaction")
	// ErrInsufficientBudget indicates the payer's capacity budget cannot cover the call.
	ErrInsufficientBudget = errors.New("insufficient capacity budget")
	// ErrMalformedCall indicates a request that can never be turned into a valid call.
	ErrMalformedCall = errors.New("malformed call")
	// ErrChainUnavailable indicates a transport level failure talking to the chain client.
	ErrChainUnavailable = errors.New("chain client unavailable")
	// ErrStorageUnavailable indicates the content store or a durable queue could not be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrAllocatorUnavailable indicates the coordination store could not be reached.
	ErrAllocatorUnavailable = errors.New("sequence allocator unavailable")
	// ErrMissingSuccessEvent indicates an included transaction lacks the event its type must emit.
	ErrMissingSuccessEvent = errors.New("missing success event")
	// ErrMalformedEvent indicates an event or stored outcome could not be decoded.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrDeliveryFailed indicates a callback endpoint did not accept an outcome.
	ErrDeliveryFailed = errors.New("callback delivery failed")
	// ErrRetriesExhausted indicates an item was deferred more times than allowed.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrNotFound indicates a missing record.
	ErrNotFound = errors.New("not found")
)

// ErrorKind classifies pipeline failures for retry policy.
type ErrorKind string

const (
	// ErrorUnknown is used when error is nil or not classified.
	ErrorUnknown ErrorKind = "unknown"
	// ErrorRetryable indicates a transient infrastructure failure.
	ErrorRetryable ErrorKind = "retryable"
	// ErrorConflict indicates a sequence race that should be retried later.
	ErrorConflict ErrorKind = "conflict"
	// ErrorTerminal indicates a failure that retrying cannot fix.
	ErrorTerminal ErrorKind = "terminal"
)

// ClassifyError maps an error returned anywhere in the pipeline to its retry class.
func ClassifyError(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorUnknown
	case errors.Is(err, ErrSequenceConflict):
		return ErrorConflict
	case errors.Is(err, ErrMalformedCall),
		errors.Is(err, ErrRejected),
		errors.Is(err, ErrInsufficientBudget),
		errors.Is(err, ErrMissingSuccessEvent),
		errors.Is(err, ErrMalformedEvent),
		errors.Is(err, ErrRetriesExhausted):
		return ErrorTerminal
	case errors.Is(err, ErrChainUnavailable),
		errors.Is(err, ErrAllocatorUnavailable),
		errors.Is(err, ErrStorageUnavailable),
		errors.Is(err, ErrDeliveryFailed),
		errors.Is(err, context.DeadlineExceeded):
		return ErrorRetryable
	default:
		return ErrorUnknown
	}
}

// DeferredError asks the queue to make an item eligible again after Delay.
type DeferredError struct {
	Err   error
	Delay time.Duration
}

// Defer wraps err so a stage worker requeues the item after delay.
func Defer(err error, delay time.Duration) error {
	return &DeferredError{Err: err, Delay: delay}
}

func (e *DeferredError) Error() string {
	if e.Err == nil {
		return "deferred"
	}
	return "deferred: " + e.Err.Error()
}

func (e *DeferredError) Unwrap() error {
	return e.Err
}
