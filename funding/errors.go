/*
errors.go - Closed error taxonomy for the funding engine

PURPOSE:
  Every fallible operation in this package returns one of the error kinds
  below, never an ad hoc string. Callers decide retry behavior from the
  kind alone:
    - Authorization / NotFound / InsufficientFunds: don't retry until
      preconditions change; no side effects occurred
    - EntityBusy: retry freely, another transfer holds the entity lock
    - TransferRejected: the rail declined and the local mutation was rolled
      back; retry after fixing the cause
    - TransferIndeterminate: the rail's state is unknown; the local mutation
      was NOT rolled back; never retry before reconciling against the rail
    - Storage: the durable store failed mid-sequence; partial effects were
      rolled back

USAGE:
  Sentinel errors work with errors.Is(); structured errors carry context
  and unwrap to their sentinel:

    if errors.Is(err, funding.ErrInsufficientFunds) { ... }
    var stuck *funding.IndeterminateError
    if errors.As(err, &stuck) { reconcile(stuck.Token) }

SEE ALSO:
  - coordinator.go: Produces these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package funding

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnauthorized is returned when the caller is not the record owner.
	ErrUnauthorized = errors.New("caller is not the record owner")

	// ErrNotFound is returned when a campaign or provider id is unknown.
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientFunds is returned when a debit exceeds the local
	// balance. Checked before any external call is attempted.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrEntityBusy is returned when the target entity is locked by an
	// in-flight external transfer. Requests are rejected, never queued.
	ErrEntityBusy = errors.New("entity busy with an in-flight transfer")

	// ErrTransferRejected is returned when the rail explicitly declined.
	// Any optimistic local mutation has been rolled back.
	ErrTransferRejected = errors.New("transfer rejected by rail")

	// ErrTransferIndeterminate is returned when the rail call's outcome is
	// unknown. The optimistic mutation is NOT rolled back; the outcome must
	// be verified against the rail's own record before any retry.
	ErrTransferIndeterminate = errors.New("transfer outcome indeterminate")

	// ErrStorage is returned when the durable store fails during an atomic
	// sequence. All partial effects have been rolled back.
	ErrStorage = errors.New("storage failure")

	// ErrNegativeAmount is returned when parsing a negative token string.
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrSubUnitPrecision is returned when a token string is finer than one e8s.
	ErrSubUnitPrecision = errors.New("amount has sub-e8s precision")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AuthorizationError reports an ownership check failure.
// Guaranteed to be produced before any state change.
type AuthorizationError struct {
	Resource string
	Caller   Identity
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("unauthorized: caller %q does not own %s", e.Caller, e.Resource)
}

func (e *AuthorizationError) Unwrap() error { return ErrUnauthorized }

// NotFoundError reports an unknown campaign or provider id.
type NotFoundError struct {
	Kind string // "campaign" or "provider"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	Resource  string
	Available Tokens
	Requested Tokens
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on %s: available %d e8s, requested %d e8s",
		e.Resource, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// BusyError reports a lock-contention rejection.
type BusyError struct {
	Kind string
	ID   string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("%s %q is busy with an in-flight transfer, retry later", e.Kind, e.ID)
}

func (e *BusyError) Unwrap() error { return ErrEntityBusy }

// RejectedError surfaces the rail's decline reason verbatim.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transfer rejected by rail: %s", e.Reason)
}

func (e *RejectedError) Unwrap() error { return ErrTransferRejected }

// IndeterminateError marks a stuck transfer. Token identifies the rail call
// for out-of-band reconciliation; Journal is the stuck journal entry id.
type IndeterminateError struct {
	Reason  string
	Token   string
	Journal string
}

func (e *IndeterminateError) Error() string {
	return fmt.Sprintf("transfer outcome indeterminate (%s): verify token %s against the rail before retrying", e.Reason, e.Token)
}

func (e *IndeterminateError) Unwrap() error { return ErrTransferIndeterminate }

// StorageError wraps a store failure that aborted an atomic sequence.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorage }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the same call may succeed if simply retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEntityBusy)
}

// IsClientError returns true if the error is due to the caller's input or
// identity and no side effects occurred.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrSubUnitPrecision)
}

// RequiresReconciliation returns true if the error left a transfer in the
// stuck state and the rail must be consulted before any retry.
func RequiresReconciliation(err error) bool {
	return errors.Is(err, ErrTransferIndeterminate)
}
