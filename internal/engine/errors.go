package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/racesms/internal/model"
)

// Step names the transport call that failed inside the dispatch boundary.
type Step string

const (
	StepCreate Step = "create"
	StepSend   Step = "send"
	StepState  Step = "state"
)

// DispatchError reports a transport failure for one participant.
// The participant is left un-ledgered and is retried by the next run.
type DispatchError struct {
	Step Step
	Card model.Card
	// Handle is set once the message was created.
	Handle model.Handle
	Err    error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Handle != "" {
		return fmt.Sprintf("%s sms for card %s (%s): %v", e.Step, e.Card, e.Handle, e.Err)
	}
	return fmt.Sprintf("%s sms for card %s: %v", e.Step, e.Card, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// IsDispatchError returns true if err wraps a DispatchError.
func IsDispatchError(err error) bool {
	var de *DispatchError
	return errors.As(err, &de)
}

// MaybeSent reports whether a failed dispatch may still have reached the
// participant: the message was created and the send call was issued.
func MaybeSent(err error) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Step == StepState
	}
	return false
}

// LedgerError wraps a ledger failure. Ledger failures end the pass because
// there is no safe state to reconcile against.
type LedgerError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}
