// Package engine implements the reconciliation pass that turns competition
// results into at most one SMS per participant.
//
// ARCHITECTURE:
//
// Single Sequential Worker:
// Results are processed strictly one at a time, in feed order. The transport
// is a single shared modem with no concurrent-send guarantee, so no two
// dispatches ever overlap.
//
// Per-Result Flow:
//  1. Skip if the ledger already holds a sent record for the card
//  2. Resolve a phone number (card first, then name)
//  3. Compose the message; outcomes without a message are skipped
//  4. Skip dispatch entirely in degraded mode (no modem)
//  5. Create, send, settle, query state - one failure boundary
//  6. Append the ledger record with the observed state
//
// Every step yields an Item with a Disposition instead of an error, so one
// participant's failure never aborts the pass. Only ledger load/append
// failures end a pass early.
//
// IDEMPOTENCE:
//
// The ledger is read once before the pass and appended to after each
// dispatch. A clean re-run sends nothing new. A crash between send and
// append leaves the card un-ledgered, so the next run sends again:
// at-least-once under crash, at-most-once under clean operation.
//
// Cancellation is honoured between results only. A result that reached
// step 5 runs to completion on a context detached from cancellation.
package engine
