package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Card is a participant's SI card number, the unique per-participant identifier.
// The zero value means the card is unknown.
type Card int

// NoCard is the zero Card.
const NoCard Card = 0

// Valid reports whether the card identifies a participant.
func (c Card) Valid() bool {
	return c > 0
}

func (c Card) String() string {
	if !c.Valid() {
		return ""
	}
	return strconv.Itoa(int(c))
}

// ParseCard parses a card number. Empty input returns NoCard and no error.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoCard, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return NoCard, fmt.Errorf("invalid card %q: %w", s, err)
	}
	if n <= 0 {
		return NoCard, fmt.Errorf("invalid card %q: must be positive", s)
	}
	return Card(n), nil
}

// RosterRow is one line of the roster table (name, phone_number, card).
// Card is kept raw so the roster index can report malformed values.
type RosterRow struct {
	Name  string
	Phone string
	Card  string
}

// Result is one competitor result as reported by the result feed.
type Result struct {
	Card    Card
	Name    string
	Outcome Outcome
	// Elapsed is only meaningful when Outcome is OutcomeCompleted.
	Elapsed time.Duration
}

// Handle is the opaque message handle returned by a transport when a
// message is created. For ModemManager it is the SMS object path.
type Handle string

// MessageID returns the numeric message id encoded as the last path
// segment of the handle, if there is one.
func (h Handle) MessageID() (int64, bool) {
	s := string(h)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Record is one dispatch ledger entry.
//
// Records are created once per successful dispatch and never modified.
type Record struct {
	Card    Card
	Name    string
	Outcome Outcome
	Text    string
	// MessageID is the transport-assigned message number, nil if the
	// transport never exposed one.
	MessageID *int64
	State     DeliveryState

	// Seq, RunID and CreatedAt are populated by ledgers that track them.
	Seq       int64
	RunID     string
	CreatedAt time.Time
}

// Delivered reports whether the record represents a message the transport
// reported as sent. Delivered records are the skip signal for later runs.
func (r Record) Delivered() bool {
	return r.State.Delivered()
}

// Modem identifies a transport device, e.g. a ModemManager modem object path.
type Modem string
