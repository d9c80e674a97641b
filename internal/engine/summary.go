package engine

import (
	"github.com/roach88/racesms/internal/model"
)

// Disposition is what the engine did with one result.
type Disposition string

const (
	// Dispatched: the message was sent and a ledger record appended.
	Dispatched Disposition = "dispatched"
	// AlreadySent: the ledger already holds a sent record for the card.
	AlreadySent Disposition = "already_sent"
	// Duplicate: the card was already dispatched earlier in this pass.
	Duplicate Disposition = "duplicate"
	// Unreachable: no phone number resolved by card or by name.
	Unreachable Disposition = "unreachable"
	// NoMessage: the outcome produces no message. Nothing is ledgered.
	NoMessage Disposition = "no_message"
	// Degraded: no modem available, dispatch skipped.
	Degraded Disposition = "degraded"
	// NoCard: the result has no card, so it cannot be ledgered or sent.
	NoCard Disposition = "no_card"
	// Failed: composing or a transport call failed. Retried next run.
	Failed Disposition = "failed"
)

// Dispositions lists all dispositions in reporting order.
func Dispositions() []Disposition {
	return []Disposition{Dispatched, AlreadySent, Duplicate, Unreachable, NoMessage, Degraded, NoCard, Failed}
}

// Item is the per-result outcome of a pass.
type Item struct {
	Card        model.Card          `json:"card"`
	Name        string              `json:"name"`
	Outcome     model.Outcome       `json:"outcome"`
	Disposition Disposition         `json:"disposition"`
	Phone       string              `json:"phone,omitempty"`
	Text        string              `json:"text,omitempty"`
	State       model.DeliveryState `json:"state,omitempty"`
	MessageID   *int64              `json:"sms_id,omitempty"`
	Error       string              `json:"error,omitempty"`

	Err error `json:"-"`
}

// Summary reports one reconciliation pass.
type Summary struct {
	RunID    string `json:"run_id"`
	Degraded bool   `json:"degraded"`
	Items    []Item `json:"items"`
}

// Count returns how many items ended with the given disposition.
func (s *Summary) Count(d Disposition) int {
	n := 0
	for _, it := range s.Items {
		if it.Disposition == d {
			n++
		}
	}
	return n
}

// Counts returns the number of items per disposition, omitting zeros.
func (s *Summary) Counts() map[Disposition]int {
	counts := make(map[Disposition]int)
	for _, it := range s.Items {
		counts[it.Disposition]++
	}
	return counts
}

func (s *Summary) add(it Item) {
	if it.Err != nil {
		it.Error = it.Err.Error()
	}
	s.Items = append(s.Items, it)
}
