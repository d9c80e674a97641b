package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/racesms/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, ev := range e.Trace {
		switch ev.Type {
		case EventResult:
			fmt.Fprintf(&buf, "  [%d] pass %d card %d %s: %s\n", i+1, ev.Pass, ev.Card, ev.Name, ev.Disposition)
		case EventSMS:
			fmt.Fprintf(&buf, "  [%d] pass %d sms to %s: %q\n", i+1, ev.Pass, ev.Phone, ev.Text)
		}
	}

	return buf.String()
}

// evaluate runs one assertion against a finished scenario.
func evaluate(a Assertion, result *Result, folded map[model.Card]model.Record) error {
	switch a.Type {
	case AssertSentCount:
		return assertSentCount(result, a)
	case AssertSentTo:
		return assertSentTo(result, a)
	case AssertNotSentTo:
		return assertNotSentTo(result, a)
	case AssertLedgerCount:
		return assertLedgerCount(result, a)
	case AssertLedgerState:
		return assertLedgerState(result, folded, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertSentCount(result *Result, a Assertion) error {
	got := len(result.Sends())
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertSentCount,
		Expected: fmt.Sprintf("%d messages sent", a.Count),
		Actual:   fmt.Sprintf("%d messages sent", got),
		Trace:    result.Trace,
	}
}

func assertSentTo(result *Result, a Assertion) error {
	for _, ev := range result.Sends() {
		if ev.Phone == a.Phone && strings.Contains(ev.Text, a.Contains) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertSentTo,
		Expected: fmt.Sprintf("message to %s containing %q", a.Phone, a.Contains),
		Actual:   "not found in trace",
		Trace:    result.Trace,
	}
}

func assertNotSentTo(result *Result, a Assertion) error {
	for _, ev := range result.Sends() {
		if ev.Phone == a.Phone {
			return &AssertionError{
				Type:     AssertNotSentTo,
				Expected: fmt.Sprintf("no message to %s", a.Phone),
				Actual:   fmt.Sprintf("sent %q", ev.Text),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func assertLedgerCount(result *Result, a Assertion) error {
	got := 0
	for _, row := range result.Ledger {
		if a.Card == 0 || row.Card == a.Card {
			got++
		}
	}
	if got == a.Count {
		return nil
	}
	scope := "ledger"
	if a.Card != 0 {
		scope = fmt.Sprintf("ledger for card %d", a.Card)
	}
	return &AssertionError{
		Type:     AssertLedgerCount,
		Expected: fmt.Sprintf("%s holds %d records", scope, a.Count),
		Actual:   fmt.Sprintf("%d records", got),
		Trace:    result.Trace,
	}
}

func assertLedgerState(result *Result, folded map[model.Card]model.Record, a Assertion) error {
	want, err := model.ParseDeliveryState(a.State)
	if err != nil {
		return err
	}
	rec, ok := folded[model.Card(a.Card)]
	actual := "no record"
	if ok {
		if rec.State == want {
			return nil
		}
		actual = string(rec.State)
	}
	return &AssertionError{
		Type:     AssertLedgerState,
		Expected: fmt.Sprintf("card %d in state %s", a.Card, want),
		Actual:   actual,
		Trace:    result.Trace,
	}
}
