package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/racesms/internal/engine"
	"github.com/roach88/racesms/internal/feed"
	"github.com/roach88/racesms/internal/model"
	"github.com/roach88/racesms/internal/policy"
	"github.com/roach88/racesms/internal/roster"
	"github.com/roach88/racesms/internal/store"
	"github.com/roach88/racesms/internal/testutil"
)

// epoch is the fixed creation time of every record a scenario writes.
var epoch = time.Date(2024, 5, 18, 10, 0, 0, 0, time.UTC)

// Run executes a scenario against the real engine, a fresh in-memory SQLite
// ledger and a fake transport, and returns the result.
//
// Execution flow:
// 1. Create fresh in-memory ledger and seed it
// 2. Build the roster index and the fake transport
// 3. Run each pass, checking its expectations
// 4. Evaluate assertions against the transport and the ledger
//
// An error is returned only when the scenario cannot be executed at all;
// failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := seedLedger(ctx, st, scenario.Ledger); err != nil {
		return nil, err
	}

	index := roster.Build(rosterRows(scenario.Roster))

	fake, err := newTransport(scenario.Transport)
	if err != nil {
		return nil, err
	}
	var transport engine.Transport
	if !scenario.Transport.None {
		transport = fake
	}

	pol, err := policy.New(policy.Options{NotifyDidNotStart: scenario.NotifyDNS})
	if err != nil {
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}

	opts := []engine.Option{
		engine.WithSleeper(&testutil.FakeSleeper{}),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		engine.WithClock(testutil.FixedClock(epoch)),
	}
	if scenario.StatePolls > 0 {
		opts = append(opts, engine.WithStatePolls(scenario.StatePolls))
	}
	eng := engine.New(st, transport, pol, opts...)

	result := NewResult()
	sentBefore := 0
	for i, pass := range scenario.Passes {
		results, err := parseResults(pass.Results)
		if err != nil {
			return nil, fmt.Errorf("passes[%d]: %w", i, err)
		}

		passCtx, cancel := context.WithCancel(ctx)
		if pass.Cancelled {
			cancel()
		}
		summary, runErr := eng.Run(passCtx, results, index)
		cancel()

		checkRunError(result, i, pass.ExpectError, runErr)
		for _, item := range summary.Items {
			result.Trace = append(result.Trace, itemEvent(i, item))
		}
		sent := fake.Sent()
		for _, msg := range sent[sentBefore:] {
			result.Trace = append(result.Trace, smsEvent(i, msg))
		}
		sentBefore = len(sent)

		checkExpectations(result, i, pass.Expect, summary.Items)
	}

	records, err := st.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	for _, rec := range records {
		result.Ledger = append(result.Ledger, ledgerRow(rec))
	}

	folded, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	for _, a := range scenario.Assertions {
		if err := evaluate(a, result, folded); err != nil {
			result.AddError(err.Error())
		}
	}

	return result, nil
}

func seedLedger(ctx context.Context, st *store.Store, entries []LedgerEntry) error {
	for i, e := range entries {
		state, err := model.ParseDeliveryState(e.State)
		if err != nil {
			return fmt.Errorf("ledger[%d]: %w", i, err)
		}
		outcome := model.OutcomeCompleted
		if e.Outcome != "" {
			if outcome, err = model.ParseOutcome(e.Outcome); err != nil {
				return fmt.Errorf("ledger[%d]: %w", i, err)
			}
		}
		rec := model.Record{
			Card:      model.Card(e.Card),
			Name:      e.Name,
			Outcome:   outcome,
			Text:      e.Text,
			MessageID: e.SMSID,
			State:     state,
			RunID:     "seed",
			CreatedAt: epoch,
		}
		if err := st.Append(ctx, rec); err != nil {
			return fmt.Errorf("ledger[%d]: %w", i, err)
		}
	}
	return nil
}

func rosterRows(entries []RosterEntry) []model.RosterRow {
	rows := make([]model.RosterRow, len(entries))
	for i, e := range entries {
		rows[i] = model.RosterRow{Name: e.Name, Phone: e.Phone, Card: e.Card}
	}
	return rows
}

func newTransport(spec TransportSpec) (*testutil.FakeTransport, error) {
	fake := testutil.NewFakeTransport()
	if spec.Modems != nil {
		fake.Modems = nil
		for _, m := range *spec.Modems {
			fake.Modems = append(fake.Modems, model.Modem(m))
		}
	}
	if spec.ListError != "" {
		fake.ListErr = errors.New(spec.ListError)
	}
	fake.CreateErr = errorMap(spec.CreateErrors)
	fake.SendErr = errorMap(spec.SendErrors)
	fake.StateErr = errorMap(spec.StateErrors)
	for _, s := range spec.States {
		state, err := model.ParseDeliveryState(s)
		if err != nil {
			return nil, fmt.Errorf("transport.states: %w", err)
		}
		fake.States = append(fake.States, state)
	}
	return fake, nil
}

func errorMap(m map[string]string) map[string]error {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]error, len(m))
	for phone, msg := range m {
		out[phone] = errors.New(msg)
	}
	return out
}

func parseResults(entries []ResultEntry) ([]model.Result, error) {
	results := make([]model.Result, 0, len(entries))
	for i, e := range entries {
		res, err := feed.ParseResult(e.Card, e.Name, e.Stat, e.Time)
		if err != nil {
			return nil, fmt.Errorf("results[%d]: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func checkRunError(result *Result, pass int, expect string, err error) {
	switch {
	case expect == "" && err != nil:
		result.AddError(fmt.Sprintf("pass %d: unexpected error: %v", pass, err))
	case expect != "" && err == nil:
		result.AddError(fmt.Sprintf("pass %d: expected error containing %q, got none", pass, expect))
	case expect != "" && !strings.Contains(err.Error(), expect):
		result.AddError(fmt.Sprintf("pass %d: expected error containing %q, got %v", pass, expect, err))
	}
}

func checkExpectations(result *Result, pass int, expect []Expectation, items []engine.Item) {
	if len(expect) == 0 {
		return
	}
	if len(expect) != len(items) {
		result.AddError(fmt.Sprintf("pass %d: expected %d items, got %d", pass, len(expect), len(items)))
		return
	}
	for i, e := range expect {
		item := items[i]
		if string(item.Disposition) != e.Disposition {
			result.AddError(fmt.Sprintf("pass %d item %d (%s): expected disposition %s, got %s",
				pass, i, item.Name, e.Disposition, item.Disposition))
		}
		if e.State != "" {
			want, _ := model.ParseDeliveryState(e.State)
			if item.State != want {
				result.AddError(fmt.Sprintf("pass %d item %d (%s): expected state %s, got %s",
					pass, i, item.Name, want, item.State))
			}
		}
	}
}

func itemEvent(pass int, item engine.Item) TraceEvent {
	return TraceEvent{
		Type:        EventResult,
		Pass:        pass,
		Card:        int(item.Card),
		Name:        item.Name,
		Disposition: string(item.Disposition),
		State:       string(item.State),
		SMSID:       item.MessageID,
		Error:       item.Error,
	}
}

func smsEvent(pass int, msg testutil.SentMessage) TraceEvent {
	ev := TraceEvent{
		Type:  EventSMS,
		Pass:  pass,
		Phone: msg.Number,
		Text:  msg.Text,
	}
	if id, ok := msg.Handle.MessageID(); ok {
		ev.SMSID = &id
	}
	return ev
}

func ledgerRow(rec model.Record) LedgerRow {
	return LedgerRow{
		Seq:     rec.Seq,
		Card:    int(rec.Card),
		Name:    rec.Name,
		Outcome: string(rec.Outcome),
		Text:    rec.Text,
		SMSID:   rec.MessageID,
		State:   string(rec.State),
		RunID:   rec.RunID,
	}
}
