package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/racesms/internal/model"
)

// Ledger is the durable dispatch history the engine reads and appends to.
// Implemented by ledger.CSV and store.Store.
type Ledger interface {
	Load(ctx context.Context) (map[model.Card]model.Record, error)
	Append(ctx context.Context, rec model.Record) error
}

// Transport creates and sends text messages. Implemented by modem.Client.
type Transport interface {
	ListModems(ctx context.Context) ([]model.Modem, error)
	Create(ctx context.Context, modem model.Modem, number, text string) (model.Handle, error)
	Send(ctx context.Context, handle model.Handle) error
	State(ctx context.Context, handle model.Handle) (model.DeliveryState, error)
}

// Directory resolves participants to phone numbers. Implemented by roster.Index.
type Directory interface {
	Lookup(card model.Card, name string) (string, bool)
}

// Composer turns an outcome into message text. Implemented by policy.Policy.
type Composer interface {
	Compose(outcome model.Outcome, name string, elapsed time.Duration) (string, bool, error)
}

// RunIDGenerator generates the id stamped on every record of a pass.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunIDGenerator interface {
	Generate() string
}

// DefaultSettleDelay is the wait between sending a message and reading its
// state, giving the modem time to update it.
const DefaultSettleDelay = time.Second

// DefaultStatePolls is how many times the state is read while it is still
// stored or sending.
const DefaultStatePolls = 1

// Engine runs reconciliation passes.
//
// An Engine holds no per-pass state; Run may be called repeatedly but not
// concurrently (the transport is a single device).
type Engine struct {
	ledger    Ledger
	transport Transport
	composer  Composer

	modem       model.Modem
	settleDelay time.Duration
	statePolls  int
	sleeper     Sleeper
	runIDs      RunIDGenerator
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettleDelay sets the wait between send and each state query.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.settleDelay = d
	}
}

// WithStatePolls sets how many state queries are made while the message is
// still pending. Values below 1 are treated as 1.
func WithStatePolls(n int) Option {
	return func(e *Engine) {
		e.statePolls = max(n, 1)
	}
}

// WithModem selects a modem by identifier instead of the first one listed.
func WithModem(m model.Modem) Option {
	return func(e *Engine) {
		e.modem = m
	}
}

// WithSleeper replaces the settle-delay sleeper (tests).
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) {
		e.sleeper = s
	}
}

// WithRunIDGenerator replaces the UUIDv7 run id generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine. transport may be nil, which runs every pass in
// degraded mode.
func New(ledger Ledger, transport Transport, composer Composer, opts ...Option) *Engine {
	e := &Engine{
		ledger:      ledger,
		transport:   transport,
		composer:    composer,
		settleDelay: DefaultSettleDelay,
		statePolls:  DefaultStatePolls,
		sleeper:     RealSleeper{},
		runIDs:      UUIDv7Generator{},
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pass holds the state of one Run.
type pass struct {
	runID   string
	modem   model.Modem
	dir     Directory
	history map[model.Card]model.Record
	handled map[model.Card]bool
	log     *slog.Logger
}

// Run performs one reconciliation pass over results in feed order.
//
// The returned Summary lists one Item per result processed. Per-result
// failures are reported in the Summary, never as an error. Run returns an
// error only when the ledger cannot be loaded or appended to, or when ctx
// is cancelled; in both cases the Summary covers the results processed so
// far.
func (e *Engine) Run(ctx context.Context, results []model.Result, dir Directory) (*Summary, error) {
	p := &pass{
		runID:   e.runIDs.Generate(),
		dir:     dir,
		handled: make(map[model.Card]bool),
	}
	p.log = e.logger.With("run_id", p.runID)
	summary := &Summary{RunID: p.runID, Items: []Item{}}

	history, err := e.ledger.Load(ctx)
	if err != nil {
		return summary, &LedgerError{Op: "load", Err: err}
	}
	p.history = history
	p.log.Info("ledger loaded", "records", len(history))

	p.modem = e.selectModem(ctx, p.log)
	summary.Degraded = p.modem == ""

	for _, res := range results {
		if err := ctx.Err(); err != nil {
			p.log.Warn("pass interrupted", "processed", len(summary.Items), "remaining", len(results)-len(summary.Items))
			return summary, err
		}

		item, err := e.process(ctx, p, res)
		summary.add(item)
		if err != nil {
			return summary, err
		}
	}

	counts := summary.Counts()
	attrs := make([]any, 0, 2*len(counts))
	for _, d := range Dispositions() {
		if n := counts[d]; n > 0 {
			attrs = append(attrs, string(d), n)
		}
	}
	p.log.Info("pass complete", attrs...)
	return summary, nil
}

// selectModem picks the modem for this pass. An empty result means degraded
// mode, which is logged here, once per pass.
func (e *Engine) selectModem(ctx context.Context, log *slog.Logger) model.Modem {
	if e.transport == nil {
		log.Warn("no transport configured, continuing without sending SMS")
		return ""
	}

	modems, err := e.transport.ListModems(ctx)
	if err != nil {
		log.Error("failed to list modems, continuing without sending SMS", "error", err)
		return ""
	}
	if len(modems) == 0 {
		log.Warn("could not find any modem, continuing without sending SMS")
		return ""
	}

	if e.modem == "" {
		log.Info("using modem", "modem", modems[0])
		return modems[0]
	}
	for _, m := range modems {
		if m == e.modem {
			log.Info("using modem", "modem", m)
			return m
		}
	}
	log.Warn("configured modem not found, continuing without sending SMS", "modem", e.modem, "available", len(modems))
	return ""
}

// process runs steps 1-6 for one result. The returned error is non-nil only
// for ledger append failures.
func (e *Engine) process(ctx context.Context, p *pass, res model.Result) (Item, error) {
	item := Item{Card: res.Card, Name: res.Name, Outcome: res.Outcome}
	log := p.log.With("card", res.Card, "name", res.Name)

	if prev, ok := p.history[res.Card]; ok && res.Card.Valid() {
		if prev.Delivered() {
			log.Info("SMS already sent", "sms_id", messageID(prev.MessageID))
			item.Disposition = AlreadySent
			item.State = prev.State
			item.MessageID = prev.MessageID
			return item, nil
		}
		log.Info("previous SMS not delivered, retrying", "state", prev.State, "sms_id", messageID(prev.MessageID))
	}
	if p.handled[res.Card] {
		log.Info("card already handled in this run")
		item.Disposition = Duplicate
		return item, nil
	}

	phone, ok := p.dir.Lookup(res.Card, res.Name)
	if !ok {
		log.Warn("phone number unavailable")
		item.Disposition = Unreachable
		return item, nil
	}
	item.Phone = phone

	logOutcome(log, res)
	text, ok, err := e.composer.Compose(res.Outcome, res.Name, res.Elapsed)
	if err != nil {
		log.Error("failed to compose message", "error", err)
		item.Disposition = Failed
		item.Err = err
		return item, nil
	}
	if !ok {
		item.Disposition = NoMessage
		return item, nil
	}
	item.Text = text

	if p.modem == "" {
		item.Disposition = Degraded
		return item, nil
	}
	if !res.Card.Valid() {
		log.Warn("result has no card, cannot record SMS, not sending")
		item.Disposition = NoCard
		return item, nil
	}

	p.handled[res.Card] = true

	// Once dispatch starts it runs to completion regardless of cancellation.
	rec, err := e.dispatch(context.WithoutCancel(ctx), p, res, phone, text, log)
	if err != nil {
		log.Error("failed to send SMS", "error", err, "maybe_sent", MaybeSent(err))
		item.Disposition = Failed
		item.Err = err
		return item, nil
	}

	if err := e.ledger.Append(context.WithoutCancel(ctx), rec); err != nil {
		log.Error("failed to record SMS", "error", err, "state", rec.State)
		item.Disposition = Failed
		item.Err = err
		return item, &LedgerError{Op: "append", Err: err}
	}

	item.Disposition = Dispatched
	item.State = rec.State
	item.MessageID = rec.MessageID
	return item, nil
}

// dispatch is the failure boundary around the transport: create, send,
// settle, read state. The record it returns carries the last observed state.
func (e *Engine) dispatch(ctx context.Context, p *pass, res model.Result, phone, text string, log *slog.Logger) (model.Record, error) {
	handle, err := e.transport.Create(ctx, p.modem, phone, text)
	if err != nil {
		return model.Record{}, &DispatchError{Step: StepCreate, Card: res.Card, Err: err}
	}

	rec := model.Record{
		Card:      res.Card,
		Name:      res.Name,
		Outcome:   res.Outcome,
		Text:      text,
		State:     model.StateStored,
		RunID:     p.runID,
		CreatedAt: e.now(),
	}
	if id, ok := handle.MessageID(); ok {
		rec.MessageID = &id
	}

	log.Info("sending SMS", "sms", handle)
	if err := e.transport.Send(ctx, handle); err != nil {
		return model.Record{}, &DispatchError{Step: StepSend, Card: res.Card, Handle: handle, Err: err}
	}
	log.Info("sent SMS", "sms", handle)

	for i := 0; i < e.statePolls; i++ {
		if err := e.sleeper.Sleep(ctx, e.settleDelay); err != nil {
			return model.Record{}, &DispatchError{Step: StepState, Card: res.Card, Handle: handle, Err: err}
		}
		state, err := e.transport.State(ctx, handle)
		if err != nil {
			return model.Record{}, &DispatchError{Step: StepState, Card: res.Card, Handle: handle, Err: err}
		}
		rec.State = state
		if !state.Pending() {
			break
		}
		log.Debug("SMS still pending", "state", state, "poll", i+1)
	}

	return rec, nil
}

func logOutcome(log *slog.Logger, res model.Result) {
	switch res.Outcome {
	case model.OutcomeCompleted:
		log.Info("finished", "time", model.FormatElapsed(res.Elapsed))
	case model.OutcomeMissingCheckpoint:
		log.Info("missing checkpoint")
	case model.OutcomeDidNotFinish:
		log.Info("did not finish")
	case model.OutcomeOutOfCompetition:
		log.Info("ran out of competition")
	case model.OutcomeDidNotStart:
		log.Info("did not start")
	default:
		log.Info("unhandled outcome", "outcome", res.Outcome)
	}
}

func messageID(id *int64) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(*id)
}
