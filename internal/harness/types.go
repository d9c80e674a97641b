package harness

// TraceEvent records one thing a scenario run observed: the handling of a
// result ("result") or a message accepted by the transport ("sms").
type TraceEvent struct {
	Type        string `json:"type"`
	Pass        int    `json:"pass"`
	Card        int    `json:"card,omitempty"`
	Name        string `json:"name,omitempty"`
	Disposition string `json:"disposition,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Text        string `json:"text,omitempty"`
	State       string `json:"state,omitempty"`
	SMSID       *int64 `json:"sms_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// LedgerRow is a ledger record as reported in a Result.
type LedgerRow struct {
	Seq     int64  `json:"seq"`
	Card    int    `json:"card"`
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Text    string `json:"text"`
	SMSID   *int64 `json:"sms_id,omitempty"`
	State   string `json:"state"`
	RunID   string `json:"run_id"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists result handling and transport sends in order.
	Trace []TraceEvent `json:"trace"`

	// Ledger is the full ledger after the last pass, in append order.
	Ledger []LedgerRow `json:"ledger"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Ledger: []LedgerRow{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Sends returns the "sms" events of the trace.
func (r *Result) Sends() []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Type == EventSMS {
			out = append(out, ev)
		}
	}
	return out
}

// Trace event types.
const (
	EventResult = "result"
	EventSMS    = "sms"
)
