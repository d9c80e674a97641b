package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/racesms/internal/engine"
	"github.com/roach88/racesms/internal/model"
)

// Scenario describes one end-to-end run of the engine: a roster, an
// initial ledger, a transport setup, and one or more passes over results.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID is stamped on every ledger record. Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// NotifyDNS enables did-not-start messages.
	NotifyDNS bool `yaml:"notify_dns,omitempty"`

	// StatePolls is passed to engine.WithStatePolls. Zero keeps the default.
	StatePolls int `yaml:"state_polls,omitempty"`

	Roster    []RosterEntry `yaml:"roster"`
	Ledger    []LedgerEntry `yaml:"ledger,omitempty"`
	Transport TransportSpec `yaml:"transport,omitempty"`

	// Passes run in order against the same ledger and transport.
	Passes []Pass `yaml:"passes"`

	// Assertions validate the final transport and ledger state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RosterEntry is one roster row. Card is kept as text so malformed cards
// can be expressed.
type RosterEntry struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
	Card  string `yaml:"card,omitempty"`
}

// LedgerEntry is a record present before the first pass.
type LedgerEntry struct {
	Card    int    `yaml:"card"`
	Name    string `yaml:"name"`
	Outcome string `yaml:"outcome,omitempty"`
	Text    string `yaml:"text,omitempty"`
	SMSID   *int64 `yaml:"sms_id,omitempty"`
	State   string `yaml:"state"`
}

// TransportSpec configures the fake transport.
type TransportSpec struct {
	// None runs without a transport (dry run).
	None bool `yaml:"none,omitempty"`

	// Modems overrides the default single modem. An explicit empty list
	// means no modem is present.
	Modems *[]string `yaml:"modems,omitempty"`

	ListError string `yaml:"list_error,omitempty"`

	// Per phone number failures.
	CreateErrors map[string]string `yaml:"create_errors,omitempty"`
	SendErrors   map[string]string `yaml:"send_errors,omitempty"`
	StateErrors  map[string]string `yaml:"state_errors,omitempty"`

	// States reported by successive state queries of one message.
	States []string `yaml:"states,omitempty"`
}

// Pass is one engine run.
type Pass struct {
	Results []ResultEntry `yaml:"results"`

	// Cancelled runs the pass with an already cancelled context.
	Cancelled bool `yaml:"cancelled,omitempty"`

	// Expect lists the expected per-result dispositions in feed order.
	// When empty, dispositions are not checked.
	Expect []Expectation `yaml:"expect,omitempty"`

	// ExpectError is a substring of the error Run must return.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ResultEntry is one results row, in the same textual form as the results
// file.
type ResultEntry struct {
	Card string `yaml:"card,omitempty"`
	Name string `yaml:"name"`
	Stat string `yaml:"stat"`
	Time string `yaml:"time,omitempty"`
}

// Expectation is the expected handling of one result.
type Expectation struct {
	Disposition string `yaml:"disposition"`
	State       string `yaml:"state,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type selects the check:
	// - "sent_count": exactly Count messages reached the transport
	// - "sent_to": a message to Phone was sent, containing Contains
	// - "not_sent_to": no message to Phone was sent
	// - "ledger_count": the ledger holds Count records (for Card if set)
	// - "ledger_state": the folded ledger record for Card has State
	Type string `yaml:"type"`

	Count    int    `yaml:"count,omitempty"`
	Phone    string `yaml:"phone,omitempty"`
	Contains string `yaml:"contains,omitempty"`
	Card     int    `yaml:"card,omitempty"`
	State    string `yaml:"state,omitempty"`
}

// Assertion type constants.
const (
	AssertSentCount   = "sent_count"
	AssertSentTo      = "sent_to"
	AssertNotSentTo   = "not_sent_to"
	AssertLedgerCount = "ledger_count"
	AssertLedgerState = "ledger_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is invalid.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Passes) == 0 {
		return fmt.Errorf("passes list is required and must be non-empty")
	}

	for i, e := range s.Ledger {
		if e.Card <= 0 {
			return fmt.Errorf("ledger[%d]: card must be positive", i)
		}
		if _, err := model.ParseDeliveryState(e.State); err != nil {
			return fmt.Errorf("ledger[%d]: %w", i, err)
		}
	}

	for _, st := range s.Transport.States {
		if _, err := model.ParseDeliveryState(st); err != nil {
			return fmt.Errorf("transport.states: %w", err)
		}
	}

	valid := make(map[string]bool)
	for _, d := range engine.Dispositions() {
		valid[string(d)] = true
	}
	for i, p := range s.Passes {
		for j, e := range p.Expect {
			if !valid[e.Disposition] {
				return fmt.Errorf("passes[%d].expect[%d]: unknown disposition %q", i, j, e.Disposition)
			}
		}
		if len(p.Expect) > 0 && len(p.Expect) != len(p.Results) && p.ExpectError == "" {
			return fmt.Errorf("passes[%d]: expect has %d entries for %d results", i, len(p.Expect), len(p.Results))
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertSentCount, AssertLedgerCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertSentTo, AssertNotSentTo:
		if a.Phone == "" {
			return fmt.Errorf("assertions[%d]: phone is required for %s", index, a.Type)
		}
	case AssertLedgerState:
		if a.Card <= 0 {
			return fmt.Errorf("assertions[%d]: card is required for ledger_state", index)
		}
		if _, err := model.ParseDeliveryState(a.State); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
