package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Outcome classifies how a participant finished.
type Outcome string

const (
	OutcomeCompleted         Outcome = "completed"
	OutcomeMissingCheckpoint Outcome = "missing_checkpoint"
	OutcomeDidNotFinish      Outcome = "did_not_finish"
	OutcomeOutOfCompetition  Outcome = "out_of_competition"
	OutcomeDidNotStart       Outcome = "did_not_start"

	// OutcomeUnknown covers feed status codes outside the closed set
	// (disqualified, overtime, cancelled, ...).
	OutcomeUnknown Outcome = "unknown"
)

// MeOS status codes as reported by the MOP result feed.
const (
	StatOK   = 1
	StatMP   = 3
	StatDNF  = 4
	StatOOC  = 15
	StatDNS  = 20
	statNone = 0
)

var outcomeByStat = map[int]Outcome{
	StatOK:  OutcomeCompleted,
	StatMP:  OutcomeMissingCheckpoint,
	StatDNF: OutcomeDidNotFinish,
	StatOOC: OutcomeOutOfCompetition,
	StatDNS: OutcomeDidNotStart,
}

// aliases accepted by ParseOutcome besides the canonical names.
var outcomeAliases = map[string]Outcome{
	"ok":  OutcomeCompleted,
	"mp":  OutcomeMissingCheckpoint,
	"dnf": OutcomeDidNotFinish,
	"ooc": OutcomeOutOfCompetition,
	"nc":  OutcomeOutOfCompetition,
	"dns": OutcomeDidNotStart,
}

// Outcomes lists the closed set of outcome codes in a stable order.
func Outcomes() []Outcome {
	return []Outcome{
		OutcomeCompleted,
		OutcomeMissingCheckpoint,
		OutcomeDidNotFinish,
		OutcomeOutOfCompetition,
		OutcomeDidNotStart,
	}
}

// OutcomeFromStat maps a MeOS status code to an Outcome.
// Codes outside the closed set map to OutcomeUnknown.
func OutcomeFromStat(stat int) Outcome {
	if o, ok := outcomeByStat[stat]; ok {
		return o
	}
	return OutcomeUnknown
}

// Stat returns the MeOS status code for the outcome, 0 for OutcomeUnknown.
func (o Outcome) Stat() int {
	for stat, out := range outcomeByStat {
		if out == o {
			return stat
		}
	}
	return statNone
}

// ParseOutcome accepts a MeOS status code, a canonical outcome name or a
// short alias (ok, mp, dnf, ooc, dns). Unrecognized numeric codes map to
// OutcomeUnknown; unrecognized names are an error.
func ParseOutcome(s string) (Outcome, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return OutcomeUnknown, fmt.Errorf("empty outcome")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return OutcomeFromStat(n), nil
	}
	if o, ok := outcomeAliases[s]; ok {
		return o, nil
	}
	for _, o := range append(Outcomes(), OutcomeUnknown) {
		if string(o) == s {
			return o, nil
		}
	}
	return OutcomeUnknown, fmt.Errorf("unknown outcome %q", s)
}
