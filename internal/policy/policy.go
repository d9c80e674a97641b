// Package policy maps a participant's outcome to the SMS text they receive.
package policy

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/roach88/racesms/internal/model"
)

// Default message templates. Templates see the fields of Data.
const (
	DefaultCompleted         = `Congratulations, {{.Name}}! You finished {{.Event}} in {{.Time}}.{{if .ResultsURL}} Results: {{.ResultsURL}}{{end}}`
	DefaultMissingCheckpoint = `{{.Name}}, you did not complete the whole course. Please contact the officials of {{.Event}}.{{if .ResultsURL}} Results: {{.ResultsURL}}{{end}}`
	DefaultDidNotFinish      = `{{.Name}}, we did not record you crossing the finish line. Please contact the officials of {{.Event}}.{{if .ResultsURL}} Results: {{.ResultsURL}}{{end}}`
	DefaultDidNotStart       = `{{.Name}}, unfortunately you did not start {{.Event}}.{{if .ResultsURL}} Results: {{.ResultsURL}}{{end}}`

	DefaultEvent = "the race"
)

// Data is what a message template is rendered with.
type Data struct {
	Name       string
	Time       string
	Event      string
	ResultsURL string
}

// Options configure a Policy. Empty template strings select the defaults.
type Options struct {
	Event      string
	ResultsURL string

	// NotifyDidNotStart enables the did-not-start message. Off by default.
	NotifyDidNotStart bool

	Completed         string
	MissingCheckpoint string
	DidNotFinish      string
	DidNotStart       string
}

// Policy composes notification text. It is immutable after New and safe
// for concurrent use.
type Policy struct {
	event      string
	resultsURL string
	notifyDNS  bool
	templates  map[model.Outcome]*template.Template
}

// New parses the templates and renders each once with sample data so that
// a broken template fails at startup rather than mid-run.
func New(opts Options) (*Policy, error) {
	p := &Policy{
		event:      opts.Event,
		resultsURL: opts.ResultsURL,
		notifyDNS:  opts.NotifyDidNotStart,
		templates:  make(map[model.Outcome]*template.Template),
	}
	if p.event == "" {
		p.event = DefaultEvent
	}

	sources := map[model.Outcome]string{
		model.OutcomeCompleted:         or(opts.Completed, DefaultCompleted),
		model.OutcomeMissingCheckpoint: or(opts.MissingCheckpoint, DefaultMissingCheckpoint),
		model.OutcomeDidNotFinish:      or(opts.DidNotFinish, DefaultDidNotFinish),
		model.OutcomeDidNotStart:       or(opts.DidNotStart, DefaultDidNotStart),
	}
	for outcome, src := range sources {
		tmpl, err := template.New(string(outcome)).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", outcome, err)
		}
		var sb strings.Builder
		if err := tmpl.Execute(&sb, Data{Name: "Sample", Time: "00:00:00", Event: p.event, ResultsURL: p.resultsURL}); err != nil {
			return nil, fmt.Errorf("render %s template: %w", outcome, err)
		}
		p.templates[outcome] = tmpl
	}

	return p, nil
}

// Default returns a Policy with the built-in templates.
func Default() *Policy {
	p, err := New(Options{})
	if err != nil {
		panic(fmt.Sprintf("policy: default templates: %v", err))
	}
	return p
}

// NotifiesDidNotStart reports whether non-starters get a message.
func (p *Policy) NotifiesDidNotStart() bool {
	return p.notifyDNS
}

// Compose returns the message for an outcome, or ok=false when the outcome
// gets no message (out of competition, unknown codes, and did-not-start
// unless enabled). Elapsed is only rendered for completed results.
func (p *Policy) Compose(outcome model.Outcome, name string, elapsed time.Duration) (text string, ok bool, err error) {
	switch outcome {
	case model.OutcomeCompleted, model.OutcomeMissingCheckpoint, model.OutcomeDidNotFinish:
	case model.OutcomeDidNotStart:
		if !p.notifyDNS {
			return "", false, nil
		}
	default:
		return "", false, nil
	}

	data := Data{
		Name:       name,
		Event:      p.event,
		ResultsURL: p.resultsURL,
	}
	if outcome == model.OutcomeCompleted {
		data.Time = model.FormatElapsed(elapsed)
	}

	var sb strings.Builder
	if err := p.templates[outcome].Execute(&sb, data); err != nil {
		return "", false, fmt.Errorf("compose %s message: %w", outcome, err)
	}
	return sb.String(), true, nil
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
