package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/roach88/racesms/internal/engine"
)

// printSummary writes the result of a pass: the Summary itself in JSON
// mode, otherwise one colored line per result and a totals line.
func printSummary(out *OutputFormatter, s *engine.Summary) error {
	if out.JSON() {
		return out.Success(s)
	}

	w := out.Writer
	header := fmt.Sprintf("Run %s", s.RunID)
	if s.Degraded {
		header += color.New(color.FgYellow).Sprint(" (no modem: nothing sent)")
	}
	fmt.Fprintln(w, header)

	for _, it := range s.Items {
		line := fmt.Sprintf("  %6s  %-28s %s", it.Card, it.Name, dispositionLabel(it.Disposition))
		switch {
		case it.Err != nil:
			line += " " + color.New(color.FgRed).Sprint(it.Err)
		case it.MessageID != nil:
			line += fmt.Sprintf(" sms %d %s", *it.MessageID, it.State)
		case it.State != "":
			line += " " + string(it.State)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w, totals(s))
	return nil
}

func dispositionLabel(d engine.Disposition) string {
	label := fmt.Sprintf("%-12s", d)
	switch d {
	case engine.Dispatched:
		return color.New(color.FgHiGreen).Sprint(label)
	case engine.AlreadySent, engine.NoMessage:
		return color.New(color.FgHiBlack).Sprint(label)
	case engine.Unreachable, engine.Degraded, engine.NoCard, engine.Duplicate:
		return color.New(color.FgYellow).Sprint(label)
	case engine.Failed:
		return color.New(color.FgRed).Sprint(label)
	default:
		return label
	}
}

// totals renders "dispatched 2, unreachable 1" in reporting order.
func totals(s *engine.Summary) string {
	counts := s.Counts()
	var parts []string
	for _, d := range engine.Dispositions() {
		if n := counts[d]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", d, n))
		}
	}
	if len(parts) == 0 {
		return "no results"
	}
	return strings.Join(parts, ", ")
}
