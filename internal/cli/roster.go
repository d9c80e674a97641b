package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/racesms/internal/roster"
)

// NewRosterCommand creates the roster command group.
func NewRosterCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Inspect a participant roster",
	}

	check := &cobra.Command{
		Use:   "check <roster.csv>",
		Short: "Index a roster and report what can be resolved",
		Long: `Index a roster and report what can be resolved.

Rows without a phone number are skipped. A name shared by several rows
cannot be used to find a phone number; such participants are reachable
only through their card.

Example:
  racesms roster check roster.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkRoster(rootOpts, args[0], cmd)
		},
	}
	cmd.AddCommand(check)

	return cmd
}

func checkRoster(opts *RootOptions, path string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose, cmd.ErrOrStderr())
	out := newFormatter(opts, cmd)

	index, err := roster.LoadFile(path)
	if err != nil {
		return fail(out, ExitCommandError, CodeInput, "failed to read roster", err)
	}

	stats := index.Stats()
	if out.JSON() {
		return out.Success(stats)
	}

	w := out.Writer
	fmt.Fprintf(w, "%d rows, %d cards, %d unique names\n", stats.Rows, stats.Cards, stats.Names)
	if len(stats.Ambiguous) > 0 {
		fmt.Fprintf(w, "%d ambiguous names (reachable by card only):\n", len(stats.Ambiguous))
		for _, name := range stats.Ambiguous {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	return nil
}
