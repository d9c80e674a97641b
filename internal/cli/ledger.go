package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/racesms/internal/config"
	"github.com/roach88/racesms/internal/ledger"
	"github.com/roach88/racesms/internal/model"
)

// LedgerOptions holds flags for the ledger commands.
type LedgerOptions struct {
	*RootOptions
	Ledger string
}

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the record of sent messages",
	}
	cmd.PersistentFlags().StringVar(&opts.Ledger, "ledger", config.DefaultLedger, "path to the ledger")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print every ledger entry in the order it was written",
		Long: `Print every ledger entry in the order it was written.

Cards may appear more than once: a message that was not confirmed sent is
retried on the next run and recorded again.

Example:
  racesms ledger list --ledger sms.csv
  racesms ledger list --ledger sms.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listLedger(opts, cmd)
		},
	}
	cmd.AddCommand(list)

	return cmd
}

// LedgerEntry is one ledger record in command output.
type LedgerEntry struct {
	Seq     int64               `json:"seq"`
	Card    model.Card          `json:"card"`
	Name    string              `json:"name"`
	Outcome model.Outcome       `json:"outcome"`
	Text    string              `json:"sms_text"`
	SMSID   *int64              `json:"sms_id,omitempty"`
	State   model.DeliveryState `json:"sms_state"`
	RunID   string              `json:"run_id,omitempty"`
}

func listLedger(opts *LedgerOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose, cmd.ErrOrStderr())
	out := newFormatter(opts.RootOptions, cmd)

	led, err := ledger.Open(opts.Ledger)
	if err != nil {
		return fail(out, ExitCommandError, CodeLedger, "failed to open ledger", err)
	}
	defer led.Close()

	records, err := led.List(cmd.Context())
	if err != nil {
		return fail(out, ExitCommandError, CodeInput, "failed to read ledger", err)
	}

	entries := make([]LedgerEntry, len(records))
	for i, r := range records {
		entries[i] = LedgerEntry{
			Seq:     r.Seq,
			Card:    r.Card,
			Name:    r.Name,
			Outcome: r.Outcome,
			Text:    r.Text,
			SMSID:   r.MessageID,
			State:   r.State,
			RunID:   r.RunID,
		}
	}

	if out.JSON() {
		return out.Success(entries)
	}

	w := out.Writer
	for _, e := range entries {
		id := "-"
		if e.SMSID != nil {
			id = fmt.Sprint(*e.SMSID)
		}
		fmt.Fprintf(w, "%4d  %6s  %-28s %-18s %-9s %5s  %s\n", e.Seq, e.Card, e.Name, e.Outcome, e.State, id, e.Text)
	}
	out.VerboseLog("%d entries in %s", len(entries), opts.Ledger)
	return nil
}
