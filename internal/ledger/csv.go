package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/racesms/internal/model"
)

// Header is the column layout of a CSV ledger.
var Header = []string{"card", "name", "stat", "sms_text", "sms_id", "sms_state"}

// CSV is a ledger stored as a CSV file with a header line.
//
// The file is opened for appending on the first Append. The header is only
// written when the file does not exist yet or is empty. Each appended row is
// flushed and synced before Append returns.
type CSV struct {
	path string

	mu   sync.Mutex
	f    *os.File
	w    *csv.Writer
	sent map[model.Card]bool
}

// OpenCSV returns a CSV ledger for path. The file is not created until the
// first Append.
func OpenCSV(path string) (*CSV, error) {
	if path == "" {
		return nil, fmt.Errorf("open ledger: empty path")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("open ledger: %s is a directory", path)
	}
	return &CSV{path: path}, nil
}

// Path returns the ledger file path.
func (l *CSV) Path() string {
	return l.path
}

// Load reads the whole file and folds it to one record per card. A sent
// record wins over any other record for the card; otherwise the last row
// wins. A missing file is an empty ledger.
func (l *CSV) Load(ctx context.Context) (map[model.Card]model.Record, error) {
	records, err := l.List(ctx)
	if err != nil {
		return nil, err
	}

	byCard := make(map[model.Card]model.Record, len(records))
	for _, rec := range records {
		if prev, ok := byCard[rec.Card]; ok && prev.Delivered() {
			continue
		}
		byCard[rec.Card] = rec
	}

	l.mu.Lock()
	l.sent = make(map[model.Card]bool, len(byCard))
	for card, rec := range byCard {
		if rec.Delivered() {
			l.sent[card] = true
		}
	}
	l.mu.Unlock()

	return byCard, nil
}

// List returns every row of the file in order. Seq is the 1-based row number
// below the header.
func (l *CSV) List(ctx context.Context) ([]model.Record, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []model.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	records := []model.Record{}
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("read ledger line %d: %w", line, err)
		}
		rec.Seq = int64(len(records) + 1)
		records = append(records, rec)
	}
	return records, nil
}

// Append writes rec as a new row. A second sent record for a card already
// known to be sent is ignored, mirroring the SQLite backend.
func (l *CSV) Append(ctx context.Context, rec model.Record) error {
	if !rec.Card.Valid() {
		return fmt.Errorf("append notification: invalid card %d", rec.Card)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Delivered() && l.sent[rec.Card] {
		slog.Debug("card already recorded as sent, not appending", "card", rec.Card)
		return nil
	}

	if l.w == nil {
		if err := l.openForAppend(); err != nil {
			return err
		}
	}

	if err := l.w.Write(formatRow(rec)); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("append notification: flush: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("append notification: sync: %w", err)
	}

	if rec.Delivered() {
		if l.sent == nil {
			l.sent = make(map[model.Card]bool)
		}
		l.sent[rec.Card] = true
	}
	return nil
}

// Close closes the underlying file if it was opened.
func (l *CSV) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f, l.w = nil, nil
	return err
}

// openForAppend opens the file in append mode and writes the header when
// the file is new or empty. Caller holds l.mu.
func (l *CSV) openForAppend() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat ledger: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			f.Close()
			return fmt.Errorf("write ledger header: %w", err)
		}
	}

	l.f, l.w = f, w
	return nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range Header {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("read ledger: missing column %q", name)
		}
	}
	return cols, nil
}

func parseRow(row []string, cols map[string]int) (model.Record, error) {
	get := func(name string) string {
		if i := cols[name]; i < len(row) {
			return row[i]
		}
		return ""
	}

	card, err := model.ParseCard(get("card"))
	if err != nil {
		return model.Record{}, err
	}
	if !card.Valid() {
		return model.Record{}, fmt.Errorf("missing card")
	}

	outcome, err := model.ParseOutcome(get("stat"))
	if err != nil {
		return model.Record{}, err
	}

	var msgID *int64
	if s := strings.TrimSpace(get("sms_id")); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return model.Record{}, fmt.Errorf("invalid sms_id %q: %w", s, err)
		}
		msgID = &id
	}

	state, err := model.ParseDeliveryState(get("sms_state"))
	if err != nil {
		return model.Record{}, err
	}

	return model.Record{
		Card:      card,
		Name:      get("name"),
		Outcome:   outcome,
		Text:      get("sms_text"),
		MessageID: msgID,
		State:     state,
	}, nil
}

func formatRow(rec model.Record) []string {
	smsID := ""
	if rec.MessageID != nil {
		smsID = strconv.FormatInt(*rec.MessageID, 10)
	}
	return []string{
		rec.Card.String(),
		rec.Name,
		strconv.Itoa(rec.Outcome.Stat()),
		rec.Text,
		smsID,
		string(rec.State),
	}
}
