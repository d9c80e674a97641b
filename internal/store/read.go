package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/racesms/internal/model"
)

// Load returns the ledger folded to one record per card.
// A sent record wins over any other record for the card; otherwise the
// record with the highest seq wins.
//
// Returns an empty map (not nil) for an empty ledger.
func (s *Store) Load(ctx context.Context) (map[model.Card]model.Record, error) {
	records, err := s.List(ctx)
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
	return byCard, nil
}

// List returns every record in append order (ORDER BY seq ASC).
//
// Returns an empty slice (not nil) if the ledger is empty.
func (s *Store) List(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, card, name, outcome, sms_text, sms_id, sms_state, run_id, created_at
		FROM notifications
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return records, nil
}

// scanRecord scans a notifications row into a model.Record.
func scanRecord(rows *sql.Rows) (model.Record, error) {
	var (
		rec       model.Record
		card      int
		outcome   string
		smsID     sql.NullInt64
		state     string
		createdAt string
	)
	if err := rows.Scan(&rec.Seq, &card, &rec.Name, &outcome, &rec.Text, &smsID, &state, &rec.RunID, &createdAt); err != nil {
		return model.Record{}, fmt.Errorf("scan notification: %w", err)
	}

	rec.Card = model.Card(card)
	rec.Outcome = model.Outcome(outcome)
	if smsID.Valid {
		id := smsID.Int64
		rec.MessageID = &id
	}

	st, err := model.ParseDeliveryState(state)
	if err != nil {
		return model.Record{}, fmt.Errorf("scan notification seq %d: %w", rec.Seq, err)
	}
	rec.State = st

	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.Record{}, fmt.Errorf("scan notification seq %d: created_at: %w", rec.Seq, err)
	}

	return rec, nil
}
