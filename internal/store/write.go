package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/racesms/internal/model"
)

// Append inserts a notification record. It satisfies the engine's Ledger
// interface; see AppendRecord for the inserted flag.
func (s *Store) Append(ctx context.Context, rec model.Record) error {
	_, _, err := s.AppendRecord(ctx, rec)
	return err
}

// AppendRecord inserts a notification record and returns its seq and whether
// a new row was written.
//
// Uses ON CONFLICT DO NOTHING against the one-sent-row-per-card index: a
// second sent record for a card is silently ignored and the seq of the
// existing sent row is returned with inserted=false.
func (s *Store) AppendRecord(ctx context.Context, rec model.Record) (seq int64, inserted bool, err error) {
	if !rec.Card.Valid() {
		return 0, false, fmt.Errorf("append notification: invalid card %d", rec.Card)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	var smsID sql.NullInt64
	if rec.MessageID != nil {
		smsID = sql.NullInt64{Int64: *rec.MessageID, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("append notification: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO notifications
		(card, name, stat, outcome, sms_text, sms_id, sms_state, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		int(rec.Card),
		rec.Name,
		rec.Outcome.Stat(),
		string(rec.Outcome),
		rec.Text,
		smsID,
		string(rec.State),
		rec.RunID,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, false, fmt.Errorf("append notification: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("append notification: rows affected: %w", err)
	}

	if rowsAffected > 0 {
		seq, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("append notification: last insert id: %w", err)
		}
		inserted = true
	} else {
		// Conflict - a sent row already exists for this card
		err = tx.QueryRowContext(ctx, `
			SELECT seq FROM notifications
			WHERE card = ? AND sms_state = 'sent'
		`, int(rec.Card)).Scan(&seq)
		if err != nil {
			return 0, false, fmt.Errorf("append notification: select existing: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("append notification: commit: %w", err)
	}

	return seq, inserted, nil
}
