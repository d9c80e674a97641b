// Package ledger provides the dispatch ledger backends and selects one by
// file name.
//
// Two backends exist: CSV, which keeps the historical sms.csv layout
// (card,name,stat,sms_text,sms_id,sms_state), and the SQLite store from
// internal/store. Both are append-only and fold their history to one
// record per card on Load.
package ledger

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/roach88/racesms/internal/model"
	"github.com/roach88/racesms/internal/store"
)

// Ledger is a durable, append-only record of notification dispatches.
type Ledger interface {
	// Load returns the history folded to one record per card.
	Load(ctx context.Context) (map[model.Card]model.Record, error)
	// Append writes one record after its transport calls completed.
	Append(ctx context.Context, rec model.Record) error
	// List returns every record in append order.
	List(ctx context.Context) ([]model.Record, error)
	Close() error
}

var (
	_ Ledger = (*CSV)(nil)
	_ Ledger = (*store.Store)(nil)
)

// Open opens the ledger at path. Files ending in .db, .sqlite or .sqlite3
// use the SQLite backend; anything else is a CSV ledger.
func Open(path string) (Ledger, error) {
	if IsSQLite(path) {
		return store.Open(path)
	}
	return OpenCSV(path)
}

// IsSQLite reports whether Open would use the SQLite backend for path.
func IsSQLite(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}
