package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/racesms/internal/model"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.now = func() time.Time { return time.Date(2026, 5, 9, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a record with minimal required fields.
func createTestRecord(card model.Card, state model.DeliveryState) model.Record {
	id := int64(card) * 10
	return model.Record{
		Card:      card,
		Name:      "Jana Kovac",
		Outcome:   model.OutcomeCompleted,
		Text:      "Congratulations, Jana Kovac!",
		MessageID: &id,
		State:     state,
		RunID:     "test-run",
	}
}
