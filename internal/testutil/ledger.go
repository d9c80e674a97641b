package testutil

import (
	"context"
	"sync"

	"github.com/roach88/racesms/internal/model"
)

// MemoryLedger is an in-memory engine.Ledger with the same fold rule as the
// file-backed ledgers: a sent record wins, otherwise the latest.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemoryLedger struct {
	mu      sync.Mutex
	records []model.Record

	// LoadErr and AppendErr inject failures.
	LoadErr   error
	AppendErr error
}

// NewMemoryLedger returns a ledger pre-populated with records.
func NewMemoryLedger(records ...model.Record) *MemoryLedger {
	l := &MemoryLedger{}
	for _, r := range records {
		r.Seq = int64(len(l.records) + 1)
		l.records = append(l.records, r)
	}
	return l
}

// Load folds the records to one per card.
func (l *MemoryLedger) Load(ctx context.Context) (map[model.Card]model.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LoadErr != nil {
		return nil, l.LoadErr
	}
	byCard := make(map[model.Card]model.Record, len(l.records))
	for _, r := range l.records {
		if prev, ok := byCard[r.Card]; ok && prev.Delivered() {
			continue
		}
		byCard[r.Card] = r
	}
	return byCard, nil
}

// Append stores rec.
func (l *MemoryLedger) Append(ctx context.Context, rec model.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.AppendErr != nil {
		return l.AppendErr
	}
	rec.Seq = int64(len(l.records) + 1)
	l.records = append(l.records, rec)
	return nil
}

// List returns all records in append order.
func (l *MemoryLedger) List(ctx context.Context) ([]model.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Record{}, l.records...), nil
}

// Close is a no-op.
func (l *MemoryLedger) Close() error {
	return nil
}

// Records returns a copy of all records.
func (l *MemoryLedger) Records() []model.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Record(nil), l.records...)
}
