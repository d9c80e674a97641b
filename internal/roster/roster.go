// Package roster builds the contact index that maps participants to phone numbers.
package roster

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/racesms/internal/model"
)

// Index resolves participants to phone numbers by card and by name.
//
// An Index is built once by Build and never mutated afterwards, so it is
// safe to share between goroutines.
type Index struct {
	byCard    map[model.Card]string
	byName    map[string]string
	ambiguous map[string]struct{}
	rows      int
}

// Build indexes roster rows.
//
// Rows with an empty phone number are skipped. A malformed or empty card
// keeps the row out of the card index only. A name seen on two or more rows
// is removed from the name index and stays excluded for the rest of the
// build; card lookups for those rows are unaffected.
//
// Build never fails; per-row problems are logged and the row (or field) is
// omitted.
func Build(rows []model.RosterRow) *Index {
	idx := &Index{
		byCard:    make(map[model.Card]string),
		byName:    make(map[string]string),
		ambiguous: make(map[string]struct{}),
		rows:      len(rows),
	}

	for _, row := range rows {
		name := model.NormalizeName(row.Name)
		phone := strings.TrimSpace(row.Phone)
		if phone == "" {
			slog.Debug("phone number empty, skipping", "name", name)
			continue
		}

		if strings.TrimSpace(row.Card) == "" {
			slog.Info("card empty", "name", name)
		} else if card, err := model.ParseCard(row.Card); err != nil {
			slog.Error("failed to parse card", "name", name, "card", row.Card, "error", err)
		} else {
			if prev, ok := idx.byCard[card]; ok && prev != phone {
				slog.Warn("card listed twice, keeping last phone number", "card", card, "name", name)
			}
			idx.byCard[card] = phone
		}

		if name == "" {
			continue
		}
		if _, dup := idx.ambiguous[name]; dup {
			slog.Warn("duplicate name", "name", name)
			continue
		}
		if _, seen := idx.byName[name]; seen {
			slog.Warn("duplicate name", "name", name)
			delete(idx.byName, name)
			idx.ambiguous[name] = struct{}{}
			continue
		}
		idx.byName[name] = phone
	}

	return idx
}

// Lookup resolves a phone number, trying the card first and the name second.
func (idx *Index) Lookup(card model.Card, name string) (string, bool) {
	if phone, ok := idx.ByCard(card); ok {
		return phone, true
	}
	return idx.ByName(name)
}

// ByCard returns the phone number registered for a card.
func (idx *Index) ByCard(card model.Card) (string, bool) {
	if !card.Valid() {
		return "", false
	}
	phone, ok := idx.byCard[card]
	return phone, ok
}

// ByName returns the phone number registered for an unambiguous name.
func (idx *Index) ByName(name string) (string, bool) {
	phone, ok := idx.byName[model.NormalizeName(name)]
	return phone, ok
}

// Ambiguous reports whether the name occurred on more than one roster row.
func (idx *Index) Ambiguous(name string) bool {
	_, ok := idx.ambiguous[model.NormalizeName(name)]
	return ok
}

// Stats summarizes an index for reporting.
type Stats struct {
	Rows      int      `json:"rows"`
	Cards     int      `json:"cards"`
	Names     int      `json:"names"`
	Ambiguous []string `json:"ambiguous"`
}

// Stats returns counts and the sorted list of ambiguous names.
func (idx *Index) Stats() Stats {
	amb := make([]string, 0, len(idx.ambiguous))
	for name := range idx.ambiguous {
		amb = append(amb, name)
	}
	slices.Sort(amb)
	return Stats{
		Rows:      idx.rows,
		Cards:     len(idx.byCard),
		Names:     len(idx.byName),
		Ambiguous: amb,
	}
}
