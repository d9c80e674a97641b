package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roach88/racesms/internal/model"
)

// Roster table column names.
const (
	ColumnName  = "name"
	ColumnPhone = "phone_number"
	ColumnCard  = "card"
)

// ReadCSV reads roster rows from a CSV table with a header line.
// Column order is free; name and phone_number are required, card is optional.
func ReadCSV(r io.Reader) ([]model.RosterRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read roster: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read roster header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{ColumnName, ColumnPhone} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("read roster: missing column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []model.RosterRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster: %w", err)
		}
		rows = append(rows, model.RosterRow{
			Name:  field(rec, ColumnName),
			Phone: field(rec, ColumnPhone),
			Card:  field(rec, ColumnCard),
		})
	}
	return rows, nil
}

// LoadFile reads and indexes a roster CSV file.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return Build(rows), nil
}
