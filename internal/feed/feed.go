// Package feed reads competition results for a reconciliation pass.
//
// The live MeOS MOP feed is not implemented here; results are read from a
// CSV export with columns card,name,stat,time.
package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roach88/racesms/internal/model"
)

// Result table column names.
const (
	ColumnCard = "card"
	ColumnName = "name"
	ColumnStat = "stat"
	ColumnTime = "time"
)

// Source yields a finite, ordered sequence of results.
type Source interface {
	Results(ctx context.Context) ([]model.Result, error)
}

// CSVSource reads results from a CSV file.
type CSVSource struct {
	Path string
}

// NewCSVSource returns a source reading path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Results reads the whole file. Row order is feed order.
func (s *CSVSource) Results(ctx context.Context) ([]model.Result, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	defer f.Close()
	return ReadCSV(ctx, f)
}

// ReadCSV parses a results table. Columns name and stat are required; card
// may be empty on a row; time is required for completed results only.
// Any malformed row fails the whole read.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read results: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read results header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{ColumnCard, ColumnName, ColumnStat} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("read results: missing column %q", required)
		}
	}

	get := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	results := []model.Result{}
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read results: %w", err)
		}

		res, err := ParseResult(get(rec, ColumnCard), get(rec, ColumnName), get(rec, ColumnStat), get(rec, ColumnTime))
		if err != nil {
			return nil, fmt.Errorf("read results line %d: %w", line, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// ParseResult builds a Result from the raw fields of one results row.
func ParseResult(card, name, stat, elapsed string) (model.Result, error) {
	c, err := model.ParseCard(card)
	if err != nil {
		return model.Result{}, err
	}
	outcome, err := model.ParseOutcome(stat)
	if err != nil {
		return model.Result{}, err
	}
	d, err := model.ParseElapsed(elapsed)
	if err != nil {
		return model.Result{}, err
	}
	if outcome == model.OutcomeCompleted && elapsed == "" {
		return model.Result{}, fmt.Errorf("completed result for %q has no time", name)
	}
	return model.Result{Card: c, Name: name, Outcome: outcome, Elapsed: d}, nil
}
