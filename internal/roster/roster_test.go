package roster

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racesms/internal/model"
)

func TestBuild_IndexesByCardAndName(t *testing.T) {
	idx := Build([]model.RosterRow{
		{Name: "Jana Kovac", Phone: "+421900111222", Card: "5"},
		{Name: "Peter Novak", Phone: "+421900333444", Card: ""},
	})

	phone, ok := idx.ByCard(5)
	require.True(t, ok)
	assert.Equal(t, "+421900111222", phone)

	phone, ok = idx.ByName("Peter Novak")
	require.True(t, ok)
	assert.Equal(t, "+421900333444", phone)

	_, ok = idx.ByCard(model.NoCard)
	assert.False(t, ok)
}

func TestBuild_SkipsEmptyPhone(t *testing.T) {
	idx := Build([]model.RosterRow{
		{Name: "Jana Kovac", Phone: "", Card: "5"},
	})

	_, ok := idx.ByCard(5)
	assert.False(t, ok)
	_, ok = idx.ByName("Jana Kovac")
	assert.False(t, ok)
}

func TestBuild_MalformedCardStillIndexesName(t *testing.T) {
	idx := Build([]model.RosterRow{
		{Name: "Jana Kovac", Phone: "+421900111222", Card: "five"},
	})

	assert.Equal(t, 0, idx.Stats().Cards)
	phone, ok := idx.ByName("Jana Kovac")
	require.True(t, ok)
	assert.Equal(t, "+421900111222", phone)
}

func TestBuild_DuplicateNameExcluded(t *testing.T) {
	idx := Build([]model.RosterRow{
		{Name: "Jana Kovac", Phone: "+421900111222", Card: "5"},
		{Name: "Jana Kovac", Phone: "+421900999888", Card: "6"},
	})

	_, ok := idx.ByName("Jana Kovac")
	assert.False(t, ok)
	assert.True(t, idx.Ambiguous("Jana Kovac"))

	// Distinct cards for the same name still resolve.
	phone, ok := idx.ByCard(5)
	require.True(t, ok)
	assert.Equal(t, "+421900111222", phone)
	phone, ok = idx.ByCard(6)
	require.True(t, ok)
	assert.Equal(t, "+421900999888", phone)
}

func TestBuild_ThirdOccurrenceStaysExcluded(t *testing.T) {
	idx := Build([]model.RosterRow{
		{Name: "Jana Kovac", Phone: "1"},
		{Name: "Jana Kovac", Phone: "2"},
		{Name: "Jana Kovac", Phone: "3"},
		{Name: "Eva Mala", Phone: "4"},
	})

	_, ok := idx.ByName("Jana Kovac")
	assert.False(t, ok)

	stats := idx.Stats()
	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 1, stats.Names)
	assert.Equal(t, []string{"Jana Kovac"}, stats.Ambiguous)
}

func TestBuild_DuplicateNamesWithoutCardsUnresolvable(t *testing.T) {
	idx := Build([]model.RosterRow{
		{Name: "Jana Kovac", Phone: "+421900111222"},
		{Name: "Jana Kovac", Phone: "+421900999888"},
	})

	_, ok := idx.Lookup(model.NoCard, "Jana Kovac")
	assert.False(t, ok)
}

func TestBuild_NormalizesNames(t *testing.T) {
	idx := Build([]model.RosterRow{
		{Name: "Kováč", Phone: "+421900111222"},
	})

	phone, ok := idx.ByName(" Kováč ")
	require.True(t, ok)
	assert.Equal(t, "+421900111222", phone)
}

func TestLookup_PrefersCard(t *testing.T) {
	idx := Build([]model.RosterRow{
		{Name: "Jana Kovac", Phone: "by-card", Card: "5"},
		{Name: "Someone Else", Phone: "by-name"},
	})

	phone, ok := idx.Lookup(5, "Someone Else")
	require.True(t, ok)
	assert.Equal(t, "by-card", phone)

	phone, ok = idx.Lookup(99, "Someone Else")
	require.True(t, ok)
	assert.Equal(t, "by-name", phone)
}

func TestReadCSV(t *testing.T) {
	input := "card,name,phone_number\n5,Jana Kovac,+421900111222\n,Peter Novak,+421900333444\n"

	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.RosterRow{Name: "Jana Kovac", Phone: "+421900111222", Card: "5"}, rows[0])
	assert.Equal(t, "", rows[1].Card)
}

func TestReadCSV_WithoutCardColumn(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("name,phone_number\nJana Kovac,123\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Card)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("name,card\nJana,5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phone_number")
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,phone_number,card\nJana Kovac,+421900111222,5\n"), 0644))

	idx, err := LoadFile(path)
	require.NoError(t, err)
	phone, ok := idx.Lookup(5, "")
	require.True(t, ok)
	assert.Equal(t, "+421900111222", phone)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
