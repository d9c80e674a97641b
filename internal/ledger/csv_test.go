package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racesms/internal/model"
)

func testRecord(card model.Card, state model.DeliveryState) model.Record {
	id := int64(21)
	return model.Record{
		Card:      card,
		Name:      "Jana Kovac",
		Outcome:   model.OutcomeCompleted,
		Text:      "Congratulations, Jana Kovac! You finished in 00:25:10.",
		MessageID: &id,
		State:     state,
	}
}

func TestCSV_LoadMissingFile(t *testing.T) {
	l, err := OpenCSV(filepath.Join(t.TempDir(), "sms.csv"))
	require.NoError(t, err)

	byCard, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, byCard)
}

func TestCSV_AppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sms.csv")
	ctx := context.Background()

	l, err := OpenCSV(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(ctx, testRecord(5, model.StateSent)))
	require.NoError(t, l.Close())

	l, err = OpenCSV(path)
	require.NoError(t, err)
	_, err = l.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, l.Append(ctx, testRecord(6, model.StateStored)))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "card,name,stat,sms_text,sms_id,sms_state\n" +
		"5,Jana Kovac,1,\"Congratulations, Jana Kovac! You finished in 00:25:10.\",21,sent\n" +
		"6,Jana Kovac,1,\"Congratulations, Jana Kovac! You finished in 00:25:10.\",21,stored\n"
	assert.Equal(t, want, string(data))
}

func TestCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sms.csv")
	ctx := context.Background()

	l, err := OpenCSV(path)
	require.NoError(t, err)
	rec := testRecord(5, model.StateSent)
	rec.MessageID = nil
	require.NoError(t, l.Append(ctx, rec))
	require.NoError(t, l.Close())

	records, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.Card(5), records[0].Card)
	assert.Equal(t, model.OutcomeCompleted, records[0].Outcome)
	assert.Nil(t, records[0].MessageID)
	assert.Equal(t, model.StateSent, records[0].State)
	assert.Equal(t, int64(1), records[0].Seq)
}

func TestCSV_LoadFoldsByCard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sms.csv")
	content := "card,name,stat,sms_text,sms_id,sms_state\n" +
		"5,Jana Kovac,1,hello,20,1\n" +
		"5,Jana Kovac,1,hello,21,5\n" +
		"5,Jana Kovac,1,hello,22,failed\n" +
		"7,Eva Mala,3,contact officials,,stored\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	l, err := OpenCSV(path)
	require.NoError(t, err)

	byCard, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, byCard, 2)

	assert.True(t, byCard[5].Delivered())
	require.NotNil(t, byCard[5].MessageID)
	assert.Equal(t, int64(21), *byCard[5].MessageID)

	assert.Equal(t, model.OutcomeMissingCheckpoint, byCard[7].Outcome)
	assert.Equal(t, model.StateStored, byCard[7].State)
}

func TestCSV_SecondSentIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sms.csv")
	ctx := context.Background()

	l, err := OpenCSV(path)
	require.NoError(t, err)
	defer l.Close()

	_, err = l.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, l.Append(ctx, testRecord(5, model.StateSent)))
	require.NoError(t, l.Append(ctx, testRecord(5, model.StateSent)))

	records, err := l.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCSV_MalformedRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sms.csv")
	content := "card,name,stat,sms_text,sms_id,sms_state\nabc,Jana,1,hi,,sent\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	l, err := OpenCSV(path)
	require.NoError(t, err)

	_, err = l.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestCSV_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sms.csv")
	require.NoError(t, os.WriteFile(path, []byte("card,name\n5,Jana\n"), 0644))

	l, err := OpenCSV(path)
	require.NoError(t, err)

	_, err = l.Load(context.Background())
	assert.Error(t, err)
}

func TestCSV_RejectsMissingCard(t *testing.T) {
	l, err := OpenCSV(filepath.Join(t.TempDir(), "sms.csv"))
	require.NoError(t, err)

	err = l.Append(context.Background(), testRecord(model.NoCard, model.StateSent))
	assert.Error(t, err)
}

func TestOpenCSV_Directory(t *testing.T) {
	_, err := OpenCSV(t.TempDir())
	assert.Error(t, err)
}

func TestOpen_SelectsBackend(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(filepath.Join(dir, "sms.csv"))
	require.NoError(t, err)
	_, isCSV := l.(*CSV)
	assert.True(t, isCSV)
	require.NoError(t, l.Close())

	l, err = Open(filepath.Join(dir, "sms.db"))
	require.NoError(t, err)
	_, isCSV = l.(*CSV)
	assert.False(t, isCSV)
	require.NoError(t, l.Append(context.Background(), testRecord(5, model.StateSent)))
	byCard, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, byCard[5].Delivered())
	require.NoError(t, l.Close())
}

func TestIsSQLite(t *testing.T) {
	assert.True(t, IsSQLite("ledger.db"))
	assert.True(t, IsSQLite("/var/lib/racesms/ledger.SQLITE3"))
	assert.False(t, IsSQLite("sms.csv"))
	assert.False(t, IsSQLite("sms"))
}
