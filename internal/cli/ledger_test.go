package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

const testLedger = `card,name,stat,sms_text,sms_id,sms_state
5,Jana Kovac,1,"Congratulations, Jana Kovac!",21,stored
5,Jana Kovac,1,"Congratulations, Jana Kovac!",22,sent
7,Peter Novak,3,"Peter Novak, please contact the officials.",,failed
`

func TestLedgerList_Text(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "sms.csv", testLedger)

	stdout, err := executeRoot(t, "ledger", "list", "--ledger", path)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace([]byte(stdout)), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "Jana Kovac")
	assert.Contains(t, string(lines[0]), "stored")
	assert.Contains(t, string(lines[1]), "22")
	assert.Contains(t, string(lines[2]), "missing_checkpoint")
	assert.Contains(t, string(lines[2]), " - ")
}

func TestLedgerList_JSON(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "sms.csv", testLedger)

	stdout, err := executeRoot(t, "--format", "json", "ledger", "list", "--ledger", path)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   []LedgerEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 3)
	assert.Equal(t, int64(1), resp.Data[0].Seq)
	require.NotNil(t, resp.Data[1].SMSID)
	assert.Equal(t, int64(22), *resp.Data[1].SMSID)
	assert.Nil(t, resp.Data[2].SMSID)
	assert.Equal(t, "failed", string(resp.Data[2].State))
}

func TestLedgerList_MissingFileIsEmpty(t *testing.T) {
	stdout, err := executeRoot(t, "ledger", "list", "--ledger", filepath.Join(t.TempDir(), "sms.csv"))
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestLedgerList_Malformed(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "sms.csv", "card,name\n5,Jana\n")

	_, err := executeRoot(t, "ledger", "list", "--ledger", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to read ledger")
}
