package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/transport_failures.yaml")
	require.NoError(t, err)

	assert.Equal(t, "transport_failures", s.Name)
	assert.Len(t, s.Roster, 3)
	assert.Equal(t, "modem busy", s.Transport.CreateErrors["+421900111222"])
	require.Len(t, s.Passes, 1)
	assert.Len(t, s.Passes[0].Results, 3)
	assert.Nil(t, s.Transport.Modems)
}

func TestLoadScenario_EmptyModemList(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/no_modem.yaml")
	require.NoError(t, err)
	require.NotNil(t, s.Transport.Modems)
	assert.Empty(t, *s.Transport.Modems)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: y\npasses: [{results: []}]\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: y\npasses: [{results: []}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\npasses: [{results: []}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no passes",
			content: "name: x\ndescription: y\n",
			wantErr: "passes list is required",
		},
		{
			name:    "unknown disposition",
			content: "name: x\ndescription: y\npasses: [{results: [{name: a, stat: '15'}], expect: [{disposition: sent}]}]\n",
			wantErr: "unknown disposition",
		},
		{
			name:    "expect length mismatch",
			content: "name: x\ndescription: y\npasses: [{results: [], expect: [{disposition: failed}]}]\n",
			wantErr: "expect has 1 entries for 0 results",
		},
		{
			name:    "bad ledger state",
			content: "name: x\ndescription: y\nledger: [{card: 5, name: a, state: lost}]\npasses: [{results: []}]\n",
			wantErr: "ledger[0]",
		},
		{
			name:    "ledger without card",
			content: "name: x\ndescription: y\nledger: [{name: a, state: sent}]\npasses: [{results: []}]\n",
			wantErr: "card must be positive",
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: y\npasses: [{results: []}]\nassertions: [{type: trace_order}]\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "sent_to without phone",
			content: "name: x\ndescription: y\npasses: [{results: []}]\nassertions: [{type: sent_to}]\n",
			wantErr: "phone is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
