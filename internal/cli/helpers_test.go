package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testRoster = `name,phone_number,card
Jana Kovac,+421900111222,5
Peter Novak,+421900333444,7
Eva Mala,+421900555666,
Eva Mala,+421900777888,
`

const testResults = `card,name,stat,time
5,Jana Kovac,1,00:25:10
7,Peter Novak,15,
,Eva Mala,1,00:31:02
`

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
