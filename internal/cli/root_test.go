package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "migrate", "seed"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("db"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("env-file"))
}

func TestMigrateCommand_CreatesSchema(t *testing.T) {
	t.Setenv("PREFS_DIR", t.TempDir())
	dbPath := t.TempDir() + "/crm.db"

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"migrate", "--env-file", "", "--db", dbPath})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, dbPath)
}

func TestSeedCommand_LoadsFixture(t *testing.T) {
	dbPath := t.TempDir() + "/crm.db"

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"seed", "--env-file", "", "--db", dbPath, "--file", "testdata/seed.yaml"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "seeded 2 users, 2 contacts, 2 notifications")
}
