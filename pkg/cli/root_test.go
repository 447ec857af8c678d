package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand("1.2.3")
	require.NotNil(t, cmd)
	assert.Equal(t, "ekaya-query", cmd.Use)
	assert.Equal(t, "1.2.3", cmd.Version)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand("test")
	for _, name := range []string{"validate", "sql", "run", "encrypt"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand("test")

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("catalog"))
}

func TestRequestFlags(t *testing.T) {
	cmd := NewRootCommand("test")

	for _, name := range []string{"sql", "run"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			for _, flag := range []string{"param", "filter", "sort", "page", "metadata"} {
				assert.NotNil(t, sub.Flags().Lookup(flag), flag)
			}
			assert.Equal(t, "p", sub.Flags().Lookup("param").Shorthand)
		})
	}

	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	assert.NotNil(t, runCmd.Flags().Lookup("token"))

	sqlCmd, _, err := cmd.Find([]string{"sql"})
	require.NoError(t, err)
	assert.Nil(t, sqlCmd.Flags().Lookup("token"))

	validateCmd, _, err := cmd.Find([]string{"validate"})
	require.NoError(t, err)
	assert.NotNil(t, validateCmd.Flags().Lookup("connect"))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))

	wrapped := WrapExitError(ExitFailure, "query failed", assert.AnError)
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.Equal(t, "query failed: "+assert.AnError.Error(), wrapped.Error())
}
