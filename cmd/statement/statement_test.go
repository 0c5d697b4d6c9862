package statement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementCommand_Subcommands(t *testing.T) {
	assert.Equal(t, "statement", Cmd.Use)

	names := map[string]bool{}
	for _, sub := range Cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"list", "show", "delete", "token", "verify"} {
		assert.True(t, names[want], want)
	}
}

func TestStatementCommand_Flags(t *testing.T) {
	format := showCmd.Flags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "table", format.DefValue)

	ttl := tokenCmd.Flags().Lookup("ttl")
	require.NotNil(t, ttl)
	assert.Equal(t, (7 * 24 * time.Hour).String(), ttl.DefValue)
	assert.NotNil(t, tokenCmd.Flags().Lookup("representative"))

	assert.Error(t, showCmd.Args(showCmd, nil))
	assert.Error(t, deleteCmd.Args(deleteCmd, nil))
	assert.Error(t, tokenCmd.Args(tokenCmd, nil))
	assert.Error(t, verifyCmd.Args(verifyCmd, nil))
}
