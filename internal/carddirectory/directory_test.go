package carddirectory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Resolve(t *testing.T) {
	d := Default()

	name, ok := d.Resolve("0421")
	require.True(t, ok)
	assert.Equal(t, "Alejandro Ruiz", name)

	name, ok = d.Resolve(" 1785 ")
	require.True(t, ok)
	assert.Equal(t, "Hemisphere Trading O", name)

	_, ok = d.Resolve("0000")
	assert.False(t, ok)
}

func TestIsExcludedAccount(t *testing.T) {
	d := Default()

	tests := []struct {
		name     string
		last4    string
		merchant string
		want     bool
	}{
		{name: "system account with payment text", last4: "1785", merchant: "AUTO PAYMENT DEDUCTION", want: true},
		{name: "system account with normal merchant", last4: "1785", merchant: "DELTA AIR LINES", want: false},
		{name: "other account with payment text", last4: "0421", merchant: "Auto Payment Deduction", want: false},
		{name: "unknown account", last4: "0000", merchant: "auto payment deduction", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.IsExcludedAccount(tt.last4, tt.merchant))
		})
	}
}

func TestNew_LaterEntryWins(t *testing.T) {
	d := New([]Entry{
		{Last4: "1111", Representative: "First"},
		{Last4: "1111", Representative: "Second"},
	}, nil)

	name, _ := d.Resolve("1111")
	assert.Equal(t, "Second", name)
	assert.Len(t, d.Entries(), 1)
}

func TestEntries_Sorted(t *testing.T) {
	entries := Default().Entries()
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i-1].Representative, entries[i].Representative)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cards.yaml")
	content := `cards:
  - last4: "1234"
    representative: Ana Lopez
  - last4: "9999"
    representative: Ops Account
    excluded: true
excluded_descriptions:
  - Internal Sweep
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	d, err := Load(path)
	require.NoError(t, err)

	name, ok := d.Resolve("1234")
	assert.True(t, ok)
	assert.Equal(t, "Ana Lopez", name)
	assert.True(t, d.IsExcludedAccount("9999", "INTERNAL SWEEP 01"))
	assert.Equal(t, []string{"internal sweep"}, d.ExcludedDescriptions())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("cards:\n  - last4: \"12\"\n    representative: X\n"), 0o600))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "invalid last4")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("cards: []\n"), 0o600))
	_, err = Load(empty)
	assert.ErrorContains(t, err, "lists no cards")
}
