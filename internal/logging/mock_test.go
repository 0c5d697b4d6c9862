package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockLogger_ChildrenShareEntries(t *testing.T) {
	root := NewMockLogger()
	child := root.WithField(FieldBlock, 1).WithError(errors.New("bad row"))

	root.Info("start")
	child.Warn("skipped", Field{Key: FieldRow, Value: 7})

	entries := root.Entries()
	require.Len(t, entries, 2)
	assert.True(t, root.HasEntry("WARN", "skipped"))

	warn := root.GetEntriesByLevel("WARN")
	require.Len(t, warn, 1)
	assert.EqualError(t, warn[0].Error, "bad row")
	assert.Equal(t, []Field{{Key: FieldBlock, Value: 1}, {Key: FieldRow, Value: 7}}, warn[0].Fields)

	root.Clear()
	assert.Empty(t, child.(*MockLogger).Entries())
}

func TestMockLogger_ZeroValueUsable(t *testing.T) {
	var m MockLogger
	m.Error("oops")
	m.Fatalf("fatal %d", 1)
	assert.True(t, m.HasEntry("FATAL", "fatal 1"))
	assert.Len(t, m.Entries(), 2)
}
