package common

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBatch_ConsolidatesPerRepresentative(t *testing.T) {
	c, logger := newTestContainer(t, stubExtractor{rows: statementRows(), fail: "broken.pdf"})
	in := t.TempDir()
	for _, name := range []string{"jan.xlsx", "feb.xlsx", "broken.pdf", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(in, name), []byte("x"), 0600))
	}
	out := filepath.Join(t.TempDir(), "consolidated")

	outcome, err := RunBatch(context.Background(), c, BatchOptions{InputDir: in, OutputDir: out})
	require.NoError(t, err)

	summary := outcome.Summary
	assert.Len(t, summary.Files, 3, "notes.txt is not a statement")
	assert.Len(t, summary.Processed, 2)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "broken.pdf", filepath.Base(summary.Failed[0].File))
	assert.Len(t, summary.Transactions, 6)
	assert.Equal(t, 3, summary.Duplicates, "jan and feb repeat each other")
	assert.True(t, logger.HasEntry("WARN", "Potential duplicate transaction"))

	assert.Equal(t, []string{
		filepath.Join(out, "Alejandro_Ruiz.csv"),
		filepath.Join(out, "Beatriz_Salgado.csv"),
	}, outcome.Files)

	data, err := os.ReadFile(outcome.Files[0])
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "# Consolidated from source files:\n"))
	assert.Contains(t, content, "# - feb.xlsx\n")
	assert.Contains(t, content, "# - jan.xlsx\n")
	assert.NotContains(t, content, "broken.pdf")
	assert.Equal(t, 4, strings.Count(content, "Alejandro Ruiz"))
}

func TestRunBatch_EmptyDirectory(t *testing.T) {
	c, logger := newTestContainer(t, stubExtractor{rows: statementRows()})

	outcome, err := RunBatch(context.Background(), c, BatchOptions{InputDir: t.TempDir(), OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, outcome.Files)
	assert.Empty(t, outcome.Summary.Transactions)
	assert.True(t, logger.HasEntry("WARN", "No supported files found in input directory"))
}

func TestRunBatch_RequiresDirectories(t *testing.T) {
	c, _ := newTestContainer(t, stubExtractor{rows: statementRows()})

	_, err := RunBatch(context.Background(), c, BatchOptions{InputDir: t.TempDir()})
	assert.Error(t, err)

	_, err = RunBatch(context.Background(), c, BatchOptions{InputDir: filepath.Join(t.TempDir(), "missing"), OutputDir: t.TempDir()})
	assert.Error(t, err)
}

func TestRunBatch_SavesEveryStatement(t *testing.T) {
	c, _ := newTestContainer(t, stubExtractor{rows: statementRows()})
	in := t.TempDir()
	for _, name := range []string{"jan.xlsx", "feb.xlsx"} {
		require.NoError(t, os.WriteFile(filepath.Join(in, name), []byte("x"), 0600))
	}

	_, err := RunBatch(context.Background(), c, BatchOptions{InputDir: in, OutputDir: t.TempDir(), Save: true})
	require.NoError(t, err)

	st, err := c.GetStore()
	require.NoError(t, err)
	list, err := st.ListStatements(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
