package raglog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestAppendWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rag.csv")
	l := New(path, zerolog.Nop())
	require.True(t, l.Enabled())

	l.Append(Entry{
		ConversationID: 42,
		Query:          "lost money to crypto site",
		TopK:           5,
		ScamResults:    []int64{3, 7},
		ScamDistances:  []float64{0.12, 0.34},
		StrategyIDs:    []int64{1},
		Model:          "granite3.2:8b",
	})
	l.Append(Entry{ConversationID: NoConversation, Query: "hello", TopK: 5})

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "0", rows[1][0])
	assert.Equal(t, "42", rows[1][1])
	assert.Equal(t, "3;7", rows[1][5])
	assert.Equal(t, "0.120000;0.340000", rows[1][6])
	assert.Equal(t, "1", rows[2][0])
	assert.Equal(t, "-1", rows[2][1])
}

func TestIndexRecoveredAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rag.csv")
	l := New(path, zerolog.Nop())
	l.Append(Entry{ConversationID: 1, Query: "a", TopK: 5})
	l.Append(Entry{ConversationID: 1, Query: "b", TopK: 5})

	l2 := New(path, zerolog.Nop())
	l2.Append(Entry{ConversationID: 1, Query: "c", TopK: 5})

	rows := readRows(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, "2", rows[3][0])
}

// Two Logger instances on one path stand in for two worker processes:
// each append must pick up rows the other wrote, so the index sequence
// stays duplicate-free.
func TestInterleavedWritersKeepIndexesUnique(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rag.csv")
	a := New(path, zerolog.Nop())
	b := New(path, zerolog.Nop())

	a.Append(Entry{ConversationID: 1, Query: "a1", TopK: 5})
	b.Append(Entry{ConversationID: 2, Query: "b1", TopK: 5})
	a.Append(Entry{ConversationID: 1, Query: "a2", TopK: 5})
	b.Append(Entry{ConversationID: 2, Query: "b2", TopK: 5})

	rows := readRows(t, path)
	require.Len(t, rows, 5)
	for i, row := range rows[1:] {
		assert.Equal(t, strconv.Itoa(i), row[0])
	}
}

func TestDisabledLoggerDropsEntries(t *testing.T) {
	l := New("", zerolog.Nop())
	assert.False(t, l.Enabled())
	l.Append(Entry{ConversationID: 1, Query: "ignored", TopK: 5})
}
