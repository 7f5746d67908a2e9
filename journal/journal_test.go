package journal

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	journal, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })
	return journal
}

func TestPutGet(t *testing.T) {
	require := require.New(t)
	journal := newTestJournal(t)

	record := &Record{
		Operation:   "transfer",
		Network:     "local",
		Sender:      "0xa",
		Receiver:    "0xb",
		Amount:      100,
		Hash:        "abcd",
		SubmittedAt: time.Unix(1700000000, 0).UTC(),
	}
	id, err := journal.Put(record)
	require.NoError(err)
	require.Equal(uint64(1), id)
	require.Equal(id, record.ID)

	stored, err := journal.Get(id)
	require.NoError(err)
	require.Equal(record.Sender, stored.Sender)
	require.Equal(record.Amount, stored.Amount)
	require.True(record.SubmittedAt.Equal(stored.SubmittedAt))
	require.True(stored.Succeeded())

	byHash, err := journal.GetByHash("abcd")
	require.NoError(err)
	require.Equal(id, byHash.ID)

	_, err = journal.Get(99)
	require.True(errors.Is(err, ErrNotFound))

	_, err = journal.GetByHash("ffff")
	require.True(errors.Is(err, ErrNotFound))
}

func TestFailedSubmissionHasNoHashIndex(t *testing.T) {
	require := require.New(t)
	journal := newTestJournal(t)

	id, err := journal.Put(&Record{Operation: "transfer", ErrorCode: 501, Error: "Mempool is full"})
	require.NoError(err)

	stored, err := journal.Get(id)
	require.NoError(err)
	require.False(stored.Succeeded())
	require.Equal(int32(501), stored.ErrorCode)
}

func TestListNewestFirst(t *testing.T) {
	require := require.New(t)
	journal := newTestJournal(t)

	for i := uint64(1); i <= 5; i++ {
		_, err := journal.Put(&Record{Operation: "transfer", Amount: i})
		require.NoError(err)
	}

	records, err := journal.List(0)
	require.NoError(err)
	require.Len(records, 5)
	for i, record := range records {
		require.Equal(uint64(5-i), record.Amount)
	}

	records, err = journal.List(2)
	require.NoError(err)
	require.Len(records, 2)
	require.Equal(uint64(5), records[0].Amount)
}

func TestEmptyList(t *testing.T) {
	require := require.New(t)
	journal := newTestJournal(t)

	records, err := journal.List(10)
	require.NoError(err)
	require.Empty(records)
}

func TestPersistsAcrossReopen(t *testing.T) {
	require := require.New(t)
	directory := t.TempDir()

	journal, err := Open(directory)
	require.NoError(err)
	first, err := journal.Put(&Record{Operation: "create_account", Hash: "aa"})
	require.NoError(err)
	require.NoError(journal.Close())
	require.NoError(journal.Close())

	journal, err = Open(directory)
	require.NoError(err)
	defer journal.Close()

	second, err := journal.Put(&Record{Operation: "transfer", Hash: "bb"})
	require.NoError(err)
	require.Greater(second, first)

	records, err := journal.List(0)
	require.NoError(err)
	require.Len(records, 2)
	require.Equal("bb", records[0].Hash)
	require.Equal("aa", records[1].Hash)
}

func TestPutAfterClose(t *testing.T) {
	journal, err := Open("")
	require.NoError(t, err)
	require.NoError(t, journal.Close())

	_, err = journal.Put(&Record{})
	require.Error(t, err)
}
