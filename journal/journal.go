// Package journal keeps a local record of every submission made from this
// machine. The construction flow never reads it back.
package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"math"
	"time"

	"github.com/deso-protocol/go-deadlock"
	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
)

const (
	// <prefix 1 byte, id 8 bytes> -> gob(Record)
	PrefixRecords = byte(0)

	// <prefix 1 byte, transaction hash> -> <id 8 bytes>
	PrefixHashToID = byte(1)

	// Key of the badger sequence handing out record ids.
	PrefixSequence = byte(2)

	sequenceBandwidth = 64
)

var ErrNotFound = errors.New("record not found")

type Record struct {
	ID          uint64
	Operation   string
	Network     string
	Sender      string
	Receiver    string
	Amount      uint64
	Hash        string
	ErrorCode   int32
	Error       string
	SubmittedAt time.Time
}

func (r *Record) Succeeded() bool {
	return r.Hash != "" && r.Error == ""
}

type Journal struct {
	db       *badger.DB
	sequence *badger.Sequence

	mutex  deadlock.Mutex
	closed bool
}

// Open opens the journal in directory, or in memory when directory is empty.
func Open(directory string) (*Journal, error) {
	opts := badger.DefaultOptions(directory).WithLogger(nil)
	if directory == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open journal at %q", directory)
	}

	journal, err := NewJournal(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return journal, nil
}

func NewJournal(db *badger.DB) (*Journal, error) {
	sequence, err := db.GetSequence([]byte{PrefixSequence}, sequenceBandwidth)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create journal sequence")
	}

	return &Journal{
		db:       db,
		sequence: sequence,
	}, nil
}

func recordKey(id uint64) []byte {
	key := append([]byte{}, PrefixRecords)
	return binary.BigEndian.AppendUint64(key, id)
}

func hashKey(hash string) []byte {
	key := append([]byte{}, PrefixHashToID)
	return append(key, hash...)
}

// Put assigns record an id and stores it.
func (j *Journal) Put(record *Record) (uint64, error) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if j.closed {
		return 0, errors.New("journal is closed")
	}

	// Ids start at 1 so that 0 never names a record.
	id, err := j.sequence.Next()
	if err != nil {
		return 0, errors.Wrap(err, "unable to allocate record id")
	}
	id++

	stored := *record
	stored.ID = id

	value := bytes.NewBuffer([]byte{})
	if err := gob.NewEncoder(value).Encode(&stored); err != nil {
		return 0, errors.Wrap(err, "unable to encode record")
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(id), value.Bytes()); err != nil {
			return err
		}
		if stored.Hash == "" {
			return nil
		}
		return txn.Set(hashKey(stored.Hash), recordKey(id)[1:])
	})
	if err != nil {
		return 0, errors.Wrap(err, "unable to store record")
	}

	record.ID = id
	return id, nil
}

func (j *Journal) Get(id uint64) (*Record, error) {
	var record *Record
	err := j.db.View(func(txn *badger.Txn) error {
		var err error
		record, err = getRecord(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (j *Journal) GetByHash(hash string) (*Record, error) {
	var record *Record
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(hashKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		idBytes, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		record, err = getRecord(txn, binary.BigEndian.Uint64(idBytes))
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func getRecord(txn *badger.Txn, id uint64) (*Record, error) {
	item, err := txn.Get(recordKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var record Record
	err = item.Value(func(value []byte) error {
		return gob.NewDecoder(bytes.NewReader(value)).Decode(&record)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to decode record %d", id)
	}
	return &record, nil
}

// List returns up to limit records, newest first. A limit of zero or less
// returns everything.
func (j *Journal) List(limit int) ([]*Record, error) {
	records := []*Record{}

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte{PrefixRecords}

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(recordKey(math.MaxUint64)); it.ValidForPrefix(opts.Prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}

			var record Record
			err := it.Item().Value(func(value []byte) error {
				return gob.NewDecoder(bytes.NewReader(value)).Decode(&record)
			})
			if err != nil {
				return errors.Wrapf(err, "unable to decode record at %x", it.Item().Key())
			}
			records = append(records, &record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (j *Journal) Close() error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if err := j.sequence.Release(); err != nil {
		j.db.Close()
		return errors.Wrap(err, "unable to release journal sequence")
	}
	return j.db.Close()
}
