package quadstore

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStorage implements Storage on top of BadgerDB running entirely
// in-memory; nothing persists across a run.
type BadgerStorage struct {
	db *badger.DB
}

func NewBadgerStorage() (*BadgerStorage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger db: %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

func (s *BadgerStorage) Begin(writable bool) (Transaction, error) {
	txn := s.db.NewTransaction(writable)
	return &badgerTransaction{txn: txn, writable: writable}, nil
}

func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

type badgerTransaction struct {
	txn      *badger.Txn
	writable bool
}

func (t *badgerTransaction) Get(table Table, key []byte) ([]byte, error) {
	item, err := t.txn.Get(PrefixKey(table, key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var value []byte
	err = item.Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	return value, err
}

func (t *badgerTransaction) Set(table Table, key, value []byte) error {
	if !t.writable {
		return ErrTransactionRO
	}
	return t.txn.Set(PrefixKey(table, key), value)
}

func (t *badgerTransaction) Delete(table Table, key []byte) error {
	if !t.writable {
		return ErrTransactionRO
	}
	return t.txn.Delete(PrefixKey(table, key))
}

func (t *badgerTransaction) Scan(table Table, prefix []byte) (Iterator, error) {
	scanPrefix := PrefixKey(table, prefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = scanPrefix
	it := t.txn.NewIterator(opts)
	return &badgerIterator{it: it, tablePrefixLen: len(TablePrefix(table)), scanPrefix: scanPrefix}, nil
}

func (t *badgerTransaction) Commit() error {
	return t.txn.Commit()
}

func (t *badgerTransaction) Rollback() error {
	t.txn.Discard()
	return nil
}

type badgerIterator struct {
	it             *badger.Iterator
	tablePrefixLen int
	scanPrefix     []byte
	started        bool
	hasValue       bool
}

func (i *badgerIterator) Next() bool {
	if !i.started {
		i.it.Seek(i.scanPrefix)
		i.started = true
	} else {
		i.it.Next()
	}
	if !i.it.ValidForPrefix(i.scanPrefix) {
		i.hasValue = false
		return false
	}
	i.hasValue = true
	return true
}

func (i *badgerIterator) Key() []byte {
	if !i.hasValue {
		return nil
	}
	key := i.it.Item().Key()
	if len(key) <= i.tablePrefixLen {
		return nil
	}
	out := make([]byte, len(key)-i.tablePrefixLen)
	copy(out, key[i.tablePrefixLen:])
	return out
}

func (i *badgerIterator) Value() ([]byte, error) {
	if !i.hasValue {
		return nil, ErrNotFound
	}
	var value []byte
	err := i.it.Item().Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	return value, err
}

func (i *badgerIterator) Close() error {
	i.it.Close()
	return nil
}
