package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BadgerDB implements DB on a Badger directory.
type BadgerDB struct {
	db *badger.DB
}

// BadgerOption adjusts the options a BadgerDB is opened with.
type BadgerOption func(*badger.Options)

// InMemory keeps the whole store in RAM. The path is ignored.
func InMemory() BadgerOption {
	return func(o *badger.Options) {
		o.Dir, o.ValueDir = "", ""
		o.InMemory = true
	}
}

// SyncWrites fsyncs every write. The ledger is small, so this is the default.
func SyncWrites(on bool) BadgerOption {
	return func(o *badger.Options) { o.SyncWrites = on }
}

// NewBadger opens or creates the store at path. A second process on the
// same path fails with a lock error naming the directory.
func NewBadger(path string, opts ...BadgerOption) (*BadgerDB, error) {
	o := badger.DefaultOptions(path).
		WithLogger(nil).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1)
	for _, opt := range opts {
		opt(&o)
	}

	db, err := badger.Open(o)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "Cannot acquire directory lock") ||
			strings.Contains(msg, "resource temporarily unavailable") {
			return nil, fmt.Errorf("ledger at %s is locked by another swapengine process: %w", path, err)
		}
		return nil, fmt.Errorf("open ledger at %s: %w", path, err)
	}
	return &BadgerDB{db: db}, nil
}

// lookup copies the value at key; found is false for a missing key.
func (b *BadgerDB) lookup(key []byte) (val []byte, found bool, err error) {
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		val, err = item.ValueCopy(nil)
		return err
	})
	return val, found, err
}

func (b *BadgerDB) Get(key []byte) ([]byte, error) {
	val, found, err := b.lookup(key)
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %x", ErrNotFound, key)
	}
	return val, nil
}

func (b *BadgerDB) Has(key []byte) (bool, error) {
	_, found, err := b.lookup(key)
	if err != nil {
		return false, fmt.Errorf("badger has: %w", err)
	}
	return found, nil
}

func (b *BadgerDB) Put(key, value []byte) error {
	return b.update("put", func(txn *badger.Txn) error { return txn.Set(key, value) })
}

func (b *BadgerDB) Delete(key []byte) error {
	return b.update("delete", func(txn *badger.Txn) error { return txn.Delete(key) })
}

func (b *BadgerDB) update(op string, fn func(*badger.Txn) error) error {
	if err := b.db.Update(fn); err != nil {
		return fmt.Errorf("badger %s: %w", op, err)
	}
	return nil
}

// ForEach visits the keys under prefix in order. fn runs inside a read
// transaction and must not write; deletes go through a Batch.
func (b *BadgerDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 16, Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), val); err != nil {
				return err
			}
		}
		return nil
	})
}

// NewBatch returns a batch flushed atomically by Commit.
func (b *BadgerDB) NewBatch() Batch {
	return &badgerBatch{wb: b.db.NewWriteBatch()}
}

type badgerBatch struct {
	wb *badger.WriteBatch
}

func (bb *badgerBatch) Put(key, value []byte) error {
	return bb.wb.Set(clone(key), clone(value))
}

func (bb *badgerBatch) Delete(key []byte) error {
	return bb.wb.Delete(clone(key))
}

func (bb *badgerBatch) Commit() error {
	if err := bb.wb.Flush(); err != nil {
		return fmt.Errorf("badger batch: %w", err)
	}
	return nil
}

func (b *BadgerDB) Close() error {
	return b.db.Close()
}
