// Package store persists notes and styles in an embedded BadgerDB
// key-value store. Records are msgpack-encoded under hierarchical keys
// such as note:<id> or style:name:<name>.
package store

import (
	"context"
	"errors"
	"iter"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"talknote-go/internal/logger"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("record not found")

const separator = ':'

// Key is a hierarchical path, encoded with ':' between segments.
type Key []string

func (k Key) String() string { return strings.Join(k, string(separator)) }

func (k Key) encode() []byte { return []byte(k.String()) }

type Entry struct {
	Key   Key
	Value []byte
}

// DB is a BadgerDB-backed key-value store.
type DB struct {
	db *badger.DB
}

type Options struct {
	// Dir holds the data files. Required unless InMemory is set.
	Dir string

	// InMemory runs badger without disk persistence, for tests.
	InMemory bool

	Logger *logger.Logger
}

func Open(opts Options) (*DB, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	log := opts.Logger
	if log == nil {
		log = logger.New()
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{log.Component("badger")})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Get(_ context.Context, key Key) ([]byte, error) {
	var val []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key.encode())
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return val, err
}

func (d *DB) Set(_ context.Context, key Key, value []byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key.encode(), value)
	})
}

// Delete removes a key. No error if the key does not exist.
func (d *DB) Delete(_ context.Context, key Key) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key.encode())
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// List iterates over all entries under prefix in key order.
func (d *DB) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	// Trailing separator so "note" does not match "notebook".
	p := append(prefix.encode(), separator)

	return func(yield func(Entry, error) bool) {
		err := d.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = p
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err != nil {
					if !yield(Entry{}, err) {
						return nil
					}
					continue
				}
				k := Key(strings.Split(string(item.KeyCopy(nil)), string(separator)))
				if !yield(Entry{Key: k, Value: val}, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(Entry{}, err)
		}
	}
}

// BatchSet stores several entries and deletes several keys in one
// transaction.
func (d *DB) BatchSet(_ context.Context, set []Entry, del []Key) error {
	return d.db.Update(func(txn *badger.Txn) error {
		for _, e := range set {
			if err := txn.Set(e.Key.encode(), e.Value); err != nil {
				return err
			}
		}
		for _, k := range del {
			if err := txn.Delete(k.encode()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DB) Close() error {
	return d.db.Close()
}

// badgerLogger routes badger warnings and errors to logrus and drops the
// chatty info and debug output.
type badgerLogger struct {
	log *logger.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.log.Errorf(strings.TrimSpace(f), v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.log.Warnf(strings.TrimSpace(f), v...) }
func (badgerLogger) Infof(string, ...interface{})          {}
func (badgerLogger) Debugf(string, ...interface{})         {}
