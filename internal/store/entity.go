package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD operations for one domain type.
//
// Key layout under the entity prefix:
//
//	<prefix><id>                          primary record (JSON)
//	<prefix>uniq:<index>:<value>          unique index entry -> id
//	<prefix>idx:<index>:<value>\x00<id>   multi index entry -> id
//
// Unique index conflicts are detected inside the same Badger
// transaction that writes the record, so two concurrent writers racing
// on the same value commit at most one record.
type Entity[T any] struct {
	store   *Store
	prefix  string
	id      func(*T) string
	uniques []uniqueIndex[T]
	multis  []multiIndex[T]
}

type uniqueIndex[T any] struct {
	name string
	key  func(*T) string
}

type multiIndex[T any] struct {
	name string
	keys func(*T) []string
}

// NewEntity creates a new Entity for type T. The id function extracts
// the primary key from a record.
func NewEntity[T any](s *Store, prefix string, id func(*T) string) *Entity[T] {
	return &Entity[T]{store: s, prefix: prefix, id: id}
}

// WithUnique adds a unique secondary index. Create and Update fail with
// ErrAlreadyExists when another record already claims the indexed value.
func (e *Entity[T]) WithUnique(name string, key func(*T) string) *Entity[T] {
	e.uniques = append(e.uniques, uniqueIndex[T]{name: name, key: key})
	return e
}

// WithMulti adds a non-unique secondary index. A record may produce any
// number of index values (including zero).
func (e *Entity[T]) WithMulti(name string, keys func(*T) []string) *Entity[T] {
	e.multis = append(e.multis, multiIndex[T]{name: name, keys: keys})
	return e
}

func (e *Entity[T]) primaryKey(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) uniqueKey(name, value string) []byte {
	return []byte(e.prefix + "uniq:" + name + ":" + value)
}

// multiKey terminates the value with NUL so that one indexed value is
// never a prefix of another ("science" vs "science fiction").
func (e *Entity[T]) multiKey(name, value, id string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value + "\x00" + id)
}

func (e *Entity[T]) multiPrefix(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value + "\x00")
}

// Create persists a new record. Returns ErrAlreadyExists on a primary
// key or unique index conflict.
func (e *Entity[T]) Create(ctx context.Context, record *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	recordID := e.id(record)
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		key := e.primaryKey(recordID)
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check existing key: %w", err)
		}

		for _, idx := range e.uniques {
			value := idx.key(record)
			uk := e.uniqueKey(idx.name, value)
			if _, err := txn.Get(uk); err == nil {
				return fmt.Errorf("unique index %s conflict on %q: %w", idx.name, value, ErrAlreadyExists)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check unique index: %w", err)
			}
			if err := txn.Set(uk, []byte(recordID)); err != nil {
				return fmt.Errorf("set unique index: %w", err)
			}
		}

		for _, idx := range e.multis {
			for _, value := range idx.keys(record) {
				if err := txn.Set(e.multiKey(idx.name, value, recordID), []byte(recordID)); err != nil {
					return fmt.Errorf("set index: %w", err)
				}
			}
		}

		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set record: %w", err)
		}
		return nil
	})
}

// Get retrieves a record by ID. Returns ErrNotFound if it does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record T
	err := e.store.db.View(func(txn *badger.Txn) error {
		return e.getInTxn(txn, id, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (e *Entity[T]) getInTxn(txn *badger.Txn, id string, dest *T) error {
	item, err := txn.Get(e.primaryKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, dest); err != nil {
			return fmt.Errorf("unmarshal record: %w", err)
		}
		return nil
	})
}

// GetByUnique retrieves a record through a unique index.
func (e *Entity[T]) GetByUnique(ctx context.Context, name, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.uniqueKey(name, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get unique index: %w", err)
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		return e.getInTxn(txn, id, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Update replaces an existing record and reindexes it. Returns
// ErrNotFound if the record does not exist and ErrAlreadyExists when a
// changed unique value is already claimed by another record.
func (e *Entity[T]) Update(ctx context.Context, record *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	recordID := e.id(record)
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		var old T
		if err := e.getInTxn(txn, recordID, &old); err != nil {
			return err
		}

		for _, idx := range e.uniques {
			oldValue, newValue := idx.key(&old), idx.key(record)
			if oldValue == newValue {
				continue
			}
			if err := txn.Delete(e.uniqueKey(idx.name, oldValue)); err != nil {
				return fmt.Errorf("delete stale unique index: %w", err)
			}
			uk := e.uniqueKey(idx.name, newValue)
			if _, err := txn.Get(uk); err == nil {
				return fmt.Errorf("unique index %s conflict on %q: %w", idx.name, newValue, ErrAlreadyExists)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check unique index: %w", err)
			}
			if err := txn.Set(uk, []byte(recordID)); err != nil {
				return fmt.Errorf("set unique index: %w", err)
			}
		}

		for _, idx := range e.multis {
			for _, value := range idx.keys(&old) {
				if err := txn.Delete(e.multiKey(idx.name, value, recordID)); err != nil {
					return fmt.Errorf("delete stale index: %w", err)
				}
			}
			for _, value := range idx.keys(record) {
				if err := txn.Set(e.multiKey(idx.name, value, recordID), []byte(recordID)); err != nil {
					return fmt.Errorf("set index: %w", err)
				}
			}
		}

		if err := txn.Set(e.primaryKey(recordID), data); err != nil {
			return fmt.Errorf("set record: %w", err)
		}
		return nil
	})
}

// List returns an iterator over all records in key order.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				if e.isIndexKey(it.Item().Key()) {
					continue
				}

				var record T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &record)
				})
				if err != nil {
					yield(nil, err)
					return err
				}
				if !yield(&record, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

// ListByIndex returns all records whose multi index holds the given
// value, in id order.
func (e *Entity[T]) ListByIndex(ctx context.Context, name, value string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []*T
	err := e.store.db.View(func(txn *badger.Txn) error {
		prefix := e.multiPrefix(name, value)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var recordID string
			if err := it.Item().Value(func(val []byte) error {
				recordID = string(val)
				return nil
			}); err != nil {
				return err
			}

			var record T
			if err := e.getInTxn(txn, recordID, &record); err != nil {
				return fmt.Errorf("resolve index entry %q: %w", recordID, err)
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

// Count returns the number of records, excluding index entries.
func (e *Entity[T]) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := e.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(e.prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); it.Next() {
			if !e.isIndexKey(it.Item().Key()) {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountByIndex returns the number of index entries for the given value
// without loading the records.
func (e *Entity[T]) CountByIndex(ctx context.Context, name, value string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := e.store.db.View(func(txn *badger.Txn) error {
		prefix := e.multiPrefix(name, value)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (e *Entity[T]) isIndexKey(key []byte) bool {
	remainder := strings.TrimPrefix(string(key), e.prefix)
	return strings.HasPrefix(remainder, "uniq:") || strings.HasPrefix(remainder, "idx:")
}
