package indexeddb

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/webstore-go/internal/core/domain"
)

// Store is one object store of a DB. Each operation runs in its own
// transaction.
type Store struct {
	db     *DB
	name   string
	prefix []byte
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

func (s *Store) key(k string) []byte {
	out := make([]byte, 0, len(s.prefix)+len(k))
	out = append(out, s.prefix...)
	return append(out, k...)
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.factory.checkEnabled(); err != nil {
		return err
	}
	if s.db.isClosed() {
		return domain.ErrUnavailableBackend.WithCause(ErrClosed)
	}
	return nil
}

// Put writes value under key.
func (s *Store) Put(ctx context.Context, key, value string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	err := s.db.bdb.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(key), []byte(value))
	})
	return s.translate(err)
}

// Get reads key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.check(ctx); err != nil {
		return "", false, err
	}

	var value []byte
	err := s.db.bdb.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.translate(err)
	}
	return string(value), true, nil
}

// Has reports whether key exists without reading its value.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	err := s.db.bdb.View(func(txn *badger.Txn) error {
		_, err := txn.Get(s.key(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, s.translate(err)
	}
	return true, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	err := s.db.bdb.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(key))
	})
	return s.translate(err)
}

// Keys returns every key of the store in byte order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var keys []string
	err := s.db.bdb.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().Key()[len(s.prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return keys, nil
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	keys, err := s.Keys(ctx)
	return len(keys), err
}

// Clear removes every record of the store.
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}

	wb := s.db.bdb.NewWriteBatch()
	for _, k := range keys {
		if err := wb.Delete(s.key(k)); err != nil {
			wb.Cancel()
			return s.translate(err)
		}
	}
	return s.translate(wb.Flush())
}

func (s *Store) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, badger.ErrTxnTooBig):
		return domain.ErrQuotaExceeded.Detailf("store %s", s.name).WithCause(err)
	default:
		return domain.ErrUnavailableBackend.Detailf("store %s", s.name).WithCause(err)
	}
}
