package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/matzehuels/stagemap/pkg/config"
	"github.com/matzehuels/stagemap/pkg/document"
)

// mapPrefix namespaces document keys in the badger keyspace.
var mapPrefix = []byte("map:")

// BadgerStore keeps documents in an embedded badger database.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the database in cfg.Dir.
func NewBadgerStore(cfg config.Badger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Dir).WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	// Maps are small; keep the footprint of a CLI process low.
	opts = opts.
		WithMemTableSize(8 << 20).
		WithValueLogFileSize(32 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithBlockCacheSize(8 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func mapKey(id string) []byte {
	return append(append([]byte{}, mapPrefix...), id...)
}

func (s *BadgerStore) Get(ctx context.Context, id string) (doc *document.Document, err error) {
	start := time.Now()
	defer func() { observeLoad(ctx, "badger", id, start, err) }()

	var data []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(mapKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return decode(data)
}

func (s *BadgerStore) Put(ctx context.Context, doc *document.Document) (err error) {
	start := time.Now()
	var data []byte
	defer func() { observeSave(ctx, "badger", doc.ID, len(data), start, err) }()

	if data, err = encode(doc); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(mapKey(doc.ID), data)
	})
}

func (s *BadgerStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(mapKey(id)); err == badger.ErrKeyNotFound {
			return notFound(id)
		} else if err != nil {
			return err
		}
		return txn.Delete(mapKey(id))
	})
}

func (s *BadgerStore) List(context.Context) ([]Summary, error) {
	out := []Summary{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(mapPrefix); it.ValidForPrefix(mapPrefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			doc, err := decode(data)
			if err != nil {
				return err
			}
			out = append(out, summarize(doc))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list: %w", err)
	}
	sortSummaries(out)
	return out, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

var _ Store = (*BadgerStore)(nil)
