package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
)

const keyPrefix = "probe:"

// Entry is one stored root probe: the aggregate result code and the per-move
// codes in oracle order.
type Entry struct {
	Result uint32    `json:"r"`
	Moves  []uint32  `json:"m,omitempty"`
	Stored time.Time `json:"t"`
}

// ProbeCache persists root probe answers in BadgerDB. Values are JSON
// compressed with zstd.
type ProbeCache struct {
	db  *badger.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens the cache in dir. An empty dir keeps the cache in memory.
func Open(dir string) (*ProbeCache, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open probe cache: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &ProbeCache{db: db, enc: enc, dec: dec}, nil
}

// Close closes the database
func (c *ProbeCache) Close() error {
	c.enc.Close()
	c.dec.Close()
	return c.db.Close()
}

// Get returns the entry stored under key, or nil if there is none.
func (c *ProbeCache) Get(key string) (*Entry, error) {
	var entry *Entry

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			raw, err := c.dec.DecodeAll(val, nil)
			if err != nil {
				return fmt.Errorf("decompress entry: %w", err)
			}
			entry = &Entry{}
			return json.Unmarshal(raw, entry)
		})
	})

	return entry, err
}

// Put stores entry under key, overwriting any previous value.
func (c *ProbeCache) Put(key string, entry *Entry) error {
	if entry.Stored.IsZero() {
		entry.Stored = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), c.enc.EncodeAll(data, nil))
	})
}

// Count returns the number of stored entries.
func (c *ProbeCache) Count() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
