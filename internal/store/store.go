// Package store keeps the latest version of every delivered record in a local Pebble database.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ibs-source/sonar-consumer/internal/config"
	"github.com/ibs-source/sonar-consumer/internal/log"
	"github.com/ibs-source/sonar-consumer/internal/message"
	"github.com/ibs-source/sonar-consumer/pkg/schema"
)

// Key prefixes. Collection and record IDs are separated by a zero byte.
const (
	prefixRecord = "rec/"
	prefixCursor = "cur/"
)

// ErrNotFound is returned by Get when no record is stored under the ID
var ErrNotFound = errors.New("record not found")

// Store is a Pebble-backed sink holding one entry per collection and record ID
type Store struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	log       *log.Logger

	// Serializes the read-compare-write in Deliver
	mu sync.Mutex
}

// Open creates or opens the database at cfg.Path
func Open(cfg *config.StoreConfig, logger *log.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("store: path is required")
	}

	db, err := pebble.Open(cfg.Path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", cfg.Path, err)
	}

	writeOpts := pebble.NoSync
	if cfg.Sync {
		writeOpts = pebble.Sync
	}

	logger.Info("Record store opened at %s", cfg.Path)
	return &Store{db: db, writeOpts: writeOpts, log: logger}, nil
}

// Name identifies the sink in logs and metrics
func (s *Store) Name() string {
	return "store"
}

// Deliver stores env.Record unless a version with a higher lseq is already stored.
// Records without an lseq always replace the stored version. The batch cursor of
// subscription deliveries is recorded alongside.
func (s *Store) Deliver(_ context.Context, env message.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(env.Collection, env.Record.ID)

	current, err := s.get(key)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return err
	case stale(current, env.Record):
		s.log.Debug("Skipping stale record %s: stored lseq %d, got %d",
			env.Record.ID, *current.Lseq, *env.Record.Lseq)
		return s.setCursor(env)
	}

	b := s.db.NewBatch()
	defer func() { _ = b.Close() }()

	if err := b.Set(key, env.Record.AppendBinary(nil), nil); err != nil {
		return fmt.Errorf("store record %s: %w", env.Record.ID, err)
	}
	if env.Subscription != "" {
		if err := b.Set(cursorKey(env.Collection, env.Subscription), encodeCursor(env.Cursor), nil); err != nil {
			return fmt.Errorf("store cursor: %w", err)
		}
	}
	if err := b.Commit(s.writeOpts); err != nil {
		return fmt.Errorf("commit record %s: %w", env.Record.ID, err)
	}
	return nil
}

// Get returns the stored record for id in collection
func (s *Store) Get(collection, id string) (schema.Record, error) {
	return s.get(recordKey(collection, id))
}

// Cursor returns the last cursor delivered for a subscription, or false if none was stored
func (s *Store) Cursor(collection, subscription string) (uint64, bool, error) {
	val, closer, err := s.db.Get(cursorKey(collection, subscription))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read cursor: %w", err)
	}
	defer func() { _ = closer.Close() }()
	if len(val) != 8 {
		return 0, false, fmt.Errorf("read cursor: invalid length %d", len(val))
	}
	return binary.BigEndian.Uint64(val), true, nil
}

// Scan calls fn for every record of collection in ID order until fn returns false
func (s *Store) Scan(collection string, fn func(schema.Record) bool) error {
	lower := recordKey(collection, "")
	upper := append([]byte(prefixRecord+collection), 0x01)

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return fmt.Errorf("scan %s: %w", collection, err)
	}
	defer func() { _ = iter.Close() }()

	for iter.First(); iter.Valid(); iter.Next() {
		var rec schema.Record
		if err := rec.UnmarshalBinary(iter.Value()); err != nil {
			return fmt.Errorf("scan %s: key %q: %w", collection, iter.Key(), err)
		}
		if !fn(rec) {
			break
		}
	}
	return iter.Error()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key []byte) (schema.Record, error) {
	val, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return schema.Record{}, ErrNotFound
		}
		return schema.Record{}, fmt.Errorf("read record: %w", err)
	}
	defer func() { _ = closer.Close() }()

	var rec schema.Record
	if err := rec.UnmarshalBinary(val); err != nil {
		return schema.Record{}, err
	}
	return rec, nil
}

func (s *Store) setCursor(env message.Envelope) error {
	if env.Subscription == "" {
		return nil
	}
	if err := s.db.Set(cursorKey(env.Collection, env.Subscription), encodeCursor(env.Cursor), s.writeOpts); err != nil {
		return fmt.Errorf("store cursor: %w", err)
	}
	return nil
}

// stale reports whether incoming is older than current
func stale(current, incoming schema.Record) bool {
	return current.Lseq != nil && incoming.Lseq != nil && *incoming.Lseq < *current.Lseq
}

func recordKey(collection, id string) []byte {
	key := make([]byte, 0, len(prefixRecord)+len(collection)+1+len(id))
	key = append(key, prefixRecord...)
	key = append(key, collection...)
	key = append(key, 0x00)
	return append(key, id...)
}

func cursorKey(collection, subscription string) []byte {
	key := make([]byte, 0, len(prefixCursor)+len(collection)+1+len(subscription))
	key = append(key, prefixCursor...)
	key = append(key, collection...)
	key = append(key, 0x00)
	return append(key, subscription...)
}

func encodeCursor(cursor uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, cursor)
}
