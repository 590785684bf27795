// Package badger implements the resource store on BadgerDB.
//
// Layout: payloads live under "res:<id>", JSON-encoded metadata under
// "meta:<id>". Version numbers are part of the metadata record and are
// bumped inside the same transaction as the payload write, so readers never
// observe a version without its payload.
package badger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/fcanovai/rescache/internal/logger"
	"github.com/fcanovai/rescache/pkg/server/store"
)

const (
	payloadPrefix = "res:"
	metaPrefix    = "meta:"
)

// BadgerStore is a store.Store backed by a BadgerDB instance.
type BadgerStore struct {
	db     *badger.DB
	closed atomic.Bool
}

var _ store.Store = (*BadgerStore)(nil)

// New opens (or creates) a resource store at dir.
func New(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts = opts.WithLogger(nil) // badger's own logger is too chatty; we log at the store level

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %q: %w", dir, err)
	}

	logger.Info("resource store opened", "dir", dir)
	return &BadgerStore{db: db}, nil
}

// NewInMemory opens an ephemeral store. Used by tests and the demo server.
func NewInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// guard rejects operations on a closed store or a done context.
func (s *BadgerStore) guard(ctx context.Context) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	return ctx.Err()
}

func keyPayload(id string) []byte {
	return []byte(payloadPrefix + id)
}

func keyMeta(id string) []byte {
	return []byte(metaPrefix + id)
}

func encodeInfo(info *store.Info) ([]byte, error) {
	return json.Marshal(info)
}

func decodeInfo(val []byte) (store.Info, error) {
	var info store.Info
	if err := json.Unmarshal(val, &info); err != nil {
		return store.Info{}, fmt.Errorf("decode resource metadata: %w", err)
	}
	return info, nil
}

// Put stores or replaces the payload for id, bumping its version.
func (s *BadgerStore) Put(ctx context.Context, id string, data []byte, resType string, priority uint8) (store.Info, error) {
	if err := s.guard(ctx); err != nil {
		return store.Info{}, err
	}

	digest := sha256.Sum256(data)
	now := time.Now()

	info := store.Info{
		ID:           id,
		Type:         resType,
		Size:         len(data),
		Hash:         hex.EncodeToString(digest[:]),
		Priority:     priority,
		Version:      1,
		Created:      now,
		LastAccessed: now,
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		// Carry version and creation time forward across replacements.
		item, err := txn.Get(keyMeta(id))
		if err == nil {
			var prev store.Info
			if verr := item.Value(func(val []byte) error {
				prev, err = decodeInfo(val)
				return err
			}); verr != nil {
				return verr
			}
			info.Version = prev.Version + 1
			info.Created = prev.Created
			info.AccessCount = prev.AccessCount
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		metaBytes, err := encodeInfo(&info)
		if err != nil {
			return err
		}
		if err := txn.Set(keyPayload(id), data); err != nil {
			return fmt.Errorf("store payload: %w", err)
		}
		if err := txn.Set(keyMeta(id), metaBytes); err != nil {
			return fmt.Errorf("store metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.Info{}, err
	}

	logger.Info("resource stored",
		logger.KeyResourceID, id,
		logger.KeySize, len(data),
		logger.KeyVersion, info.Version,
		logger.KeyType, resType,
	)
	return info, nil
}

// Get returns the payload and metadata for id, updating access statistics.
func (s *BadgerStore) Get(ctx context.Context, id string) ([]byte, store.Info, error) {
	if err := s.guard(ctx); err != nil {
		return nil, store.Info{}, err
	}

	var (
		data []byte
		info store.Info
	)

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyPayload(id))
		if err == badger.ErrKeyNotFound {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}

		metaItem, err := txn.Get(keyMeta(id))
		if err != nil {
			return fmt.Errorf("metadata missing for stored payload %q: %w", id, err)
		}
		if err := metaItem.Value(func(val []byte) error {
			info, err = decodeInfo(val)
			return err
		}); err != nil {
			return err
		}

		info.AccessCount++
		info.LastAccessed = time.Now()
		metaBytes, err := encodeInfo(&info)
		if err != nil {
			return err
		}
		return txn.Set(keyMeta(id), metaBytes)
	})
	if err != nil {
		return nil, store.Info{}, err
	}

	return data, info, nil
}

// Info returns metadata for id without touching access statistics.
func (s *BadgerStore) Info(ctx context.Context, id string) (store.Info, error) {
	if err := s.guard(ctx); err != nil {
		return store.Info{}, err
	}

	var info store.Info
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMeta(id))
		if err == badger.ErrKeyNotFound {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			info, err = decodeInfo(val)
			return err
		})
	})
	if err != nil {
		return store.Info{}, err
	}
	return info, nil
}

// Version returns the current version of id.
func (s *BadgerStore) Version(ctx context.Context, id string) (uint32, error) {
	info, err := s.Info(ctx, id)
	if err != nil {
		return 0, err
	}
	return info.Version, nil
}

// List returns metadata for all resources ordered by id, optionally
// filtered by type.
func (s *BadgerStore) List(ctx context.Context, resType string) ([]store.Info, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}

	var infos []store.Info
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				info, err := decodeInfo(val)
				if err != nil {
					return err
				}
				if resType == "" || info.Type == resType {
					infos = append(infos, info)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Delete removes id's payload and metadata.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyMeta(id)); err == badger.ErrKeyNotFound {
			return store.ErrNotFound
		} else if err != nil {
			return err
		}
		if err := txn.Delete(keyPayload(id)); err != nil {
			return err
		}
		return txn.Delete(keyMeta(id))
	})
	if err != nil {
		return err
	}

	logger.Info("resource deleted", logger.KeyResourceID, id)
	return nil
}

// Stats summarizes the store's contents.
func (s *BadgerStore) Stats(ctx context.Context) (store.Stats, error) {
	if err := s.guard(ctx); err != nil {
		return store.Stats{}, err
	}

	stats := store.Stats{ByType: make(map[string]int)}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				info, err := decodeInfo(val)
				if err != nil {
					return err
				}
				stats.ResourceCount++
				stats.TotalBytes += int64(info.Size)
				stats.ByType[info.Type]++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return store.Stats{}, err
	}
	return stats, nil
}

// Close releases the underlying database. Further operations return
// store.ErrClosed.
func (s *BadgerStore) Close() error {
	s.closed.Store(true)
	return s.db.Close()
}
