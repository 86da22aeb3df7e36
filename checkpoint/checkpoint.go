// Package checkpoint persists completed work items so an interrupted run
// can resume without repeating finished extractions. Marks are namespaced
// by a run epoch; starting a fresh run advances the epoch, which orphans
// old marks without touching them.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/yairfalse/kartta/types"
)

// Bucket names in bbolt
var (
	bucketCompleted = []byte("completed")
	bucketMeta      = []byte("meta")
)

var keyEpoch = []byte("epoch")

// Store is the durable record of completed work items
type Store struct {
	mu sync.RWMutex

	// In-memory index of current-epoch item keys for fast lookups
	index *btree.BTreeG[string]

	// On-disk storage
	db *bbolt.DB

	// Current run epoch
	epoch uint64

	path string
}

// mark is the value persisted per completed item
type mark struct {
	ProjectID   string    `json:"project_id"`
	ServiceTag  string    `json:"service_tag"`
	CompletedAt time.Time `json:"completed_at"`
}

// Open opens or creates the checkpoint store. resume=true keeps the
// current epoch so earlier marks still count; resume=false advances it,
// making every item incomplete again.
func Open(path string, resume bool) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	// Timeout so a second kartta process fails fast instead of blocking
	// on the file lock.
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketCompleted, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{
		index: btree.NewG[string](32, func(a, b string) bool { return a < b }),
		db:    db,
		path:  path,
	}

	store.loadEpoch()
	if !resume || store.epoch == 0 {
		if err := store.advanceEpoch(); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := store.rebuildIndex(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the store
func (s *Store) Close() error {
	return s.db.Close()
}

// Epoch returns the current run epoch
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// IsComplete reports whether an item already completed under this epoch
func (s *Store) IsComplete(item types.WorkItem) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Has(item.Key())
}

// MarkComplete durably records an item as done. The mark is committed
// to disk before this returns.
func (s *Store) MarkComplete(item types.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := json.Marshal(mark{
		ProjectID:   item.Project.ID,
		ServiceTag:  item.ServiceTag,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCompleted).Put(makeCompletedKey(s.epoch, item.Key()), value)
	})
	if err != nil {
		return fmt.Errorf("failed to persist checkpoint: %w", err)
	}

	s.index.ReplaceOrInsert(item.Key())
	return nil
}

// CompletedCount returns how many items completed under this epoch
func (s *Store) CompletedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

// Items returns the completed item keys of this epoch in sorted order
func (s *Store) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, s.index.Len())
	s.index.Ascend(func(key string) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Clear drops every mark of the current epoch. Called after a fully
// successful run so the next run starts clean.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := epochPrefix(s.epoch)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCompleted)
		c := bucket.Cursor()

		var toDelete [][]byte
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			toDelete = append(toDelete, k)
		}
		for _, key := range toDelete {
			if err := bucket.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear checkpoint epoch: %w", err)
	}

	s.index = btree.NewG[string](32, func(a, b string) bool { return a < b })
	return nil
}

// Helper functions

func (s *Store) loadEpoch() {
	s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyEpoch)
		if data != nil {
			s.epoch = bytesToUint64(data)
		}
		return nil
	})
}

func (s *Store) advanceEpoch() error {
	s.epoch++
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyEpoch, uint64ToBytes(s.epoch))
	})
}

func (s *Store) rebuildIndex() error {
	prefix := epochPrefix(s.epoch)
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketCompleted).Cursor()
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			s.index.ReplaceOrInsert(string(k[len(prefix):]))
		}
		return nil
	})
}

func makeCompletedKey(epoch uint64, itemKey string) []byte {
	return []byte(fmt.Sprintf("%016d:%s", epoch, itemKey))
}

func epochPrefix(epoch uint64) []byte {
	return []byte(fmt.Sprintf("%016d:", epoch))
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

func uint64ToBytes(n uint64) []byte {
	return []byte(fmt.Sprintf("%d", n))
}

func bytesToUint64(b []byte) uint64 {
	var n uint64
	fmt.Sscanf(string(b), "%d", &n)
	return n
}
