package badger

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-allowlist-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/types"
)

// Key prefixes for namespacing
const (
	keyPrefixSnapshot    = "snapshot:"
	keyPrefixRoot        = "root:"
	keyActiveSnapshot    = "active:snapshot"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerStore is a production-ready snapshot store backed by Badger.
// Provides durable, disk-based storage with ACID guarantees.
type BadgerStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewBadgerStore creates a new Badger-backed snapshot store.
// The database is opened at the specified path with SyncWrites enabled for
// durability. A background goroutine is started for garbage collection.
func NewBadgerStore(dataPath string, logger *zap.Logger) (*BadgerStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve absolute path")
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = newStoreLogger(logger)
	opts.SyncWrites = true // fsync on every write
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1 // Snapshots are immutable, no versioning needed

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open badger database at %s", absPath)
	}

	bs := &BadgerStore{
		db:     db,
		logger: logger,
	}

	if err := bs.initSchema(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	ctx, cancel := context.WithCancel(context.Background())
	bs.gcCancel = cancel
	bs.gcWg.Add(1)
	go bs.runGC(ctx)

	logger.Sugar().Infow("Badger snapshot store initialized", "path", absPath)

	return bs, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerStore) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			// First time setup
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return errors.Wrap(err, "failed to read schema version")
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return errors.Wrap(err, "failed to read schema version value")
		}

		if existingVersion != currentSchemaVersion {
			return errors.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}

		return nil
	})
}

// runGC runs periodic garbage collection in the background
func (b *BadgerStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// SaveSnapshot persists a snapshot and indexes it by root
func (b *BadgerStore) SaveSnapshot(snapshot *types.Snapshot) error {
	if snapshot == nil {
		return errors.New("cannot save nil Snapshot")
	}
	if snapshot.ID == "" {
		return errors.New("cannot save Snapshot with empty ID")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New("snapshot store is closed")
	}

	data, err := persistence.MarshalSnapshot(snapshot)
	if err != nil {
		return errors.Wrap(err, "failed to marshal Snapshot")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set([]byte(keyPrefixSnapshot+snapshot.ID), data); err != nil {
			return err
		}
		// Root index points at the snapshot ID
		return txn.Set([]byte(keyPrefixRoot+snapshot.Root.Hex()), []byte(snapshot.ID))
	})
}

// LoadSnapshot retrieves a snapshot by ID
func (b *BadgerStore) LoadSnapshot(id string) (*types.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errors.New("snapshot store is closed")
	}

	return b.loadSnapshotByKey(keyPrefixSnapshot + id)
}

// LoadSnapshotByRoot retrieves a snapshot through the root index
func (b *BadgerStore) LoadSnapshotByRoot(root common.Hash) (*types.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errors.New("snapshot store is closed")
	}

	var id string
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keyPrefixRoot + root.Hex()))
		if err == badgerdb.ErrKeyNotFound {
			return nil // Not found is not an error
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve root index")
	}
	if id == "" {
		return nil, nil
	}

	return b.loadSnapshotByKey(keyPrefixSnapshot + id)
}

// loadSnapshotByKey reads and unmarshals one snapshot record.
// Callers must hold the read lock.
func (b *BadgerStore) loadSnapshotByKey(key string) (*types.Snapshot, error) {
	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badgerdb.ErrKeyNotFound {
			return nil // Not found is not an error
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...) // Copy value
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load Snapshot")
	}
	if data == nil {
		return nil, nil // Not found
	}

	snapshot, err := persistence.UnmarshalSnapshot(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal Snapshot")
	}

	return snapshot, nil
}

// ListSnapshots returns all snapshots sorted by CreatedAt
func (b *BadgerStore) ListSnapshots() ([]*types.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errors.New("snapshot store is closed")
	}

	snapshots := make([]*types.Snapshot, 0)

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixSnapshot)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var data []byte
			err := item.Value(func(val []byte) error {
				data = append([]byte{}, val...) // Copy value
				return nil
			})
			if err != nil {
				return errors.Wrap(err, "failed to read value")
			}

			snapshot, err := persistence.UnmarshalSnapshot(data)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal Snapshot, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}

			snapshots = append(snapshots, snapshot)
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list Snapshots")
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt != snapshots[j].CreatedAt {
			return snapshots[i].CreatedAt < snapshots[j].CreatedAt
		}
		return snapshots[i].ID < snapshots[j].ID
	})

	return snapshots, nil
}

// DeleteSnapshot removes a snapshot and its root index entry. Idempotent.
func (b *BadgerStore) DeleteSnapshot(id string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New("snapshot store is closed")
	}

	snapshot, err := b.loadSnapshotByKey(keyPrefixSnapshot + id)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil // Already gone
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Delete([]byte(keyPrefixSnapshot + id)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(keyPrefixRoot + snapshot.Root.Hex())); err != nil {
			return err
		}

		// Clear the active pointer if it referenced this snapshot
		item, err := txn.Get([]byte(keyActiveSnapshot))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var active string
		if err := item.Value(func(val []byte) error {
			active = string(val)
			return nil
		}); err != nil {
			return err
		}
		if active == id {
			return txn.Delete([]byte(keyActiveSnapshot))
		}
		return nil
	})
}

// SetActiveSnapshot stores the active snapshot pointer
func (b *BadgerStore) SetActiveSnapshot(id string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New("snapshot store is closed")
	}

	if id == "" {
		return b.db.Update(func(txn *badgerdb.Txn) error {
			return txn.Delete([]byte(keyActiveSnapshot))
		})
	}

	snapshot, err := b.loadSnapshotByKey(keyPrefixSnapshot + id)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return errors.Errorf("cannot activate unknown snapshot %s", id)
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keyActiveSnapshot), []byte(id))
	})
}

// GetActiveSnapshot retrieves the active snapshot pointer
func (b *BadgerStore) GetActiveSnapshot() (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return "", errors.New("snapshot store is closed")
	}

	var id string
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keyActiveSnapshot))
		if err == badgerdb.ErrKeyNotFound {
			return nil // No active snapshot set yet
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to get active snapshot")
	}

	return id, nil
}

// Close shuts down the store
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil // Already closed, idempotent
	}
	b.closed = true
	b.mu.Unlock()

	// Stop GC goroutine
	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return errors.Wrap(err, "failed to close badger database")
	}

	b.logger.Sugar().Info("Badger snapshot store closed")
	return nil
}

// HealthCheck verifies the store is operational
func (b *BadgerStore) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New("snapshot store is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return errors.New("schema version not found - database may be corrupted")
		}
		return err
	})
}
