package memory

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Layr-Labs/merkle-allowlist-go/pkg/types"
)

// MemoryStore is an in-memory implementation of ISnapshotStore.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Deep copies data to prevent external mutation.
type MemoryStore struct {
	mu sync.RWMutex

	// Snapshot storage: ID -> Snapshot
	snapshots map[string]*types.Snapshot

	// Root index: root -> snapshot ID
	byRoot map[common.Hash]string

	// Active snapshot tracking
	activeID string

	// Closed flag
	closed bool
}

// NewMemoryStore creates a new in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]*types.Snapshot),
		byRoot:    make(map[common.Hash]string),
	}
}

// SaveSnapshot persists a snapshot.
func (m *MemoryStore) SaveSnapshot(snapshot *types.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("cannot save nil Snapshot")
	}
	if snapshot.ID == "" {
		return fmt.Errorf("cannot save Snapshot with empty ID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("snapshot store is closed")
	}

	// Deep copy to prevent external mutation
	m.snapshots[snapshot.ID] = deepCopySnapshot(snapshot)
	m.byRoot[snapshot.Root] = snapshot.ID

	return nil
}

// LoadSnapshot retrieves a snapshot by ID.
func (m *MemoryStore) LoadSnapshot(id string) (*types.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("snapshot store is closed")
	}

	snapshot, exists := m.snapshots[id]
	if !exists {
		return nil, nil // Not found is not an error
	}

	return deepCopySnapshot(snapshot), nil
}

// LoadSnapshotByRoot retrieves a snapshot by its merkle root.
func (m *MemoryStore) LoadSnapshotByRoot(root common.Hash) (*types.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("snapshot store is closed")
	}

	id, exists := m.byRoot[root]
	if !exists {
		return nil, nil
	}

	return deepCopySnapshot(m.snapshots[id]), nil
}

// ListSnapshots returns all snapshots sorted by CreatedAt (ascending).
func (m *MemoryStore) ListSnapshots() ([]*types.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("snapshot store is closed")
	}

	snapshots := make([]*types.Snapshot, 0, len(m.snapshots))
	for _, snapshot := range m.snapshots {
		snapshots = append(snapshots, deepCopySnapshot(snapshot))
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt != snapshots[j].CreatedAt {
			return snapshots[i].CreatedAt < snapshots[j].CreatedAt
		}
		return snapshots[i].ID < snapshots[j].ID
	})

	return snapshots, nil
}

// DeleteSnapshot removes a snapshot by ID. Idempotent.
func (m *MemoryStore) DeleteSnapshot(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("snapshot store is closed")
	}

	if snapshot, exists := m.snapshots[id]; exists {
		delete(m.byRoot, snapshot.Root)
		delete(m.snapshots, id)
	}
	if m.activeID == id {
		m.activeID = ""
	}

	return nil
}

// SetActiveSnapshot marks the active snapshot.
func (m *MemoryStore) SetActiveSnapshot(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("snapshot store is closed")
	}

	if id != "" {
		if _, exists := m.snapshots[id]; !exists {
			return fmt.Errorf("cannot activate unknown snapshot %s", id)
		}
	}

	m.activeID = id
	return nil
}

// GetActiveSnapshot returns the active snapshot ID, "" if none is set.
func (m *MemoryStore) GetActiveSnapshot() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", fmt.Errorf("snapshot store is closed")
	}

	return m.activeID, nil
}

// Close shuts down the store. Idempotent.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the store is operational.
func (m *MemoryStore) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("snapshot store is closed")
	}

	return nil
}

// deepCopySnapshot copies a snapshot so callers cannot mutate stored state.
func deepCopySnapshot(snapshot *types.Snapshot) *types.Snapshot {
	if snapshot == nil {
		return nil
	}

	cp := &types.Snapshot{
		ID:            snapshot.ID,
		CreatedAt:     snapshot.CreatedAt,
		HashAlgorithm: snapshot.HashAlgorithm,
		Root:          snapshot.Root,
	}

	if snapshot.Members != nil {
		cp.Members = make([]common.Address, len(snapshot.Members))
		copy(cp.Members, snapshot.Members)
	}

	if snapshot.Allocations != nil {
		cp.Allocations = make(map[common.Address]*hexutil.Big, len(snapshot.Allocations))
		for addr, amount := range snapshot.Allocations {
			if amount != nil {
				cp.Allocations[addr] = (*hexutil.Big)(new(big.Int).Set((*big.Int)(amount)))
			}
		}
	}

	return cp
}
