package persistence

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/merkle-allowlist-go/pkg/types"
)

// ISnapshotStore defines the interface for persisting allowlist snapshots.
// All implementations must be thread-safe.
//
// Snapshots are immutable once saved: a rebuild produces a new snapshot
// with a new ID rather than mutating an existing one, so in-flight proof
// operations against an older snapshot are never invalidated by a save.
type ISnapshotStore interface {
	// SaveSnapshot persists a snapshot indexed by its ID.
	// Saving the same snapshot twice is idempotent.
	// Returns error only on storage failure.
	SaveSnapshot(snapshot *types.Snapshot) error

	// LoadSnapshot retrieves a snapshot by ID.
	// Returns nil if the snapshot doesn't exist, error only on storage failure.
	LoadSnapshot(id string) (*types.Snapshot, error)

	// LoadSnapshotByRoot retrieves a snapshot by its merkle root.
	// Returns nil if no snapshot with that root exists, error only on
	// storage failure.
	LoadSnapshotByRoot(root common.Hash) (*types.Snapshot, error)

	// ListSnapshots returns all persisted snapshots sorted by CreatedAt
	// (ascending). Returns empty slice if none exist, error only on
	// storage failure.
	ListSnapshots() ([]*types.Snapshot, error)

	// DeleteSnapshot removes a snapshot by ID.
	// Idempotent - returns nil if the snapshot doesn't exist.
	DeleteSnapshot(id string) error

	// SetActiveSnapshot marks which snapshot is currently published.
	// An empty ID clears the active snapshot.
	SetActiveSnapshot(id string) error

	// GetActiveSnapshot returns the ID of the active snapshot.
	// Returns "" if no active snapshot is set.
	GetActiveSnapshot() (string, error)

	// Close cleanly shuts down the store.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations return errors.
	Close() error

	// HealthCheck verifies the store is operational.
	// Returns nil if healthy, error describing the problem if not.
	// Should be called during startup to fail fast.
	HealthCheck() error
}
