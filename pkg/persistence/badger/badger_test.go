package badger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/merkle-allowlist-go/pkg/logger"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/types"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	testLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	store, err := NewBadgerStore(t.TempDir(), testLogger)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSnapshot(id string, createdAt int64) *types.Snapshot {
	return &types.Snapshot{
		ID:            id,
		CreatedAt:     createdAt,
		HashAlgorithm: "keccak256",
		Root:          common.BytesToHash([]byte(id)),
		Members: []common.Address{
			common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"),
		},
	}
}

func TestBadgerSaveAndLoadSnapshot(t *testing.T) {
	store := newTestStore(t)

	snapshot := testSnapshot("snap-1", 100)
	require.NoError(t, store.SaveSnapshot(snapshot))

	loaded, err := store.LoadSnapshot("snap-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, snapshot.ID, loaded.ID)
	require.Equal(t, snapshot.Root, loaded.Root)
	require.Equal(t, snapshot.Members, loaded.Members)
}

func TestBadgerLoadMissingSnapshot(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.LoadSnapshot("missing")
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestBadgerLoadSnapshotByRoot(t *testing.T) {
	store := newTestStore(t)

	snapshot := testSnapshot("snap-1", 100)
	require.NoError(t, store.SaveSnapshot(snapshot))

	loaded, err := store.LoadSnapshotByRoot(snapshot.Root)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "snap-1", loaded.ID)

	loaded, err = store.LoadSnapshotByRoot(common.Hash{0xff})
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestBadgerListSnapshotsSorted(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveSnapshot(testSnapshot("snap-c", 300)))
	require.NoError(t, store.SaveSnapshot(testSnapshot("snap-a", 100)))
	require.NoError(t, store.SaveSnapshot(testSnapshot("snap-b", 200)))

	snapshots, err := store.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	require.Equal(t, "snap-a", snapshots[0].ID)
	require.Equal(t, "snap-b", snapshots[1].ID)
	require.Equal(t, "snap-c", snapshots[2].ID)
}

func TestBadgerDeleteSnapshot(t *testing.T) {
	store := newTestStore(t)

	snapshot := testSnapshot("snap-1", 100)
	require.NoError(t, store.SaveSnapshot(snapshot))
	require.NoError(t, store.SetActiveSnapshot("snap-1"))

	require.NoError(t, store.DeleteSnapshot("snap-1"))
	require.NoError(t, store.DeleteSnapshot("snap-1")) // Idempotent

	loaded, err := store.LoadSnapshot("snap-1")
	require.NoError(t, err)
	require.Nil(t, loaded)

	loaded, err = store.LoadSnapshotByRoot(snapshot.Root)
	require.NoError(t, err)
	require.Nil(t, loaded)

	active, err := store.GetActiveSnapshot()
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestBadgerActiveSnapshot(t *testing.T) {
	store := newTestStore(t)

	active, err := store.GetActiveSnapshot()
	require.NoError(t, err)
	require.Empty(t, active)

	require.NoError(t, store.SaveSnapshot(testSnapshot("snap-1", 100)))
	require.NoError(t, store.SetActiveSnapshot("snap-1"))

	active, err = store.GetActiveSnapshot()
	require.NoError(t, err)
	require.Equal(t, "snap-1", active)

	require.Error(t, store.SetActiveSnapshot("missing"))

	// Clearing with empty ID
	require.NoError(t, store.SetActiveSnapshot(""))
	active, err = store.GetActiveSnapshot()
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestBadgerPersistenceAcrossReopen(t *testing.T) {
	testLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)
	dir := t.TempDir()

	store, err := NewBadgerStore(dir, testLogger)
	require.NoError(t, err)

	snapshot := testSnapshot("snap-1", 100)
	require.NoError(t, store.SaveSnapshot(snapshot))
	require.NoError(t, store.SetActiveSnapshot("snap-1"))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(dir, testLogger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadSnapshot("snap-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, snapshot.Root, loaded.Root)

	active, err := reopened.GetActiveSnapshot()
	require.NoError(t, err)
	require.Equal(t, "snap-1", active)
}

func TestBadgerClosedStoreRejectsOperations(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close()) // Idempotent

	require.Error(t, store.SaveSnapshot(testSnapshot("snap-1", 100)))
	_, err := store.LoadSnapshot("snap-1")
	require.Error(t, err)
	require.Error(t, store.HealthCheck())
}

func TestBadgerHealthCheck(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.HealthCheck())
}
