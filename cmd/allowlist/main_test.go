package main

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/merkle-allowlist-go/pkg/hasher"
	memoryStore "github.com/Layr-Labs/merkle-allowlist-go/pkg/persistence/memory"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/types"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/util"
)

func testSnapshot(id string, root common.Hash) *types.Snapshot {
	return &types.Snapshot{
		ID:            id,
		CreatedAt:     1700000000,
		HashAlgorithm: hasher.AlgorithmKeccak256,
		Root:          root,
		Members:       []common.Address{common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")},
	}
}

func TestResolveSnapshot(t *testing.T) {
	store := memoryStore.NewMemoryStore()
	defer func() { _ = store.Close() }()

	rootA := common.HexToHash("0x01")
	rootB := common.HexToHash("0x02")
	require.NoError(t, store.SaveSnapshot(testSnapshot("snap-a", rootA)))
	require.NoError(t, store.SaveSnapshot(testSnapshot("snap-b", rootB)))
	require.NoError(t, store.SetActiveSnapshot("snap-a"))

	t.Run("ByID", func(t *testing.T) {
		snapshot, err := resolveSnapshot(store, "snap-b", "")
		require.NoError(t, err)
		require.Equal(t, "snap-b", snapshot.ID)
	})

	t.Run("ByRoot", func(t *testing.T) {
		snapshot, err := resolveSnapshot(store, "", util.EncodeRoot(rootB))
		require.NoError(t, err)
		require.Equal(t, "snap-b", snapshot.ID)
	})

	t.Run("DefaultsToActive", func(t *testing.T) {
		snapshot, err := resolveSnapshot(store, "", "")
		require.NoError(t, err)
		require.Equal(t, "snap-a", snapshot.ID)
	})

	t.Run("BothFlagsRejected", func(t *testing.T) {
		_, err := resolveSnapshot(store, "snap-a", util.EncodeRoot(rootA))
		require.Error(t, err)
	})

	t.Run("UnknownRoot", func(t *testing.T) {
		_, err := resolveSnapshot(store, "", util.EncodeRoot(common.HexToHash("0xff")))
		require.Error(t, err)
	})

	t.Run("UnknownID", func(t *testing.T) {
		_, err := resolveSnapshot(store, "missing", "")
		require.Error(t, err)
	})

	t.Run("MalformedRoot", func(t *testing.T) {
		_, err := resolveSnapshot(store, "", "0x1234")
		require.Error(t, err)
	})
}

func TestResolveSnapshotNoActive(t *testing.T) {
	store := memoryStore.NewMemoryStore()
	defer func() { _ = store.Close() }()

	_, err := resolveSnapshot(store, "", "")
	require.Error(t, err)
}
