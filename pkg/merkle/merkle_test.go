package merkle

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/merkle-allowlist-go/pkg/hasher"
)

// randomLeaves generates n random 32-byte leaf hashes for testing
func randomLeaves(n int) [][32]byte {
	leaves := make([][32]byte, n)
	for i := range leaves {
		_, _ = rand.Read(leaves[i][:]) // Ignore error in test helper
	}
	return leaves
}

func testHasher(t *testing.T) hasher.Hasher {
	t.Helper()
	h, err := hasher.New(hasher.AlgorithmKeccak256)
	require.NoError(t, err)
	return h
}

// sortedConcat returns min(a,b) || max(a,b) for reference hashing in tests
func sortedConcat(a, b [32]byte) []byte {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return append(a[:], b[:]...)
	}
	return append(b[:], a[:]...)
}

// TestBuildTree tests tree construction with various leaf counts
func TestBuildTree(t *testing.T) {
	testCases := []struct {
		name      string
		numLeaves int
	}{
		{"Single leaf", 1},
		{"Two leaves", 2},
		{"Three leaves", 3},
		{"Four leaves (power of 2)", 4},
		{"Seven leaves", 7},
		{"Eight leaves (power of 2)", 8},
		{"Fifteen leaves", 15},
		{"Sixteen leaves (power of 2)", 16},
	}

	h := testHasher(t)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			leaves := randomLeaves(tc.numLeaves)
			tree := BuildTree(leaves, h)
			require.NotNil(t, tree)
			require.Equal(t, tc.numLeaves, len(tree.Leaves))
			require.NotEqual(t, ZeroRoot, tree.Root)

			// Each level must have ceil(n/2) of the one below it
			for i := 0; i < len(tree.levels)-1; i++ {
				require.Equal(t, (len(tree.levels[i])+1)/2, len(tree.levels[i+1]))
			}

			// Generate and verify proofs for all leaves
			for i := 0; i < tc.numLeaves; i++ {
				proof, err := tree.GenerateProof(leaves[i])
				require.NoError(t, err)
				require.NotNil(t, proof)
				require.Equal(t, leaves[i], proof.Leaf)

				valid := VerifyProof(leaves[i], proof.Siblings, tree.Root, h)
				require.True(t, valid, "proof for leaf %d should verify", i)
			}
		})
	}
}

// TestBuildTreeEmpty tests that an empty leaf set yields the sentinel root
func TestBuildTreeEmpty(t *testing.T) {
	h := testHasher(t)

	tree := BuildTree(nil, h)
	require.NotNil(t, tree)
	require.Equal(t, ZeroRoot, tree.Root)
	require.Empty(t, tree.Leaves)

	proof, err := tree.GenerateProof(randomLeaves(1)[0])
	require.ErrorIs(t, err, ErrLeafNotFound)
	require.Nil(t, proof)
}

// TestSingleLeafTree tests that a one-leaf tree has the leaf as root and a
// valid zero-length proof
func TestSingleLeafTree(t *testing.T) {
	h := testHasher(t)
	leaves := randomLeaves(1)

	tree := BuildTree(leaves, h)
	require.Equal(t, leaves[0], tree.Root)

	proof, err := tree.GenerateProof(leaves[0])
	require.NoError(t, err)
	require.Empty(t, proof.Siblings)
	require.True(t, VerifyProof(leaves[0], proof.Siblings, tree.Root, h))
}

// TestOddLayerPromotion checks the exact shape of a 3-leaf tree: the third
// leaf is promoted unchanged, its proof has length 1, the others length 2.
func TestOddLayerPromotion(t *testing.T) {
	h := testHasher(t)
	leaves := randomLeaves(3)

	tree := BuildTree(leaves, h)

	h01 := h.Hash(sortedConcat(leaves[0], leaves[1]))
	expectedRoot := h.Hash(sortedConcat(h01, leaves[2]))
	require.Equal(t, expectedRoot, tree.Root)

	// Intermediate level: [H(sorted(L0,L1)), L2]
	require.Len(t, tree.levels, 3)
	require.Equal(t, [][32]byte{h01, leaves[2]}, tree.levels[1])

	proof2, err := tree.GenerateProof(leaves[2])
	require.NoError(t, err)
	require.Len(t, proof2.Siblings, 1)
	require.Equal(t, h01, proof2.Siblings[0])

	proof0, err := tree.GenerateProof(leaves[0])
	require.NoError(t, err)
	require.Len(t, proof0.Siblings, 2)
	require.Equal(t, leaves[1], proof0.Siblings[0])
	require.Equal(t, leaves[2], proof0.Siblings[1])
}

// TestSortedPairCommutativity checks that swapping the children of a pair
// does not change the parent hash
func TestSortedPairCommutativity(t *testing.T) {
	h := testHasher(t)
	pair := randomLeaves(2)

	require.Equal(t, hashPair(pair[0], pair[1], h), hashPair(pair[1], pair[0], h))

	// A two-leaf tree keeps the same root when its leaves are swapped
	treeAB := BuildTree([][32]byte{pair[0], pair[1]}, h)
	treeBA := BuildTree([][32]byte{pair[1], pair[0]}, h)
	require.Equal(t, treeAB.Root, treeBA.Root)
}

// TestDeterminism checks that the same leaf sequence always builds the same root
func TestDeterminism(t *testing.T) {
	h := testHasher(t)
	leaves := randomLeaves(9)

	root1 := BuildTree(leaves, h).Root
	root2 := BuildTree(leaves, h).Root
	require.Equal(t, root1, root2)
}

// TestGenerateProofNotFound tests that a leaf absent from the tree is
// reported distinctly from a valid empty proof
func TestGenerateProofNotFound(t *testing.T) {
	h := testHasher(t)
	tree := BuildTree(randomLeaves(4), h)

	proof, err := tree.GenerateProof(randomLeaves(1)[0])
	require.ErrorIs(t, err, ErrLeafNotFound)
	require.Nil(t, proof)
}

// TestVerifyProofRejections tests verification failure cases
func TestVerifyProofRejections(t *testing.T) {
	h := testHasher(t)
	leaves := randomLeaves(8)
	tree := BuildTree(leaves, h)

	proof, err := tree.GenerateProof(leaves[0])
	require.NoError(t, err)

	t.Run("Wrong root", func(t *testing.T) {
		badRoot := [32]byte{1, 2, 3, 4, 5}
		require.False(t, VerifyProof(leaves[0], proof.Siblings, badRoot, h))
	})

	t.Run("Tampered leaf", func(t *testing.T) {
		tampered := leaves[0]
		tampered[0] ^= 0xFF
		require.False(t, VerifyProof(tampered, proof.Siblings, tree.Root, h))
	})

	t.Run("Tampered sibling", func(t *testing.T) {
		siblings := make([][32]byte, len(proof.Siblings))
		copy(siblings, proof.Siblings)
		siblings[0][0] ^= 0xFF
		require.False(t, VerifyProof(leaves[0], siblings, tree.Root, h))
	})

	t.Run("Truncated proof", func(t *testing.T) {
		require.False(t, VerifyProof(leaves[0], proof.Siblings[:len(proof.Siblings)-1], tree.Root, h))
	})

	t.Run("Proof from unrelated tree", func(t *testing.T) {
		other := BuildTree(randomLeaves(8), h)
		otherProof, err := other.GenerateProof(other.Leaves[0])
		require.NoError(t, err)
		require.False(t, VerifyProof(other.Leaves[0], otherProof.Siblings, tree.Root, h))
	})

	t.Run("Empty proof against multi-leaf root", func(t *testing.T) {
		require.False(t, VerifyProof(leaves[0], nil, tree.Root, h))
	})
}

// TestBuildTreeInputNotAliased checks that mutating the caller's slice after
// the build does not change the tree
func TestBuildTreeInputNotAliased(t *testing.T) {
	h := testHasher(t)
	leaves := randomLeaves(4)
	tree := BuildTree(leaves, h)
	root := tree.Root

	leaves[0][0] ^= 0xFF
	require.Equal(t, root, tree.Root)
	require.NotEqual(t, leaves[0], tree.Leaves[0])
}

// TestProofLengths checks that proof length is logarithmic in the leaf count
func TestProofLengths(t *testing.T) {
	h := testHasher(t)
	leaves := randomLeaves(16)
	tree := BuildTree(leaves, h)

	for _, leaf := range leaves {
		proof, err := tree.GenerateProof(leaf)
		require.NoError(t, err)
		require.Len(t, proof.Siblings, 4)
	}
}
