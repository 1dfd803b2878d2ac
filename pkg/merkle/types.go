package merkle

// Tree is a binary merkle tree built with the sorted-pair hashing rule.
// It is immutable once built; concurrent proof generation against the same
// Tree requires no locking.
type Tree struct {
	// Leaves contains the leaf hashes in the order they were given
	Leaves [][32]byte

	// Root is the merkle root hash. For an empty tree it is ZeroRoot.
	Root [32]byte

	// levels stores all tree levels for proof generation
	// levels[0] = leaves, levels[len-1] = root
	levels [][][32]byte
}

// Proof is a membership proof for a single leaf.
// It carries no left/right position metadata: the sorted-pair rule makes
// verification position-independent.
type Proof struct {
	// Leaf is the hash of the leaf being proven
	Leaf [32]byte

	// Siblings contains the sibling hashes from leaf to root.
	// Siblings[0] pairs with the leaf, the last element pairs just below
	// the root. Layers where the leaf's node had no sibling contribute
	// nothing.
	Siblings [][32]byte
}

// ZeroRoot is the sentinel root of a tree built from zero leaves.
var ZeroRoot = [32]byte{}
