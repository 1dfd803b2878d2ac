package merkle

import (
	"bytes"
	"fmt"

	"github.com/Layr-Labs/merkle-allowlist-go/pkg/hasher"
)

// ErrLeafNotFound is returned by GenerateProof when the requested leaf is
// not present in the tree. Callers must not confuse this with a valid
// zero-length proof (a single-leaf tree legitimately has one).
var ErrLeafNotFound = fmt.Errorf("leaf not found in tree")

// BuildTree creates a binary merkle tree from the given leaves.
//
// Pairs are hashed with the sorted-pair rule for OpenZeppelin/Solidity
// compatibility: the two 32-byte children are ordered by byte-wise
// comparison and hashed low-value-first, so verification needs no
// left/right metadata. If a level has an odd number of nodes, the last
// node is promoted unchanged to the next level (no duplication, no
// padding).
//
// An empty leaf slice yields a tree whose Root is ZeroRoot.
func BuildTree(leaves [][32]byte, h hasher.Hasher) *Tree {
	if len(leaves) == 0 {
		return &Tree{
			Leaves: nil,
			Root:   ZeroRoot,
			levels: [][][32]byte{nil},
		}
	}

	// Copy so callers cannot mutate the tree through the input slice
	layer := make([][32]byte, len(leaves))
	copy(layer, leaves)

	levels := make([][][32]byte, 0)
	levels = append(levels, layer)

	for len(layer) > 1 {
		next := make([][32]byte, 0, (len(layer)+1)/2)

		for i := 0; i < len(layer); i += 2 {
			if i+1 < len(layer) {
				next = append(next, hashPair(layer[i], layer[i+1], h))
			} else {
				// Odd node out: promote unchanged
				next = append(next, layer[i])
			}
		}

		levels = append(levels, next)
		layer = next
	}

	return &Tree{
		Leaves: levels[0],
		Root:   layer[0],
		levels: levels,
	}
}

// GenerateProof creates a membership proof for the given leaf hash.
// The leaf is located in the bottom level by exact byte equality; if it is
// absent, ErrLeafNotFound is returned.
func (t *Tree) GenerateProof(leaf [32]byte) (*Proof, error) {
	index := -1
	for i, l := range t.Leaves {
		if l == leaf {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, ErrLeafNotFound
	}

	siblings := make([][32]byte, 0)

	// Traverse from leaf to root, collecting sibling hashes.
	// The root level contributes nothing.
	for level := 0; level < len(t.levels)-1; level++ {
		currentLevel := t.levels[level]

		var siblingIndex int
		if index%2 == 0 {
			siblingIndex = index + 1
		} else {
			siblingIndex = index - 1
		}

		// A node with no sibling was promoted unchanged, so the proof
		// skips this level entirely.
		if siblingIndex < len(currentLevel) {
			siblings = append(siblings, currentLevel[siblingIndex])
		}

		index = index / 2
	}

	return &Proof{
		Leaf:     leaf,
		Siblings: siblings,
	}, nil
}

// VerifyProof checks that a leaf is committed to by root, recomputing the
// root from the leaf and the sibling hashes with the same sorted-pair rule
// used by BuildTree.
//
// A mismatched proof is a normal false result, not an error. The hasher
// must be the one the tree was built with; a divergent hash produces
// false negatives.
func VerifyProof(leaf [32]byte, siblings [][32]byte, root [32]byte, h hasher.Hasher) bool {
	current := leaf
	for _, sibling := range siblings {
		current = hashPair(current, sibling, h)
	}
	return current == root
}

// hashPair hashes two nodes in byte-sorted order: H(min(a,b) || max(a,b)).
func hashPair(a, b [32]byte, h hasher.Hasher) [32]byte {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return h.Hash(a[:], b[:])
	}
	return h.Hash(b[:], a[:])
}
