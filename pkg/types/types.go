package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Snapshot is an immutable commitment over a deduplicated member set.
// It is built once from a full membership list; there is no incremental
// insertion or removal. Rebuilds produce a new Snapshot with a new ID.
type Snapshot struct {
	// ID uniquely identifies this snapshot (UUID)
	ID string `json:"id"`

	// CreatedAt is the Unix timestamp when the snapshot was built
	CreatedAt int64 `json:"createdAt"`

	// HashAlgorithm names the hash the tree was built with, e.g. "keccak256".
	// Proof verification must use the same algorithm.
	HashAlgorithm string `json:"hashAlgorithm"`

	// Root is the merkle root committing to Members
	Root common.Hash `json:"root"`

	// Members holds the canonical addresses in build order, after
	// deduplication. Leaf i of the tree is the hash of Members[i].
	Members []common.Address `json:"members"`

	// Allocations is opaque application metadata keyed by canonical
	// address (e.g. airdrop amounts). The engine stores and returns it
	// but never computes with it.
	Allocations map[common.Address]*hexutil.Big `json:"allocations,omitempty"`
}

// InvalidEntry records an identifier that was skipped during a build
// because it could not be canonicalized.
type InvalidEntry struct {
	// Identifier is the raw input as supplied by the caller
	Identifier string `json:"identifier"`

	// Reason is a human-readable description of why it was rejected
	Reason string `json:"reason"`
}

// BuildReport is the result of building a snapshot. Invalid inputs do not
// abort the build; they are skipped and reported here.
type BuildReport struct {
	// Snapshot is the commitment that was built
	Snapshot *Snapshot `json:"snapshot"`

	// Skipped lists the inputs that were rejected during canonicalization
	Skipped []InvalidEntry `json:"skipped,omitempty"`
}

// MembershipProof proves that an address is a member of the set committed
// to by Root. Siblings carry no left/right metadata; the sorted-pair
// hashing rule makes verification position-independent.
type MembershipProof struct {
	// Address is the canonical form of the proven identifier
	Address common.Address `json:"address"`

	// Leaf is the hash of the canonical address
	Leaf common.Hash `json:"leaf"`

	// Siblings are the proof hashes from leaf to root
	Siblings []common.Hash `json:"siblings"`

	// Root is the root the proof was generated against
	Root common.Hash `json:"root"`
}
