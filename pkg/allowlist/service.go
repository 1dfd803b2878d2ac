package allowlist

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-allowlist-go/pkg/hasher"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/types"
)

var (
	// ErrMemberNotFound is returned when a proof is requested for an
	// identifier that is not in the current snapshot. It is distinct from
	// a valid zero-length proof (single-member snapshot).
	ErrMemberNotFound = fmt.Errorf("member not found in snapshot")

	// ErrNoSnapshot is returned when a proof is requested before any
	// snapshot has been built or loaded.
	ErrNoSnapshot = fmt.Errorf("no snapshot built")
)

// Service builds allowlist snapshots and serves membership proofs.
//
// The current snapshot and its tree are replaced atomically on Build and
// LoadSnapshot; proofs already generated against an older root stay valid
// for that root.
type Service struct {
	hasher hasher.Hasher
	logger *zap.Logger

	mu       sync.RWMutex
	snapshot *types.Snapshot
	tree     *merkle.Tree
}

// NewService creates an allowlist service. The hasher is mandatory and
// chosen once here; there is no runtime fallback between hash backends.
func NewService(h hasher.Hasher, logger *zap.Logger) (*Service, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: no hasher configured", hasher.ErrHashUnavailable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		hasher: h,
		logger: logger,
	}, nil
}

// Build constructs a new snapshot from the given identifiers and installs
// it as the current one.
//
// Identifiers are canonicalized and deduplicated (first occurrence wins);
// entries that fail canonicalization are skipped, logged, and reported in
// the returned BuildReport rather than aborting the build. The allocations
// map is opaque metadata carried on the snapshot; entries for addresses
// outside the member set are dropped.
func (s *Service) Build(identifiers []string, allocations map[common.Address]*hexutil.Big) (*types.BuildReport, error) {
	members := make([]common.Address, 0, len(identifiers))
	seen := make(map[common.Address]struct{}, len(identifiers))
	var skipped []types.InvalidEntry

	for _, id := range identifiers {
		addr, err := CanonicalAddress(id)
		if err != nil {
			s.logger.Sugar().Warnw("Skipping invalid identifier",
				"identifier", id, "error", err)
			skipped = append(skipped, types.InvalidEntry{
				Identifier: id,
				Reason:     err.Error(),
			})
			continue
		}

		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		members = append(members, addr)
	}

	leaves := make([][32]byte, len(members))
	for i, addr := range members {
		leaves[i] = LeafFor(addr, s.hasher)
	}

	tree := merkle.BuildTree(leaves, s.hasher)

	snap := &types.Snapshot{
		ID:            uuid.New().String(),
		CreatedAt:     time.Now().Unix(),
		HashAlgorithm: s.hasher.Name(),
		Root:          tree.Root,
		Members:       members,
	}

	if len(allocations) > 0 {
		snap.Allocations = make(map[common.Address]*hexutil.Big, len(allocations))
		for addr, amount := range allocations {
			if _, ok := seen[addr]; ok {
				snap.Allocations[addr] = amount
			}
		}
	}

	s.mu.Lock()
	s.snapshot = snap
	s.tree = tree
	s.mu.Unlock()

	s.logger.Sugar().Infow("Built allowlist snapshot",
		"id", snap.ID,
		"members", len(members),
		"skipped", len(skipped),
		"root", snap.Root.Hex())

	return &types.BuildReport{
		Snapshot: snap,
		Skipped:  skipped,
	}, nil
}

// LoadSnapshot installs a previously persisted snapshot as the current one.
// The tree is rebuilt from the stored member list and the recomputed root
// must match the stored root; a mismatch means the snapshot was built with
// a different hash algorithm or was corrupted.
func (s *Service) LoadSnapshot(snap *types.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("cannot load nil snapshot")
	}
	if snap.HashAlgorithm != "" && snap.HashAlgorithm != s.hasher.Name() {
		return fmt.Errorf("snapshot %s was built with %s, service is configured for %s",
			snap.ID, snap.HashAlgorithm, s.hasher.Name())
	}

	leaves := make([][32]byte, len(snap.Members))
	for i, addr := range snap.Members {
		leaves[i] = LeafFor(addr, s.hasher)
	}

	tree := merkle.BuildTree(leaves, s.hasher)
	if tree.Root != [32]byte(snap.Root) {
		return fmt.Errorf("snapshot %s root mismatch: stored %s, recomputed %s",
			snap.ID, snap.Root.Hex(), common.Hash(tree.Root).Hex())
	}

	s.mu.Lock()
	s.snapshot = snap
	s.tree = tree
	s.mu.Unlock()

	return nil
}

// Proof generates a membership proof for the given identifier against the
// current snapshot. Returns ErrInvalidIdentifier for unparseable input and
// ErrMemberNotFound when the identifier is not in the member set.
func (s *Service) Proof(identifier string) (*types.MembershipProof, error) {
	addr, err := CanonicalAddress(identifier)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	snap, tree := s.snapshot, s.tree
	s.mu.RUnlock()

	if tree == nil {
		return nil, ErrNoSnapshot
	}

	leaf := LeafFor(addr, s.hasher)
	proof, err := tree.GenerateProof(leaf)
	if err != nil {
		if errors.Is(err, merkle.ErrLeafNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, addr.Hex())
		}
		return nil, err
	}

	siblings := make([]common.Hash, len(proof.Siblings))
	for i, sib := range proof.Siblings {
		siblings[i] = common.Hash(sib)
	}

	return &types.MembershipProof{
		Address:  addr,
		Leaf:     common.Hash(leaf),
		Siblings: siblings,
		Root:     snap.Root,
	}, nil
}

// Verify checks a membership proof for the given identifier against an
// expected root. A mismatched proof is a normal false result; errors are
// reserved for unparseable identifiers.
func (s *Service) Verify(identifier string, siblings []common.Hash, root common.Hash) (bool, error) {
	addr, err := CanonicalAddress(identifier)
	if err != nil {
		return false, err
	}

	raw := make([][32]byte, len(siblings))
	for i, sib := range siblings {
		raw[i] = [32]byte(sib)
	}

	leaf := LeafFor(addr, s.hasher)
	return merkle.VerifyProof(leaf, raw, [32]byte(root), s.hasher), nil
}

// Root returns the current snapshot root, or the zero hash when no
// snapshot has been built.
func (s *Service) Root() common.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return common.Hash{}
	}
	return s.snapshot.Root
}

// Snapshot returns the current snapshot, or nil when none has been built.
// The returned snapshot is immutable by convention; callers must not
// modify it.
func (s *Service) Snapshot() *types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Members returns the canonical member addresses of the current snapshot
// in build order.
func (s *Service) Members() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return nil
	}
	members := make([]common.Address, len(s.snapshot.Members))
	copy(members, s.snapshot.Members)
	return members
}

// Allocation looks up the opaque allocation metadata for a canonical
// address in the current snapshot.
func (s *Service) Allocation(addr common.Address) (*hexutil.Big, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil || s.snapshot.Allocations == nil {
		return nil, false
	}
	amount, ok := s.snapshot.Allocations[addr]
	return amount, ok
}
