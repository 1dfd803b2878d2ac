package hasher

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// Supported hash algorithm names.
const (
	AlgorithmKeccak256 = "keccak256"
	AlgorithmSHA3256   = "sha3-256"

	// DefaultAlgorithm matches the hash used by on-chain verifiers.
	DefaultAlgorithm = AlgorithmKeccak256
)

// ErrHashUnavailable is returned when no hasher exists for the requested
// algorithm. This is a fatal configuration error: callers must fail at
// construction time rather than fall back to a different hash, since a
// divergent hash silently breaks root compatibility.
var ErrHashUnavailable = fmt.Errorf("hash function unavailable")

// Hasher computes 32-byte digests over concatenated inputs.
// Implementations must be safe for concurrent use.
type Hasher interface {
	// Hash returns the digest of the concatenation of all inputs.
	Hash(data ...[]byte) [32]byte

	// Name returns the algorithm name, e.g. "keccak256".
	Name() string
}

// New returns the hasher for the given algorithm name.
// An empty name selects DefaultAlgorithm. Unknown names return
// ErrHashUnavailable.
func New(algorithm string) (Hasher, error) {
	switch algorithm {
	case "", AlgorithmKeccak256:
		return keccak256Hasher{}, nil
	case AlgorithmSHA3256:
		return sha3Hasher{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %q (supported: %s, %s)",
			ErrHashUnavailable, algorithm, AlgorithmKeccak256, AlgorithmSHA3256)
	}
}

// keccak256Hasher is the default hasher, compatible with Solidity's keccak256.
type keccak256Hasher struct{}

func (keccak256Hasher) Hash(data ...[]byte) [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(data...))
	return out
}

func (keccak256Hasher) Name() string {
	return AlgorithmKeccak256
}

// sha3Hasher uses the standardized SHA3-256 (NIST padding), which differs
// from keccak256. Roots built with it will not match Solidity verifiers.
type sha3Hasher struct{}

func (sha3Hasher) Hash(data ...[]byte) [32]byte {
	h := sha3.New256()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (sha3Hasher) Name() string {
	return AlgorithmSHA3256
}
