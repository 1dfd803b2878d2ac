package allowlist

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/merkle-allowlist-go/pkg/hasher"
)

// ErrInvalidIdentifier is returned when an identifier cannot be parsed
// into a canonical 20-byte address: malformed hex, wrong length, or a
// mixed-case form that fails its EIP-55 checksum.
var ErrInvalidIdentifier = fmt.Errorf("invalid identifier")

// CanonicalAddress normalizes an identifier to its canonical 20-byte
// address form.
//
// Accepted surface forms: all-lowercase hex, all-uppercase hex, and
// EIP-55 checksummed mixed case, each with or without a 0x prefix.
// Mixed-case input that does not match its checksum is rejected rather
// than coerced, since a failed checksum usually means a typo.
func CanonicalAddress(identifier string) (common.Address, error) {
	s := strings.TrimSpace(identifier)
	if s == "" {
		return common.Address{}, fmt.Errorf("%w: empty identifier", ErrInvalidIdentifier)
	}

	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q is not a 20-byte hex address", ErrInvalidIdentifier, identifier)
	}

	addr := common.HexToAddress(s)

	hexPart := s
	if strings.HasPrefix(hexPart, "0x") || strings.HasPrefix(hexPart, "0X") {
		hexPart = hexPart[2:]
	}

	// Uniform casing carries no checksum; mixed case must match EIP-55 exactly
	if hexPart != strings.ToLower(hexPart) && hexPart != strings.ToUpper(hexPart) {
		if "0x"+hexPart != addr.Hex() {
			return common.Address{}, fmt.Errorf("%w: %q fails EIP-55 checksum", ErrInvalidIdentifier, identifier)
		}
	}

	return addr, nil
}

// LeafFor derives the 32-byte merkle leaf for a canonical address:
// the hash of its 20-byte encoding, using the same hash function as the
// interior nodes.
func LeafFor(addr common.Address, h hasher.Hasher) [32]byte {
	return h.Hash(addr.Bytes())
}
