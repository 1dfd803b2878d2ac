package util

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EncodeRoot renders a 32-byte root as a 0x-prefixed lowercase hex string.
func EncodeRoot(root common.Hash) string {
	return hexutil.Encode(root[:])
}

// ParseRoot parses a 0x-prefixed hex string into a 32-byte root.
func ParseRoot(s string) (common.Hash, error) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid root %q: %w", s, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid root %q: expected %d bytes, got %d", s, common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

// EncodeProof renders proof siblings as 0x-prefixed hex strings, one per
// sibling, in leaf-to-root order.
func EncodeProof(siblings []common.Hash) []string {
	out := make([]string, len(siblings))
	for i, sib := range siblings {
		out[i] = hexutil.Encode(sib[:])
	}
	return out
}

// ParseProof parses proof siblings from 0x-prefixed hex strings.
// Each element must decode to exactly 32 bytes.
func ParseProof(elements []string) ([]common.Hash, error) {
	siblings := make([]common.Hash, 0, len(elements))
	for i, el := range elements {
		el = strings.TrimSpace(el)
		if el == "" {
			continue
		}
		b, err := hexutil.Decode(el)
		if err != nil {
			return nil, fmt.Errorf("invalid proof element %d (%q): %w", i, el, err)
		}
		if len(b) != common.HashLength {
			return nil, fmt.Errorf("invalid proof element %d (%q): expected %d bytes, got %d", i, el, common.HashLength, len(b))
		}
		siblings = append(siblings, common.BytesToHash(b))
	}
	return siblings, nil
}

// ParseProofString parses a comma-separated proof, the format accepted on
// the command line.
func ParseProofString(s string) ([]common.Hash, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return ParseProof(strings.Split(s, ","))
}
