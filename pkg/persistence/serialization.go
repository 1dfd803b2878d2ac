package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/merkle-allowlist-go/pkg/types"
)

// MarshalSnapshot serializes a Snapshot to JSON bytes.
// Roots and addresses serialize as 0x-prefixed hex via their hexutil
// marshalers, so the stored form matches the external interchange format.
func MarshalSnapshot(snapshot *types.Snapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("cannot marshal nil Snapshot")
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Snapshot to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalSnapshot deserializes a Snapshot from JSON bytes.
func UnmarshalSnapshot(data []byte) (*types.Snapshot, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var snapshot types.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to Snapshot: %w", err)
	}

	return &snapshot, nil
}
