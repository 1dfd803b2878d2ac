package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStoreType(t *testing.T) {
	testCases := []struct {
		input   string
		want    StoreType
		wantErr bool
	}{
		{"memory", StoreTypeMemory, false},
		{"badger", StoreTypeBadger, false},
		{"redis", StoreTypeRedis, false},
		{"", StoreTypeBadger, false}, // Empty defaults to badger
		{"postgres", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseStoreType(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("Valid badger config", func(t *testing.T) {
		cfg := &AllowlistConfig{
			HashAlgorithm: "keccak256",
			StoreType:     StoreTypeBadger,
			DataDir:       "/tmp/allowlist",
		}
		require.NoError(t, cfg.Validate())
	})

	t.Run("Badger requires data dir", func(t *testing.T) {
		cfg := &AllowlistConfig{StoreType: StoreTypeBadger}
		require.Error(t, cfg.Validate())
	})

	t.Run("Redis requires address", func(t *testing.T) {
		cfg := &AllowlistConfig{StoreType: StoreTypeRedis}
		require.Error(t, cfg.Validate())
	})

	t.Run("Redis DB range", func(t *testing.T) {
		cfg := &AllowlistConfig{
			StoreType:    StoreTypeRedis,
			RedisAddress: "localhost:6379",
			RedisDB:      16,
		}
		require.Error(t, cfg.Validate())
	})

	t.Run("Memory store needs nothing else", func(t *testing.T) {
		cfg := &AllowlistConfig{StoreType: StoreTypeMemory}
		require.NoError(t, cfg.Validate())
	})

	t.Run("Bad store type", func(t *testing.T) {
		cfg := &AllowlistConfig{StoreType: "postgres"}
		require.Error(t, cfg.Validate())
	})

	t.Run("Verifier address checked when set", func(t *testing.T) {
		cfg := &AllowlistConfig{
			StoreType:       StoreTypeMemory,
			VerifierAddress: "not-an-address",
		}
		require.Error(t, cfg.Validate())

		cfg.VerifierAddress = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
		require.NoError(t, cfg.Validate())
	})

	t.Run("Empty store type defaults to badger", func(t *testing.T) {
		cfg := &AllowlistConfig{DataDir: "/tmp/allowlist"}
		require.NoError(t, cfg.Validate())
		require.Equal(t, StoreTypeBadger, cfg.StoreType)
	})
}
