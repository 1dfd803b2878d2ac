package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for allowlist CLI configuration
const (
	EnvAllowlistHashAlgorithm = "ALLOWLIST_HASH_ALGORITHM"
	EnvAllowlistStoreType     = "ALLOWLIST_STORE_TYPE"
	EnvAllowlistDataDir       = "ALLOWLIST_DATA_DIR"
	EnvAllowlistRedisAddress  = "ALLOWLIST_REDIS_ADDRESS"
	EnvAllowlistRedisPassword = "ALLOWLIST_REDIS_PASSWORD"
	EnvAllowlistRedisDB       = "ALLOWLIST_REDIS_DB"
	EnvAllowlistVerifierAddr  = "ALLOWLIST_VERIFIER_ADDRESS"
	EnvAllowlistVerbose       = "ALLOWLIST_VERBOSE"
)

// StoreType selects the snapshot persistence backend.
type StoreType string

func (s StoreType) String() string {
	return string(s)
}

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeBadger StoreType = "badger" // Badger is the default for single-node use
	StoreTypeRedis  StoreType = "redis"
)

// ParseStoreType validates a store type string.
func ParseStoreType(s string) (StoreType, error) {
	switch StoreType(s) {
	case StoreTypeMemory:
		return StoreTypeMemory, nil
	case StoreTypeBadger, "":
		return StoreTypeBadger, nil
	case StoreTypeRedis:
		return StoreTypeRedis, nil
	default:
		return "", fmt.Errorf("unsupported store type: %s (supported: %s, %s, %s)",
			s, StoreTypeMemory, StoreTypeBadger, StoreTypeRedis)
	}
}

// AllowlistConfig represents the complete configuration for the allowlist CLI
type AllowlistConfig struct {
	// HashAlgorithm names the tree hash, e.g. "keccak256".
	// Must match the hash the eventual on-chain verifier uses.
	HashAlgorithm string `json:"hash_algorithm"`

	// Persistence configuration
	StoreType     StoreType `json:"store_type"`
	DataDir       string    `json:"data_dir"`       // Badger database directory
	RedisAddress  string    `json:"redis_address"`  // Redis host:port
	RedisPassword string    `json:"redis_password"` // Optional Redis password
	RedisDB       int       `json:"redis_db"`       // Redis database number

	// VerifierAddress is the optional address of the on-chain contract the
	// root is published to. Recorded for operator reference only; the
	// engine never talks to the chain.
	VerifierAddress string `json:"verifier_address,omitempty"`

	// Operational settings
	Verbose bool `json:"verbose"`
}

// Validate validates the allowlist configuration
func (c *AllowlistConfig) Validate() error {
	var allErrors field.ErrorList

	storeType, err := ParseStoreType(string(c.StoreType))
	if err != nil {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("storeType"), string(c.StoreType),
			[]string{string(StoreTypeMemory), string(StoreTypeBadger), string(StoreTypeRedis)}))
	} else {
		c.StoreType = storeType
	}

	switch c.StoreType {
	case StoreTypeBadger:
		if c.DataDir == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("dataDir"),
				"dataDir is required for the badger store"))
		}
	case StoreTypeRedis:
		if c.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redisAddress"),
				"redisAddress is required for the redis store"))
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("redisDB"), c.RedisDB,
				"redisDB must be between 0 and 15"))
		}
	}

	if c.VerifierAddress != "" && !common.IsHexAddress(c.VerifierAddress) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("verifierAddress"), c.VerifierAddress,
			"verifierAddress must be a 20-byte hex address"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
