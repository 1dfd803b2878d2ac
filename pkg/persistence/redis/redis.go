package redis

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-allowlist-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/types"
)

// Key suffixes for namespacing in Redis
const (
	keyPrefixSnapshot    = "allowlist:snapshot:"
	keyPrefixRoot        = "allowlist:root:"
	keyActiveSnapshot    = "allowlist:active:snapshot"
	keySchemaVersion     = "allowlist:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Key set for listing operations (Redis doesn't support prefix iteration natively)
	keySetSnapshots = "allowlist:snapshots:index"

	opTimeout = 5 * time.Second
)

// RedisStore is a snapshot store backed by Redis, suitable for
// cloud-native deployments where multiple services share one allowlist.
type RedisStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string // Custom prefix for all keys
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for multi-tenant
	// setups). If set, keys become e.g. "myapp:allowlist:snapshot:<id>".
	KeyPrefix string
}

// NewRedisStore creates a new Redis-backed snapshot store and verifies
// connectivity with a ping.
func NewRedisStore(cfg *RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg == nil {
		return nil, errors.New("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, errors.New("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.Address)
	}

	rs := &RedisStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rs.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	logger.Sugar().Infow("Redis snapshot store initialized", "address", cfg.Address, "db", cfg.DB)

	return rs, nil
}

// initSchema initializes or validates the schema version
func (r *RedisStore) initSchema(ctx context.Context) error {
	existing, err := r.client.Get(ctx, r.key(keySchemaVersion)).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, r.key(keySchemaVersion), currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return errors.Wrap(err, "failed to read schema version")
	}
	if existing != currentSchemaVersion {
		return errors.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
	}
	return nil
}

// key applies the configured key prefix
func (r *RedisStore) key(suffix string) string {
	return r.keyPrefix + suffix
}

// SaveSnapshot persists a snapshot and indexes it by root
func (r *RedisStore) SaveSnapshot(snapshot *types.Snapshot) error {
	if snapshot == nil {
		return errors.New("cannot save nil Snapshot")
	}
	if snapshot.ID == "" {
		return errors.New("cannot save Snapshot with empty ID")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return errors.New("snapshot store is closed")
	}

	data, err := persistence.MarshalSnapshot(snapshot)
	if err != nil {
		return errors.Wrap(err, "failed to marshal Snapshot")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(keyPrefixSnapshot+snapshot.ID), data, 0)
	pipe.Set(ctx, r.key(keyPrefixRoot+snapshot.Root.Hex()), snapshot.ID, 0)
	pipe.SAdd(ctx, r.key(keySetSnapshots), snapshot.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to save Snapshot")
	}

	return nil
}

// LoadSnapshot retrieves a snapshot by ID
func (r *RedisStore) LoadSnapshot(id string) (*types.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errors.New("snapshot store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.loadSnapshot(ctx, id)
}

// LoadSnapshotByRoot retrieves a snapshot through the root index
func (r *RedisStore) LoadSnapshotByRoot(root common.Hash) (*types.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errors.New("snapshot store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	id, err := r.client.Get(ctx, r.key(keyPrefixRoot+root.Hex())).Result()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve root index")
	}

	return r.loadSnapshot(ctx, id)
}

// loadSnapshot reads and unmarshals one snapshot record.
// Callers must hold the read lock.
func (r *RedisStore) loadSnapshot(ctx context.Context, id string) (*types.Snapshot, error) {
	data, err := r.client.Get(ctx, r.key(keyPrefixSnapshot+id)).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load Snapshot")
	}

	snapshot, err := persistence.UnmarshalSnapshot(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal Snapshot")
	}

	return snapshot, nil
}

// ListSnapshots returns all snapshots sorted by CreatedAt
func (r *RedisStore) ListSnapshots() ([]*types.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errors.New("snapshot store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ids, err := r.client.SMembers(ctx, r.key(keySetSnapshots)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list snapshot index")
	}

	snapshots := make([]*types.Snapshot, 0, len(ids))
	for _, id := range ids {
		snapshot, err := r.loadSnapshot(ctx, id)
		if err != nil {
			return nil, err
		}
		if snapshot == nil {
			// Index entry without a record; clean it up lazily
			r.logger.Sugar().Warnw("Dangling snapshot index entry, removing", "id", id)
			_ = r.client.SRem(ctx, r.key(keySetSnapshots), id).Err()
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt != snapshots[j].CreatedAt {
			return snapshots[i].CreatedAt < snapshots[j].CreatedAt
		}
		return snapshots[i].ID < snapshots[j].ID
	})

	return snapshots, nil
}

// DeleteSnapshot removes a snapshot, its root index, and its index-set
// entry. Idempotent.
func (r *RedisStore) DeleteSnapshot(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return errors.New("snapshot store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	snapshot, err := r.loadSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil // Already gone
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(keyPrefixSnapshot+id))
	pipe.Del(ctx, r.key(keyPrefixRoot+snapshot.Root.Hex()))
	pipe.SRem(ctx, r.key(keySetSnapshots), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to delete Snapshot")
	}

	// Clear the active pointer if it referenced this snapshot
	active, err := r.client.Get(ctx, r.key(keyActiveSnapshot)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read active snapshot")
	}
	if active == id {
		return r.client.Del(ctx, r.key(keyActiveSnapshot)).Err()
	}

	return nil
}

// SetActiveSnapshot stores the active snapshot pointer
func (r *RedisStore) SetActiveSnapshot(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return errors.New("snapshot store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if id == "" {
		return r.client.Del(ctx, r.key(keyActiveSnapshot)).Err()
	}

	snapshot, err := r.loadSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return errors.Errorf("cannot activate unknown snapshot %s", id)
	}

	return r.client.Set(ctx, r.key(keyActiveSnapshot), id, 0).Err()
}

// GetActiveSnapshot retrieves the active snapshot pointer
func (r *RedisStore) GetActiveSnapshot() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return "", errors.New("snapshot store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	id, err := r.client.Get(ctx, r.key(keyActiveSnapshot)).Result()
	if err == redis.Nil {
		return "", nil // No active snapshot set yet
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to get active snapshot")
	}

	return id, nil
}

// Close shuts down the store
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil // Already closed, idempotent
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return errors.Wrap(err, "failed to close redis client")
	}

	r.logger.Sugar().Info("Redis snapshot store closed")
	return nil
}

// HealthCheck verifies the store is operational
func (r *RedisStore) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return errors.New("snapshot store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.client.Ping(ctx).Err()
}
