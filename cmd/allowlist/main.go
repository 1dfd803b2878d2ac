package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-allowlist-go/pkg/allowlist"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/config"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/hasher"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/logger"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/persistence"
	badgerStore "github.com/Layr-Labs/merkle-allowlist-go/pkg/persistence/badger"
	memoryStore "github.com/Layr-Labs/merkle-allowlist-go/pkg/persistence/memory"
	redisStore "github.com/Layr-Labs/merkle-allowlist-go/pkg/persistence/redis"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/types"
	"github.com/Layr-Labs/merkle-allowlist-go/pkg/util"
)

func main() {
	app := &cli.App{
		Name:  "allowlist",
		Usage: "Merkle allowlist commitment and proof tool",
		Description: `Builds merkle root commitments over sets of Ethereum addresses and
serves membership proofs against them.

The tree uses OpenZeppelin-compatible sorted-pair keccak256 hashing, so
roots and proofs verify directly against on-chain MerkleProof contracts.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "hash-algorithm",
				Aliases: []string{"hash"},
				Usage:   fmt.Sprintf("Tree hash algorithm: %s (on-chain compatible) or %s", hasher.AlgorithmKeccak256, hasher.AlgorithmSHA3256),
				Value:   hasher.DefaultAlgorithm,
				EnvVars: []string{config.EnvAllowlistHashAlgorithm},
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Snapshot store backend: memory, badger, or redis",
				Value:   string(config.StoreTypeBadger),
				EnvVars: []string{config.EnvAllowlistStoreType},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Badger database directory",
				Value:   ".allowlist-data",
				EnvVars: []string{config.EnvAllowlistDataDir},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis server address (host:port)",
				EnvVars: []string{config.EnvAllowlistRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvAllowlistRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number (0-15)",
				EnvVars: []string{config.EnvAllowlistRedisDB},
			},
			&cli.StringFlag{
				Name:    "verifier-address",
				Usage:   "On-chain verifier contract address (informational)",
				EnvVars: []string{config.EnvAllowlistVerifierAddr},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvAllowlistVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Build a snapshot from an identifier file and persist it",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "File with one address per line (# comments allowed)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "allocations",
						Usage:   "Optional JSON file mapping address to allocation amount (hex)",
						Aliases: []string{"a"},
					},
					&cli.BoolFlag{
						Name:  "activate",
						Usage: "Mark the new snapshot as active",
						Value: true,
					},
				},
				Action: buildCommand,
			},
			{
				Name:  "prove",
				Usage: "Generate a membership proof for an address",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "address",
						Usage:    "Address to prove membership for",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "snapshot",
						Usage: "Snapshot ID to prove against (defaults to the active snapshot)",
					},
					&cli.StringFlag{
						Name:  "root",
						Usage: "Merkle root to prove against (0x-prefixed hex), instead of a snapshot ID",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Emit the proof as JSON",
					},
				},
				Action: proveCommand,
			},
			{
				Name:  "verify",
				Usage: "Verify a membership proof against a root",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "address",
						Usage:    "Address the proof is for",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "root",
						Usage:    "Expected merkle root (0x-prefixed hex)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "proof",
						Usage: "Comma-separated sibling hashes (0x-prefixed hex); empty for a single-member tree",
					},
				},
				Action: verifyCommand,
			},
			{
				Name:  "snapshots",
				Usage: "Manage persisted snapshots",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List persisted snapshots",
						Action: snapshotsListCommand,
					},
					{
						Name:  "show",
						Usage: "Show one snapshot, including members and allocations",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "Snapshot ID", Required: true},
						},
						Action: snapshotsShowCommand,
					},
					{
						Name:  "delete",
						Usage: "Delete a snapshot",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "Snapshot ID", Required: true},
						},
						Action: snapshotsDeleteCommand,
					},
					{
						Name:  "activate",
						Usage: "Mark a snapshot as active",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "Snapshot ID", Required: true},
						},
						Action: snapshotsActivateCommand,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// parseConfig builds and validates the configuration from CLI flags/env
func parseConfig(c *cli.Context) (*config.AllowlistConfig, error) {
	cfg := &config.AllowlistConfig{
		HashAlgorithm:   c.String("hash-algorithm"),
		StoreType:       config.StoreType(c.String("store")),
		DataDir:         c.String("data-dir"),
		RedisAddress:    c.String("redis-address"),
		RedisPassword:   c.String("redis-password"),
		RedisDB:         c.Int("redis-db"),
		VerifierAddress: c.String("verifier-address"),
		Verbose:         c.Bool("verbose"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setup wires the logger, hasher, service, and snapshot store from config
func setup(c *cli.Context) (*allowlist.Service, persistence.ISnapshotStore, *zap.Logger, error) {
	cfg, err := parseConfig(c)
	if err != nil {
		return nil, nil, nil, err
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// The hash is chosen once here; there is no runtime fallback
	h, err := hasher.New(cfg.HashAlgorithm)
	if err != nil {
		return nil, nil, nil, err
	}

	svc, err := allowlist.NewService(h, l)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := newStore(cfg, l)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := store.HealthCheck(); err != nil {
		_ = store.Close()
		return nil, nil, nil, fmt.Errorf("snapshot store unhealthy: %w", err)
	}

	return svc, store, l, nil
}

// newStore creates the configured snapshot store backend
func newStore(cfg *config.AllowlistConfig, l *zap.Logger) (persistence.ISnapshotStore, error) {
	switch cfg.StoreType {
	case config.StoreTypeMemory:
		l.Sugar().Warn("Using in-memory snapshot store - data will be lost on exit")
		return memoryStore.NewMemoryStore(), nil
	case config.StoreTypeBadger:
		return badgerStore.NewBadgerStore(cfg.DataDir, l)
	case config.StoreTypeRedis:
		return redisStore.NewRedisStore(&redisStore.RedisConfig{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, l)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.StoreType)
	}
}

func buildCommand(c *cli.Context) error {
	svc, store, l, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	identifiers, err := readIdentifiers(c.String("input"))
	if err != nil {
		return err
	}

	var allocations map[common.Address]*hexutil.Big
	if path := c.String("allocations"); path != "" {
		allocations, err = readAllocations(path)
		if err != nil {
			return err
		}
	}

	report, err := svc.Build(identifiers, allocations)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	if err := store.SaveSnapshot(report.Snapshot); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	if c.Bool("activate") {
		if err := store.SetActiveSnapshot(report.Snapshot.ID); err != nil {
			return fmt.Errorf("failed to activate snapshot: %w", err)
		}
	}

	l.Sugar().Infow("Snapshot persisted", "id", report.Snapshot.ID)

	fmt.Printf("Snapshot ID: %s\n", report.Snapshot.ID)
	fmt.Printf("Members:     %d\n", len(report.Snapshot.Members))
	fmt.Printf("Root:        %s\n", util.EncodeRoot(report.Snapshot.Root))
	if len(report.Skipped) > 0 {
		fmt.Printf("Skipped %d invalid entries:\n", len(report.Skipped))
		for _, entry := range report.Skipped {
			fmt.Printf("  %s: %s\n", entry.Identifier, entry.Reason)
		}
	}

	return nil
}

// resolveSnapshot loads the snapshot to prove against: by root, by ID, or
// the active snapshot when neither is given.
func resolveSnapshot(store persistence.ISnapshotStore, id, rootHex string) (*types.Snapshot, error) {
	if id != "" && rootHex != "" {
		return nil, fmt.Errorf("--snapshot and --root are mutually exclusive")
	}

	if rootHex != "" {
		root, err := util.ParseRoot(rootHex)
		if err != nil {
			return nil, err
		}
		snapshot, err := store.LoadSnapshotByRoot(root)
		if err != nil {
			return nil, err
		}
		if snapshot == nil {
			return nil, fmt.Errorf("no snapshot with root %s", rootHex)
		}
		return snapshot, nil
	}

	if id == "" {
		active, err := store.GetActiveSnapshot()
		if err != nil {
			return nil, err
		}
		if active == "" {
			return nil, fmt.Errorf("no active snapshot; run build first or pass --snapshot or --root")
		}
		id = active
	}

	snapshot, err := store.LoadSnapshot(id)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, fmt.Errorf("snapshot %s not found", id)
	}
	return snapshot, nil
}

func proveCommand(c *cli.Context) error {
	svc, store, _, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	snapshot, err := resolveSnapshot(store, c.String("snapshot"), c.String("root"))
	if err != nil {
		return err
	}
	if err := svc.LoadSnapshot(snapshot); err != nil {
		return err
	}

	proof, err := svc.Proof(c.String("address"))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		out, err := json.MarshalIndent(proof, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Address: %s\n", proof.Address.Hex())
	fmt.Printf("Leaf:    %s\n", proof.Leaf.Hex())
	fmt.Printf("Root:    %s\n", util.EncodeRoot(proof.Root))
	fmt.Println("Proof:")
	for _, el := range util.EncodeProof(proof.Siblings) {
		fmt.Printf("  %s\n", el)
	}

	return nil
}

func verifyCommand(c *cli.Context) error {
	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}

	// Verification is pure computation; no store needed
	h, err := hasher.New(cfg.HashAlgorithm)
	if err != nil {
		return err
	}
	svc, err := allowlist.NewService(h, zap.NewNop())
	if err != nil {
		return err
	}

	root, err := util.ParseRoot(c.String("root"))
	if err != nil {
		return err
	}
	siblings, err := util.ParseProofString(c.String("proof"))
	if err != nil {
		return err
	}

	ok, err := svc.Verify(c.String("address"), siblings, root)
	if err != nil {
		return err
	}

	if !ok {
		fmt.Println("INVALID")
		return cli.Exit("", 1)
	}
	fmt.Println("VALID")
	return nil
}

func snapshotsListCommand(c *cli.Context) error {
	_, store, _, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	snapshots, err := store.ListSnapshots()
	if err != nil {
		return err
	}
	active, err := store.GetActiveSnapshot()
	if err != nil {
		return err
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots")
		return nil
	}

	for _, snapshot := range snapshots {
		marker := " "
		if snapshot.ID == active {
			marker = "*"
		}
		fmt.Printf("%s %s  members=%d  root=%s\n",
			marker, snapshot.ID, len(snapshot.Members), util.EncodeRoot(snapshot.Root))
	}

	return nil
}

func snapshotsShowCommand(c *cli.Context) error {
	_, store, _, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	snapshot, err := store.LoadSnapshot(c.String("id"))
	if err != nil {
		return err
	}
	if snapshot == nil {
		return fmt.Errorf("snapshot %s not found", c.String("id"))
	}

	out, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func snapshotsDeleteCommand(c *cli.Context) error {
	_, store, _, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.DeleteSnapshot(c.String("id"))
}

func snapshotsActivateCommand(c *cli.Context) error {
	_, store, _, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.SetActiveSnapshot(c.String("id"))
}

// readIdentifiers reads one identifier per line, skipping blanks and
// # comments. Validation happens during the build, not here.
func readIdentifiers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open identifier file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var identifiers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		identifiers = append(identifiers, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read identifier file: %w", err)
	}

	return identifiers, nil
}

// readAllocations reads a JSON object mapping addresses to hex amounts,
// e.g. {"0xabc...": "0xde0b6b3a7640000"}.
func readAllocations(path string) (map[common.Address]*hexutil.Big, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read allocations file: %w", err)
	}

	allocations := make(map[common.Address]*hexutil.Big)
	if err := json.Unmarshal(data, &allocations); err != nil {
		return nil, fmt.Errorf("failed to parse allocations file: %w", err)
	}

	return allocations, nil
}
