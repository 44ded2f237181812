// Package bootstrap assembles platform components from environment
// configuration. The helpers exit the process on failure; the daemon and CLI
// cannot run degraded.
package bootstrap

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"

	"github.com/rwaledger/pledge-core/internal/agreement"
	"github.com/rwaledger/pledge-core/internal/asset"
	"github.com/rwaledger/pledge-core/internal/assetledger"
	"github.com/rwaledger/pledge-core/internal/events"
	"github.com/rwaledger/pledge-core/internal/holdings"
	"github.com/rwaledger/pledge-core/internal/platform/config"
	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/logger"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/internal/registry"
	"github.com/rwaledger/pledge-core/internal/stable"
	"github.com/rwaledger/pledge-core/internal/treasury"
	"github.com/rwaledger/pledge-core/pkg/account"
)

// NewContextWithLogger builds the process root context. The logger is
// configured straight from the environment because config parsing itself
// needs somewhere to report.
func NewContextWithLogger() context.Context {
	ctx := context.Background()

	format := os.Getenv("PLEDGE_LOG_FORMAT")
	if len(format) == 0 {
		format = "text"
	}
	path := os.Getenv("PLEDGE_LOG_FILE_PATH")

	if strings.ToUpper(os.Getenv("PLEDGE_DEVELOPMENT")) == "TRUE" {
		if len(path) > 0 {
			return node.ContextWithDevelopmentFileLogger(ctx, path, format)
		}
		return node.ContextWithDevelopmentLogger(ctx, format)
	}

	if len(path) > 0 {
		return node.ContextWithProductionFileLogger(ctx, path, format)
	}
	return node.ContextWithProductionLogger(ctx, format)
}

// NewConfigFromEnv loads the runtime configuration and logs a masked copy.
func NewConfigFromEnv(ctx context.Context) *config.Config {
	cfg, err := config.Environment()
	if err != nil {
		logger.Fatal(ctx, "Parsing config : %s", err)
	}

	cfgJSON, err := json.MarshalIndent(config.SafeConfig(*cfg), "", "    ")
	if err != nil {
		logger.Fatal(ctx, "Marshalling config : %s", err)
	}
	logger.Info(ctx, "Config : %v", string(cfgJSON))

	return cfg
}

// NewMasterDB opens the document store behind every component cache.
func NewMasterDB(ctx context.Context, cfg *config.Config) *db.DB {
	masterDB, err := db.New(&db.StorageConfig{
		Region:    cfg.AWS.Region,
		AccessKey: cfg.AWS.AccessKeyID,
		Secret:    cfg.AWS.SecretAccessKey,
		Bucket:    cfg.Storage.Bucket,
		Root:      cfg.Storage.Root,
	})
	if err != nil {
		logger.Fatal(ctx, "Opening storage : %s", err)
	}

	return masterDB
}

// RegistryKey loads the registry's custodial identity from config.
func RegistryKey(ctx context.Context, cfg *config.Config) *account.Key {
	raw, err := hex.DecodeString(cfg.Registry.PrivateKey)
	if err != nil {
		logger.Fatal(ctx, "Decoding registry key : %s", err)
	}

	key, err := account.KeyFromPrivateBytes(raw)
	if err != nil {
		logger.Fatal(ctx, "Loading registry key : %s", err)
	}

	return key
}

// Accounts resolves the operational accounts named in config. All three are
// required; they seed the role table when the components first initialize.
func Accounts(ctx context.Context, cfg *config.Config) (admin, operator, finance account.ID) {
	var err error

	if admin, err = account.FromString(cfg.Registry.AdminAccount); err != nil {
		logger.Fatal(ctx, "Invalid admin account : %s", err)
	}
	if operator, err = account.FromString(cfg.Registry.OperatorAccount); err != nil {
		logger.Fatal(ctx, "Invalid operator account : %s", err)
	}
	if finance, err = account.FromString(cfg.Registry.FinanceAccount); err != nil {
		logger.Fatal(ctx, "Invalid finance account : %s", err)
	}

	return admin, operator, finance
}

// EnsureComponents initializes the ledger and registry singletons on first
// boot and is a no-op on every later one.
func EnsureComponents(ctx context.Context, cfg *config.Config, masterDB *db.DB,
	own, admin, operator, finance account.ID) {

	now := state.CurrentTimestamp()

	if err := assetledger.Ensure(ctx, masterDB, admin, own,
		cfg.Registry.DefaultDiscountRate, now); err != nil {
		logger.Fatal(ctx, "Initializing asset ledger : %s", err)
	}

	if err := registry.Ensure(ctx, masterDB, own, admin, operator, finance,
		cfg.Registry.DefaultSpreadRate, now); err != nil {
		logger.Fatal(ctx, "Initializing registry : %s", err)
	}
}

// NewEventSink opens the audit event sink: Postgres when a DSN is configured,
// the process log otherwise.
func NewEventSink(ctx context.Context, cfg *config.Config) events.Sink {
	if len(cfg.Events.PostgresURL) == 0 {
		logger.Info(ctx, "No event store configured : writing events to log")
		return &events.LogSink{}
	}

	sink, err := events.NewPostgresSink(cfg.Events.PostgresURL, cfg.Events.Migrate)
	if err != nil {
		logger.Fatal(ctx, "Opening event store : %s", err)
	}

	return sink
}

// Flush pushes every modified cache entry to storage.
func Flush(ctx context.Context, masterDB *db.DB) error {
	writers := []func(context.Context, *db.DB) error{
		assetledger.WriteCache,
		asset.WriteCache,
		holdings.WriteCache,
		registry.WriteCache,
		agreement.WriteCache,
		treasury.WriteCache,
		stable.WriteCache,
	}

	for _, write := range writers {
		if err := write(ctx, masterDB); err != nil {
			return err
		}
	}

	return nil
}

// CacheFlusher is the scheduler job that writes modified cache entries
// behind the executor.
type CacheFlusher struct {
	masterDB *db.DB
}

func NewCacheFlusher(masterDB *db.DB) *CacheFlusher {
	return &CacheFlusher{masterDB: masterDB}
}

func (f *CacheFlusher) Run(ctx context.Context) {
	if err := Flush(ctx, f.masterDB); err != nil {
		logger.Error(ctx, "Failed to flush caches : %s", err)
	}
}
