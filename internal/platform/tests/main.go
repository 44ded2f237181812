package tests

import (
	"context"
	"os"
	"testing"

	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/logger"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"
	"github.com/rwaledger/pledge-core/pkg/scheduler"
)

// Markers used in test output.
var (
	Success = "✓"
	Failed  = "✗"
)

// Test holds everything a component test needs: a context with a logger and
// operation values, storage backed by a temporary directory, and a running
// scheduler.
type Test struct {
	Context   context.Context
	MasterDB  *db.DB
	Scheduler *scheduler.Scheduler

	path       string
	schStarted bool
	values     node.Values
}

// New builds a test fixture. Returns nil when setup fails.
func New() *Test {
	test := &Test{
		Scheduler: &scheduler.Scheduler{},
	}

	ctx := node.ContextWithDevelopmentLogger(context.Background(), "text")

	path, err := os.MkdirTemp("", "pledge")
	if err != nil {
		logger.Error(ctx, "Failed to create test storage : %s", err)
		return nil
	}
	test.path = path

	test.MasterDB, err = db.New(&db.StorageConfig{
		Bucket: "standalone",
		Root:   path,
	})
	if err != nil {
		logger.Error(ctx, "Failed to create DB : %s", err)
		return nil
	}

	test.values = node.Values{
		TraceID: "test",
		Now:     state.CurrentTimestamp(),
	}
	test.Context = context.WithValue(ctx, node.KeyValues, &test.values)

	test.schStarted = true
	go func() {
		if err := test.Scheduler.Run(ctx); err != nil {
			logger.Error(ctx, "Scheduler failed : %s", err)
		}
	}()

	return test
}

// TearDown stops the scheduler and removes the temporary storage.
func (test *Test) TearDown() {
	if test.schStarted {
		test.Scheduler.Stop(test.Context)
	}
	if test.MasterDB != nil {
		test.MasterDB.Clear(test.Context, "")
		test.MasterDB.Close()
	}
	if len(test.path) > 0 {
		os.RemoveAll(test.path)
	}
}

// ResetDB clears all stored state so test cases start clean. Package level
// caches must be reset by the caller; storage alone is cleared here.
func (test *Test) ResetDB() error {
	return test.MasterDB.Clear(test.Context, "")
}

// SetNow moves the operation clock in the test context.
func (test *Test) SetNow(now state.Timestamp) {
	test.values.Now = now
}

// GenerateKey mints a fresh identity the way the custodial signer does.
func (test *Test) GenerateKey() (*account.Key, error) {
	return account.NewKey()
}

// Recover cleans up after a panicking test so remaining tests still run.
func Recover(t testing.TB) {
	if r := recover(); r != nil {
		t.Fatalf("Unhandled panic : %v", r)
	}
}
