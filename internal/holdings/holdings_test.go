package holdings

import (
	"math"
	"os"
	"testing"

	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/internal/platform/tests"

	"github.com/google/go-cmp/cmp"
)

var test *tests.Test

// TestMain is the entry point for testing.
func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	test = tests.New()
	if test == nil {
		return 1
	}
	defer test.TearDown()

	return m.Run()
}

func TestHoldings(t *testing.T) {
	defer tests.Recover(t)

	t.Run("depositDebit", depositDebit)
	t.Run("allowances", allowances)
	t.Run("cacheIsolation", cacheIsolation)
	t.Run("writeCache", writeCache)
	t.Run("cacheChannel", cacheChannel)
}

func depositDebit(t *testing.T) {
	ctx := test.Context
	test.ResetDB()
	Reset(ctx)

	now := state.CurrentTimestamp()
	address := tests.RandomAccount()

	h, err := GetHolding(ctx, test.MasterDB, address, now)
	if err != nil {
		t.Fatalf("\t%s\tFailed to get fresh holding : %v", tests.Failed, err)
	}
	if h.Balance != 0 {
		t.Fatalf("\t%s\tFresh holding balance not zero : %d", tests.Failed, h.Balance)
	}

	if err := AddDeposit(h, 700, now); err != nil {
		t.Fatalf("\t%s\tFailed to deposit : %v", tests.Failed, err)
	}
	if err := AddDebit(h, 200, now); err != nil {
		t.Fatalf("\t%s\tFailed to debit : %v", tests.Failed, err)
	}
	if h.Balance != 500 {
		t.Fatalf("\t%s\tBalance incorrect : %d != %d", tests.Failed, h.Balance, 500)
	}

	if err := AddDebit(h, 501, now); err != ErrInsufficientHoldings {
		t.Fatalf("\t%s\tOverdraw debit accepted : %v", tests.Failed, err)
	}
	if h.Balance != 500 {
		t.Fatalf("\t%s\tFailed debit changed balance : %d", tests.Failed, h.Balance)
	}

	if err := AddDeposit(h, math.MaxUint64, now); err != ErrBalanceOverflow {
		t.Fatalf("\t%s\tOverflow deposit accepted : %v", tests.Failed, err)
	}

	t.Logf("\t%s\tDeposit and debit verified", tests.Success)
}

func allowances(t *testing.T) {
	ctx := test.Context
	test.ResetDB()
	Reset(ctx)

	now := state.CurrentTimestamp()
	h := &state.Holding{Address: tests.RandomAccount(), Balance: 1000, CreatedAt: now, UpdatedAt: now}
	spender := tests.RandomAccount()

	if amount := Allowance(h, spender); amount != 0 {
		t.Fatalf("\t%s\tFresh allowance not zero : %d", tests.Failed, amount)
	}

	SetAllowance(h, spender, 300, now)
	if amount := Allowance(h, spender); amount != 300 {
		t.Fatalf("\t%s\tAllowance incorrect : %d != %d", tests.Failed, amount, 300)
	}

	if err := SpendAllowance(h, spender, 100, now); err != nil {
		t.Fatalf("\t%s\tFailed to spend allowance : %v", tests.Failed, err)
	}
	if amount := Allowance(h, spender); amount != 200 {
		t.Fatalf("\t%s\tAllowance after spend incorrect : %d != %d", tests.Failed, amount, 200)
	}

	if err := SpendAllowance(h, spender, 201, now); err != ErrInsufficientAllowance {
		t.Fatalf("\t%s\tOverspend of allowance accepted : %v", tests.Failed, err)
	}

	SetAllowance(h, spender, 0, now)
	if len(h.Allowances) != 0 {
		t.Fatalf("\t%s\tZero allowance not removed : %d entries", tests.Failed, len(h.Allowances))
	}

	t.Logf("\t%s\tAllowances verified", tests.Success)
}

func cacheIsolation(t *testing.T) {
	ctx := test.Context
	test.ResetDB()
	Reset(ctx)

	now := state.CurrentTimestamp()
	address := tests.RandomAccount()
	spender := tests.RandomAccount()

	h := &state.Holding{Address: address, Balance: 500, CreatedAt: now, UpdatedAt: now}
	SetAllowance(h, spender, 50, now)
	Save(ctx, h)

	fetched, err := Fetch(ctx, test.MasterDB, address)
	if err != nil {
		t.Fatalf("\t%s\tFailed to fetch holding : %v", tests.Failed, err)
	}

	// Mutating the fetched copy must not touch the cached version.
	fetched.Balance = 1
	SetAllowance(fetched, spender, 9999, now)

	again, err := Fetch(ctx, test.MasterDB, address)
	if err != nil {
		t.Fatalf("\t%s\tFailed to fetch holding again : %v", tests.Failed, err)
	}
	if again.Balance != 500 {
		t.Fatalf("\t%s\tCache modified through fetched copy : %d", tests.Failed, again.Balance)
	}
	if amount := Allowance(again, spender); amount != 50 {
		t.Fatalf("\t%s\tCached allowance modified through fetched copy : %d", tests.Failed, amount)
	}

	// Saving publishes the change.
	Save(ctx, fetched)
	after, err := Fetch(ctx, test.MasterDB, address)
	if err != nil {
		t.Fatalf("\t%s\tFailed to fetch saved holding : %v", tests.Failed, err)
	}
	if after.Balance != 1 {
		t.Fatalf("\t%s\tSaved balance not visible : %d", tests.Failed, after.Balance)
	}

	t.Logf("\t%s\tCache isolation verified", tests.Success)
}

func writeCache(t *testing.T) {
	ctx := test.Context
	test.ResetDB()
	Reset(ctx)

	now := state.CurrentTimestamp()
	address := tests.RandomAccount()
	spender := tests.RandomAccount()

	h := &state.Holding{Address: address, Balance: 42, CreatedAt: now, UpdatedAt: now}
	SetAllowance(h, spender, 7, now)
	Save(ctx, h)

	if err := WriteCache(ctx, test.MasterDB); err != nil {
		t.Fatalf("\t%s\tFailed to write cache : %v", tests.Failed, err)
	}

	// Force the next fetch to read from storage.
	Reset(ctx)

	read, err := Fetch(ctx, test.MasterDB, address)
	if err != nil {
		t.Fatalf("\t%s\tFailed to fetch holding from storage : %v", tests.Failed, err)
	}
	if diff := cmp.Diff(h, read); diff != "" {
		t.Fatalf("\t%s\tStored holding mismatch (-want +got):\n%s", tests.Failed, diff)
	}

	if err := WriteCacheUpdate(ctx, test.MasterDB, tests.RandomAccount()); err != ErrNotInCache {
		t.Fatalf("\t%s\tWrite of uncached holding accepted : %v", tests.Failed, err)
	}

	t.Logf("\t%s\tWrite cache verified", tests.Success)
}

func cacheChannel(t *testing.T) {
	ctx := test.Context
	test.ResetDB()
	Reset(ctx)

	now := state.CurrentTimestamp()
	address := tests.RandomAccount()

	ch := &CacheChannel{}
	ch.Open(10)

	h := &state.Holding{Address: address, Balance: 77, CreatedAt: now, UpdatedAt: now}
	ci := Save(ctx, h)
	if err := ch.Add(ci); err != nil {
		t.Fatalf("\t%s\tFailed to add cache item : %v", tests.Failed, err)
	}

	if err := ch.Close(); err != nil {
		t.Fatalf("\t%s\tFailed to close channel : %v", tests.Failed, err)
	}
	if err := ProcessCacheItems(ctx, test.MasterDB, ch); err != nil {
		t.Fatalf("\t%s\tFailed to process cache items : %v", tests.Failed, err)
	}

	if err := ch.Add(Save(ctx, h)); err == nil {
		t.Fatalf("\t%s\tAdd to closed channel accepted", tests.Failed)
	}

	Reset(ctx)
	read, err := Fetch(ctx, test.MasterDB, address)
	if err != nil {
		t.Fatalf("\t%s\tFailed to fetch holding from storage : %v", tests.Failed, err)
	}
	if read.Balance != 77 {
		t.Fatalf("\t%s\tStored balance incorrect : %d != %d", tests.Failed, read.Balance, 77)
	}

	t.Logf("\t%s\tCache channel verified", tests.Success)
}
