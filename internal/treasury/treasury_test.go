package treasury

import (
	"os"
	"testing"

	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/internal/platform/tests"
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

func TestTreasury(t *testing.T) {
	defer tests.Recover(t)

	t.Run("totals", totals)
	t.Run("withdraw", withdraw)
	t.Run("persistence", persistence)
}

func totals(t *testing.T) {
	ctx := test.Context
	test.ResetDB()
	Reset(ctx)

	now := state.CurrentTimestamp()

	tr, err := Retrieve(ctx, test.MasterDB, now)
	if err != nil {
		t.Fatalf("\t%s\tFailed to retrieve fresh treasury : %v", tests.Failed, err)
	}
	if tr.TotalClientPayments != 0 || tr.TotalInvestorPayments != 0 || tr.Revenue != 0 {
		t.Fatalf("\t%s\tFresh treasury not zero", tests.Failed)
	}

	RecordClientPayment(tr, 59500000000, now)
	RecordInvestorPayment(tr, 85000000000, now)
	AccrueRevenue(tr, 15000000000, now)

	if tr.TotalClientPayments != 59500000000 {
		t.Fatalf("\t%s\tClient payments incorrect : %d", tests.Failed, tr.TotalClientPayments)
	}
	if tr.TotalInvestorPayments != 85000000000 {
		t.Fatalf("\t%s\tInvestor payments incorrect : %d", tests.Failed, tr.TotalInvestorPayments)
	}
	if tr.Revenue != 15000000000 {
		t.Fatalf("\t%s\tRevenue incorrect : %d", tests.Failed, tr.Revenue)
	}

	t.Logf("\t%s\tTotals verified", tests.Success)
}

func withdraw(t *testing.T) {
	ctx := test.Context
	test.ResetDB()
	Reset(ctx)

	now := state.CurrentTimestamp()

	tr, err := Retrieve(ctx, test.MasterDB, now)
	if err != nil {
		t.Fatalf("\t%s\tFailed to retrieve treasury : %v", tests.Failed, err)
	}
	AccrueRevenue(tr, 1000, now)

	if err := WithdrawRevenue(tr, 1001, now); err != ErrInsufficientRevenue {
		t.Fatalf("\t%s\tOverdraw of revenue accepted : %v", tests.Failed, err)
	}
	if err := WithdrawRevenue(tr, 400, now); err != nil {
		t.Fatalf("\t%s\tFailed to withdraw revenue : %v", tests.Failed, err)
	}
	if tr.Revenue != 600 {
		t.Fatalf("\t%s\tRevenue after withdrawal incorrect : %d != %d", tests.Failed, tr.Revenue, 600)
	}

	t.Logf("\t%s\tWithdraw verified", tests.Success)
}

func persistence(t *testing.T) {
	ctx := test.Context
	test.ResetDB()
	Reset(ctx)

	now := state.CurrentTimestamp()

	tr, err := Retrieve(ctx, test.MasterDB, now)
	if err != nil {
		t.Fatalf("\t%s\tFailed to retrieve treasury : %v", tests.Failed, err)
	}
	RecordClientPayment(tr, 123456, now)
	AccrueRevenue(tr, 789, now)
	Save(ctx, tr)

	if err := WriteCache(ctx, test.MasterDB); err != nil {
		t.Fatalf("\t%s\tFailed to write cache : %v", tests.Failed, err)
	}
	Reset(ctx)

	read, err := Fetch(ctx, test.MasterDB)
	if err != nil {
		t.Fatalf("\t%s\tFailed to fetch treasury from storage : %v", tests.Failed, err)
	}
	if read.TotalClientPayments != 123456 || read.Revenue != 789 {
		t.Fatalf("\t%s\tStored totals incorrect : %d/%d", tests.Failed,
			read.TotalClientPayments, read.Revenue)
	}

	t.Logf("\t%s\tPersistence verified", tests.Success)
}
