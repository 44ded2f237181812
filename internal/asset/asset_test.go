package asset

import (
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

func TestAsset(t *testing.T) {
	defer tests.Recover(t)

	t.Run("createRetrieve", createRetrieve)
	t.Run("update", update)
	t.Run("storageRoundTrip", storageRoundTrip)
}

func createRetrieve(t *testing.T) {
	ctx := test.Context
	test.ResetDB()
	Reset(ctx)

	now := state.CurrentTimestamp()
	nu := NewAsset{
		AssetID:       tests.RandomAssetID(),
		AssetType:     "INVOICE",
		Description:   "90 day receivable",
		OriginalValue: state.NewValue(100000),
		PledgedValue:  state.NewValue(70000),
		TokensIssued:  70000,
		Pledger:       tests.RandomAccount(),
	}

	if err := Create(ctx, test.MasterDB, &nu, 3, now); err != nil {
		t.Fatalf("\t%s\tFailed to create asset : %v", tests.Failed, err)
	}

	a, err := Retrieve(ctx, test.MasterDB, nu.AssetID)
	if err != nil {
		t.Fatalf("\t%s\tFailed to retrieve asset : %v", tests.Failed, err)
	}

	if a.AssetID != nu.AssetID {
		t.Fatalf("\t%s\tAsset ID incorrect : %s != %s", tests.Failed, a.AssetID, nu.AssetID)
	}
	if a.Index != 3 {
		t.Fatalf("\t%s\tAsset index incorrect : %d != %d", tests.Failed, a.Index, 3)
	}
	if !a.Active {
		t.Fatalf("\t%s\tNew asset not active", tests.Failed)
	}
	if !a.PledgedValue.Equal(nu.PledgedValue) {
		t.Fatalf("\t%s\tPledged value incorrect : %s != %s", tests.Failed,
			a.PledgedValue, nu.PledgedValue)
	}
	if a.TokensRedeemed != 0 {
		t.Fatalf("\t%s\tNew asset has redemptions : %d", tests.Failed, a.TokensRedeemed)
	}

	if _, err := Retrieve(ctx, test.MasterDB, tests.RandomAssetID()); err != ErrNotFound {
		t.Fatalf("\t%s\tRetrieve of unknown asset : %v", tests.Failed, err)
	}

	t.Logf("\t%s\tCreate and retrieve verified", tests.Success)
}

func update(t *testing.T) {
	ctx := test.Context
	test.ResetDB()
	Reset(ctx)

	now := state.CurrentTimestamp()
	nu := NewAsset{
		AssetID:      tests.RandomAssetID(),
		AssetType:    "REAL_ESTATE",
		PledgedValue: state.NewValue(50000),
		TokensIssued: 50000,
		Pledger:      tests.RandomAccount(),
	}
	if err := Create(ctx, test.MasterDB, &nu, 0, now); err != nil {
		t.Fatalf("\t%s\tFailed to create asset : %v", tests.Failed, err)
	}

	redeemed := uint64(20000)
	upd := UpdateAsset{TokensRedeemed: &redeemed}
	if err := Update(ctx, test.MasterDB, nu.AssetID, &upd, now); err != nil {
		t.Fatalf("\t%s\tFailed to update asset : %v", tests.Failed, err)
	}

	a, err := Retrieve(ctx, test.MasterDB, nu.AssetID)
	if err != nil {
		t.Fatalf("\t%s\tFailed to retrieve asset : %v", tests.Failed, err)
	}
	if a.TokensRedeemed != redeemed {
		t.Fatalf("\t%s\tRedeemed tokens incorrect : %d != %d", tests.Failed,
			a.TokensRedeemed, redeemed)
	}
	if !a.Active {
		t.Fatalf("\t%s\tPartial update changed active flag", tests.Failed)
	}

	inactive := false
	if err := Update(ctx, test.MasterDB, nu.AssetID, &UpdateAsset{Active: &inactive}, now); err != nil {
		t.Fatalf("\t%s\tFailed to deactivate asset : %v", tests.Failed, err)
	}
	a, _ = Retrieve(ctx, test.MasterDB, nu.AssetID)
	if a.Active {
		t.Fatalf("\t%s\tAsset still active after update", tests.Failed)
	}

	if err := Update(ctx, test.MasterDB, tests.RandomAssetID(), &upd, now); err != ErrNotFound {
		t.Fatalf("\t%s\tUpdate of unknown asset : %v", tests.Failed, err)
	}

	t.Logf("\t%s\tUpdate verified", tests.Success)
}

func storageRoundTrip(t *testing.T) {
	ctx := test.Context
	test.ResetDB()
	Reset(ctx)

	now := state.CurrentTimestamp()
	nu := NewAsset{
		AssetID:       tests.RandomAssetID(),
		AssetType:     "COMMODITY",
		Description:   "Warehouse receipt",
		OriginalValue: state.NewValue(250000),
		PledgedValue:  state.NewValue(175000),
		TokensIssued:  175000,
		Pledger:       tests.RandomAccount(),
	}
	if err := Create(ctx, test.MasterDB, &nu, 7, now); err != nil {
		t.Fatalf("\t%s\tFailed to create asset : %v", tests.Failed, err)
	}

	want, err := Fetch(ctx, test.MasterDB, nu.AssetID)
	if err != nil {
		t.Fatalf("\t%s\tFailed to fetch asset : %v", tests.Failed, err)
	}

	if err := WriteCache(ctx, test.MasterDB); err != nil {
		t.Fatalf("\t%s\tFailed to write cache : %v", tests.Failed, err)
	}
	Reset(ctx)

	got, err := Fetch(ctx, test.MasterDB, nu.AssetID)
	if err != nil {
		t.Fatalf("\t%s\tFailed to fetch asset from storage : %v", tests.Failed, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("\t%s\tStored asset mismatch (-want +got):\n%s", tests.Failed, diff)
	}

	t.Logf("\t%s\tStorage round trip verified", tests.Success)
}
