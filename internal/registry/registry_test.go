package registry

import (
	"context"
	"os"
	"testing"

	"github.com/rwaledger/pledge-core/internal/agreement"
	"github.com/rwaledger/pledge-core/internal/asset"
	"github.com/rwaledger/pledge-core/internal/assetledger"
	"github.com/rwaledger/pledge-core/internal/holdings"
	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/internal/platform/tests"
	"github.com/rwaledger/pledge-core/internal/stable"
	"github.com/rwaledger/pledge-core/internal/treasury"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

var testHarness *tests.Test

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	testHarness = tests.New()
	if testHarness == nil {
		return 1
	}
	defer testHarness.TearDown()

	return m.Run()
}

// fixture wires a registry over a fresh ledger and stable asset. The ledger
// runs a 70 percent discount rate, the registry a 15 percent spread.
type fixture struct {
	r      *Registry
	tokens *assetledger.Ledger
	cash   *stable.Ledger

	own      account.ID
	admin    account.ID
	operator account.ID
	finance  account.ID
}

func resetRegistry(t testing.TB) *fixture {
	ctx := testHarness.Context

	Reset(ctx)
	assetledger.Reset(ctx)
	asset.Reset(ctx)
	holdings.Reset(ctx)
	agreement.Reset(ctx)
	treasury.Reset(ctx)
	stable.Reset(ctx)
	if err := testHarness.ResetDB(); err != nil {
		t.Fatalf("\t%s\tFailed to reset DB : %v", tests.Failed, err)
	}

	f := &fixture{
		own:      tests.RandomAccount(),
		admin:    tests.RandomAccount(),
		operator: tests.RandomAccount(),
		finance:  tests.RandomAccount(),
	}

	v := node.ContextValues(ctx)
	if err := assetledger.Ensure(ctx, testHarness.MasterDB, f.admin, f.own, 70, v.Now); err != nil {
		t.Fatalf("\t%s\tFailed to initialize ledger : %v", tests.Failed, err)
	}
	if err := Ensure(ctx, testHarness.MasterDB, f.own, f.admin, f.operator, f.finance, 15,
		v.Now); err != nil {
		t.Fatalf("\t%s\tFailed to initialize registry : %v", tests.Failed, err)
	}

	f.tokens = &assetledger.Ledger{MasterDB: testHarness.MasterDB}
	f.cash = stable.NewLedger(testHarness.MasterDB)
	f.r = &Registry{
		MasterDB: testHarness.MasterDB,
		Ledger:   f.tokens,
		Stable:   f.cash,
	}

	return f
}

func newAgreement(agreementID, assetID string, whole uint64, client account.ID) *agreement.NewAgreement {
	return &agreement.NewAgreement{
		AgreementID:   agreementID,
		Client:        client,
		AssetID:       assetID,
		AssetType:     "INVOICE",
		Description:   "Trade receivable",
		OriginalValue: state.NewValue(whole),
		DocumentHash:  "6bd1a4e0aee4d9d0b0e06b06d70a0a650e0cd1d902354f66e72b5a4a64cff0bb",
	}
}

func TestRegistry(t *testing.T) {
	defer tests.Recover(t)

	t.Run("createPledge", createPledge)
	t.Run("payClient", payClient)
	t.Run("purchaseTokens", purchaseTokens)
	t.Run("repayPledge", repayPledge)
	t.Run("spreadRate", spreadRate)
	t.Run("withdrawRevenue", withdrawRevenue)
	t.Run("pauseGate", pauseGate)
	t.Run("roles", roles)
	t.Run("persistence", persistence)
}

// createPledge checks the discount and payment math, the mint to the registry
// pool, and that a failed registration leaves no trace of the agreement.
func createPledge(t *testing.T) {
	ctx := testHarness.Context
	f := resetRegistry(t)

	client := tests.RandomAccount()
	agreementID := tests.RandomAgreementID()
	assetID := tests.RandomAssetID()

	if err := f.r.CreatePledge(ctx, f.operator,
		newAgreement(agreementID, assetID, 100000, client)); err != nil {
		t.Fatalf("\t%s\tFailed to create pledge : %v", tests.Failed, err)
	}

	ag, err := f.r.Agreement(ctx, agreementID)
	if err != nil {
		t.Fatalf("\t%s\tFailed to fetch agreement : %v", tests.Failed, err)
	}
	if ag.Status != state.StatusActive {
		t.Fatalf("\t%s\tWrong status : got %s, want %s", tests.Failed, ag.Status, state.StatusActive)
	}
	if !ag.DiscountedValue.Equal(state.NewValue(70000)) {
		t.Fatalf("\t%s\tWrong discounted value : %s", tests.Failed, ag.DiscountedValue)
	}
	if ag.TokensIssued != 70000 {
		t.Fatalf("\t%s\tWrong tokens issued : got %d, want %d", tests.Failed, ag.TokensIssued, 70000)
	}
	// 70000 discounted less the 15 percent spread, in 6 decimal stable units.
	if ag.ClientPayment != 59500000000 {
		t.Fatalf("\t%s\tWrong client payment : got %d, want %d", tests.Failed,
			ag.ClientPayment, 59500000000)
	}

	// The mint lands in the registry's own pool, not with the client.
	pool, err := f.tokens.BalanceOf(ctx, f.own)
	if err != nil {
		t.Fatalf("\t%s\tFailed to read pool : %v", tests.Failed, err)
	}
	if pool != 70000 {
		t.Fatalf("\t%s\tWrong pool balance : got %d, want %d", tests.Failed, pool, 70000)
	}
	clientTokens, _ := f.tokens.BalanceOf(ctx, client)
	if clientTokens != 0 {
		t.Fatalf("\t%s\tClient received tokens : %d", tests.Failed, clientTokens)
	}

	reg, err := Retrieve(ctx, testHarness.MasterDB)
	if err != nil {
		t.Fatalf("\t%s\tFailed to retrieve registry : %v", tests.Failed, err)
	}
	if reg.AgreementCount != 1 {
		t.Fatalf("\t%s\tWrong agreement count : %d", tests.Failed, reg.AgreementCount)
	}

	byClient, err := f.r.AgreementsByClient(ctx, client)
	if err != nil {
		t.Fatalf("\t%s\tFailed to read client index : %v", tests.Failed, err)
	}
	if len(byClient) != 1 || byClient[0] != agreementID {
		t.Fatalf("\t%s\tWrong client index : %v", tests.Failed, byClient)
	}

	// Only the operator opens pledges.
	if err := f.r.CreatePledge(ctx, f.admin, newAgreement(tests.RandomAgreementID(),
		tests.RandomAssetID(), 50000, client)); errors.Cause(err) != ErrUnauthorized {
		t.Fatalf("\t%s\tWrong error for unauthorized caller : %v", tests.Failed, err)
	}

	// Zero and empty arguments are rejected.
	if err := f.r.CreatePledge(ctx, f.operator, newAgreement("", tests.RandomAssetID(), 50000,
		client)); errors.Cause(err) != ErrInvalidInput {
		t.Fatalf("\t%s\tWrong error for empty agreement id : %v", tests.Failed, err)
	}
	if err := f.r.CreatePledge(ctx, f.operator, newAgreement(tests.RandomAgreementID(), "", 50000,
		client)); errors.Cause(err) != ErrInvalidInput {
		t.Fatalf("\t%s\tWrong error for empty asset id : %v", tests.Failed, err)
	}
	if err := f.r.CreatePledge(ctx, f.operator, newAgreement(tests.RandomAgreementID(),
		tests.RandomAssetID(), 0, client)); errors.Cause(err) != ErrInvalidInput {
		t.Fatalf("\t%s\tWrong error for zero value : %v", tests.Failed, err)
	}
	if err := f.r.CreatePledge(ctx, f.operator, newAgreement(tests.RandomAgreementID(),
		tests.RandomAssetID(), 50000, account.ID{})); errors.Cause(err) != ErrInvalidInput {
		t.Fatalf("\t%s\tWrong error for zero client : %v", tests.Failed, err)
	}

	// A repeated agreement id is rejected before anything moves.
	if err := f.r.CreatePledge(ctx, f.operator, newAgreement(agreementID, tests.RandomAssetID(),
		50000, client)); errors.Cause(err) != ErrPledgeExists {
		t.Fatalf("\t%s\tWrong error for duplicate agreement : %v", tests.Failed, err)
	}

	// A repeated asset id fails on the ledger and must leave no half built
	// agreement behind.
	second := tests.RandomAgreementID()
	if err := f.r.CreatePledge(ctx, f.operator, newAgreement(second, assetID, 50000,
		client)); errors.Cause(err) != assetledger.ErrAssetExists {
		t.Fatalf("\t%s\tWrong error for duplicate asset : %v", tests.Failed, err)
	}
	if _, err := f.r.Agreement(ctx, second); errors.Cause(err) != agreement.ErrNotFound {
		t.Fatalf("\t%s\tRejected pledge left an agreement : %v", tests.Failed, err)
	}
	reg, _ = Retrieve(ctx, testHarness.MasterDB)
	if reg.AgreementCount != 1 {
		t.Fatalf("\t%s\tRejected pledge changed the count : %d", tests.Failed, reg.AgreementCount)
	}
	byClient, _ = f.r.AgreementsByClient(ctx, client)
	if len(byClient) != 1 {
		t.Fatalf("\t%s\tRejected pledge extended the index : %v", tests.Failed, byClient)
	}

	t.Logf("\t%s\tPledge creation mints the pool and fixes the client payment", tests.Success)
}

// payClient checks the fixed payout, the liquidity gate and the treasury
// accumulator.
func payClient(t *testing.T) {
	ctx := testHarness.Context
	f := resetRegistry(t)

	client := tests.RandomAccount()
	agreementID := tests.RandomAgreementID()
	if err := f.r.CreatePledge(ctx, f.operator,
		newAgreement(agreementID, tests.RandomAssetID(), 100000, client)); err != nil {
		t.Fatalf("\t%s\tFailed to create pledge : %v", tests.Failed, err)
	}

	// Only finance pays.
	if err := f.r.PayClient(ctx, f.operator, agreementID); errors.Cause(err) != ErrUnauthorized {
		t.Fatalf("\t%s\tWrong error for unauthorized caller : %v", tests.Failed, err)
	}
	if err := f.r.PayClient(ctx, f.finance,
		tests.RandomAgreementID()); errors.Cause(err) != agreement.ErrNotFound {
		t.Fatalf("\t%s\tWrong error for unknown agreement : %v", tests.Failed, err)
	}

	// An unfunded registry cannot pay, and a short balance stays put.
	if err := f.r.PayClient(ctx, f.finance,
		agreementID); errors.Cause(err) != ErrInsufficientLiquidity {
		t.Fatalf("\t%s\tWrong error for unfunded registry : %v", tests.Failed, err)
	}
	if err := f.cash.Issue(ctx, f.own, 50000000000); err != nil {
		t.Fatalf("\t%s\tFailed to fund registry : %v", tests.Failed, err)
	}
	if err := f.r.PayClient(ctx, f.finance,
		agreementID); errors.Cause(err) != ErrInsufficientLiquidity {
		t.Fatalf("\t%s\tWrong error for short liquidity : %v", tests.Failed, err)
	}
	balance, _ := f.cash.BalanceOf(ctx, f.own)
	if balance != 50000000000 {
		t.Fatalf("\t%s\tRejected payout moved funds : %d", tests.Failed, balance)
	}

	if err := f.cash.Issue(ctx, f.own, 9500000000); err != nil {
		t.Fatalf("\t%s\tFailed to fund registry : %v", tests.Failed, err)
	}
	if err := f.r.PayClient(ctx, f.finance, agreementID); err != nil {
		t.Fatalf("\t%s\tFailed to pay client : %v", tests.Failed, err)
	}

	clientBalance, _ := f.cash.BalanceOf(ctx, client)
	ownBalance, _ := f.cash.BalanceOf(ctx, f.own)
	if clientBalance != 59500000000 || ownBalance != 0 {
		t.Fatalf("\t%s\tWrong balances after payout : client %d, registry %d", tests.Failed,
			clientBalance, ownBalance)
	}

	summary, err := f.r.FinancialSummary(ctx)
	if err != nil {
		t.Fatalf("\t%s\tFailed to read summary : %v", tests.Failed, err)
	}
	if summary.TotalClientPayments != 59500000000 {
		t.Fatalf("\t%s\tWrong client payment total : %d", tests.Failed, summary.TotalClientPayments)
	}

	// Payout is a side effect. The agreement stays active.
	ag, _ := f.r.Agreement(ctx, agreementID)
	if ag.Status != state.StatusActive {
		t.Fatalf("\t%s\tPayout changed the status : %s", tests.Failed, ag.Status)
	}

	t.Logf("\t%s\tClient payout respects liquidity and accumulates", tests.Success)
}

// purchaseTokens checks the allowance funded sale, the revenue cut and that a
// failed pull moves nothing.
func purchaseTokens(t *testing.T) {
	ctx := testHarness.Context
	f := resetRegistry(t)

	client := tests.RandomAccount()
	agreementID := tests.RandomAgreementID()
	if err := f.r.CreatePledge(ctx, f.operator,
		newAgreement(agreementID, tests.RandomAssetID(), 100000, client)); err != nil {
		t.Fatalf("\t%s\tFailed to create pledge : %v", tests.Failed, err)
	}

	investor := tests.RandomAccount()
	if err := f.cash.Issue(ctx, investor, 2000000000); err != nil {
		t.Fatalf("\t%s\tFailed to fund investor : %v", tests.Failed, err)
	}
	if err := f.cash.Approve(ctx, investor, f.own, 1500000000); err != nil {
		t.Fatalf("\t%s\tFailed to approve registry : %v", tests.Failed, err)
	}

	purchaseID := tests.RandomPurchaseID()
	if err := f.r.PurchaseTokens(ctx, investor, agreementID, 1000, purchaseID); err != nil {
		t.Fatalf("\t%s\tFailed to purchase tokens : %v", tests.Failed, err)
	}

	investorTokens, _ := f.tokens.BalanceOf(ctx, investor)
	pool, _ := f.tokens.BalanceOf(ctx, f.own)
	if investorTokens != 1000 || pool != 69000 {
		t.Fatalf("\t%s\tWrong token balances : investor %d, pool %d", tests.Failed,
			investorTokens, pool)
	}

	investorCash, _ := f.cash.BalanceOf(ctx, investor)
	ownCash, _ := f.cash.BalanceOf(ctx, f.own)
	if investorCash != 1000000000 || ownCash != 1000000000 {
		t.Fatalf("\t%s\tWrong stable balances : investor %d, registry %d", tests.Failed,
			investorCash, ownCash)
	}
	remaining, _ := f.cash.Allowance(ctx, investor, f.own)
	if remaining != 500000000 {
		t.Fatalf("\t%s\tWrong allowance left : %d", tests.Failed, remaining)
	}

	// 15 percent of the payment accrues as revenue.
	summary, _ := f.r.FinancialSummary(ctx)
	if summary.TotalInvestorPayments != 1000000000 || summary.Revenue != 150000000 {
		t.Fatalf("\t%s\tWrong treasury totals : payments %d, revenue %d", tests.Failed,
			summary.TotalInvestorPayments, summary.Revenue)
	}

	purchases, err := f.r.Purchases(ctx, agreementID)
	if err != nil {
		t.Fatalf("\t%s\tFailed to read purchases : %v", tests.Failed, err)
	}
	if len(purchases) != 1 || purchases[0].PurchaseID != purchaseID ||
		purchases[0].Investor != investor || purchases[0].TokenAmount != 1000 ||
		purchases[0].StablePaid != 1000000000 {
		t.Fatalf("\t%s\tWrong purchase record : %+v", tests.Failed, purchases)
	}

	byInvestor, _ := f.r.AgreementsByInvestor(ctx, investor)
	if len(byInvestor) != 1 || byInvestor[0] != agreementID {
		t.Fatalf("\t%s\tWrong investor index : %v", tests.Failed, byInvestor)
	}

	// One purchase per external id.
	if err := f.r.PurchaseTokens(ctx, investor, agreementID, 100,
		purchaseID); errors.Cause(err) != ErrPurchaseExists {
		t.Fatalf("\t%s\tWrong error for duplicate purchase : %v", tests.Failed, err)
	}

	if err := f.r.PurchaseTokens(ctx, investor, agreementID, 0,
		tests.RandomPurchaseID()); errors.Cause(err) != ErrInvalidInput {
		t.Fatalf("\t%s\tWrong error for zero amount : %v", tests.Failed, err)
	}
	if err := f.r.PurchaseTokens(ctx, investor, agreementID, 100,
		""); errors.Cause(err) != ErrInvalidInput {
		t.Fatalf("\t%s\tWrong error for empty purchase id : %v", tests.Failed, err)
	}
	if err := f.r.PurchaseTokens(ctx, investor, tests.RandomAgreementID(), 100,
		tests.RandomPurchaseID()); errors.Cause(err) != agreement.ErrNotFound {
		t.Fatalf("\t%s\tWrong error for unknown agreement : %v", tests.Failed, err)
	}

	// The pool bounds the sale.
	if err := f.r.PurchaseTokens(ctx, investor, agreementID, 100000,
		tests.RandomPurchaseID()); errors.Cause(err) != ErrInsufficientTokens {
		t.Fatalf("\t%s\tWrong error for oversold purchase : %v", tests.Failed, err)
	}

	// A pull without allowance fails with nothing moved on either leg.
	other := tests.RandomAccount()
	if err := f.cash.Issue(ctx, other, 5000000000); err != nil {
		t.Fatalf("\t%s\tFailed to fund investor : %v", tests.Failed, err)
	}
	if err := f.r.PurchaseTokens(ctx, other, agreementID, 100,
		tests.RandomPurchaseID()); errors.Cause(err) != ErrTransferFailed {
		t.Fatalf("\t%s\tWrong error for unapproved pull : %v", tests.Failed, err)
	}
	otherTokens, _ := f.tokens.BalanceOf(ctx, other)
	otherCash, _ := f.cash.BalanceOf(ctx, other)
	pool, _ = f.tokens.BalanceOf(ctx, f.own)
	if otherTokens != 0 || otherCash != 5000000000 || pool != 69000 {
		t.Fatalf("\t%s\tFailed pull moved funds : tokens %d, cash %d, pool %d", tests.Failed,
			otherTokens, otherCash, pool)
	}

	t.Logf("\t%s\tPurchases settle both legs and cut the spread as revenue", tests.Success)
}

// repayPledge checks settlement, the all or nothing redemption of the pool
// and the terminal status.
func repayPledge(t *testing.T) {
	ctx := testHarness.Context
	f := resetRegistry(t)

	client := tests.RandomAccount()
	agreementID := tests.RandomAgreementID()
	assetID := tests.RandomAssetID()
	if err := f.r.CreatePledge(ctx, f.operator,
		newAgreement(agreementID, assetID, 100000, client)); err != nil {
		t.Fatalf("\t%s\tFailed to create pledge : %v", tests.Failed, err)
	}

	if err := f.cash.Issue(ctx, client, 70000000000); err != nil {
		t.Fatalf("\t%s\tFailed to fund client : %v", tests.Failed, err)
	}
	if err := f.cash.Approve(ctx, client, f.own, 70000000000); err != nil {
		t.Fatalf("\t%s\tFailed to approve registry : %v", tests.Failed, err)
	}

	// Only finance settles.
	if err := f.r.RepayPledge(ctx, f.operator, agreementID,
		70000000000); errors.Cause(err) != ErrUnauthorized {
		t.Fatalf("\t%s\tWrong error for unauthorized caller : %v", tests.Failed, err)
	}

	if err := f.r.RepayPledge(ctx, f.finance, agreementID, 70000000000); err != nil {
		t.Fatalf("\t%s\tFailed to repay pledge : %v", tests.Failed, err)
	}

	ag, _ := f.r.Agreement(ctx, agreementID)
	if ag.Status != state.StatusRepaid {
		t.Fatalf("\t%s\tWrong status after repayment : %s", tests.Failed, ag.Status)
	}

	a, err := asset.Retrieve(ctx, testHarness.MasterDB, assetID)
	if err != nil {
		t.Fatalf("\t%s\tFailed to retrieve asset : %v", tests.Failed, err)
	}
	if a.Active || a.TokensRedeemed != 70000 {
		t.Fatalf("\t%s\tAsset not released : active %t, redeemed %d", tests.Failed,
			a.Active, a.TokensRedeemed)
	}

	pool, _ := f.tokens.BalanceOf(ctx, f.own)
	supply, _ := f.tokens.TotalSupply(ctx)
	if pool != 0 || supply != 0 {
		t.Fatalf("\t%s\tTokens survived redemption : pool %d, supply %d", tests.Failed, pool, supply)
	}

	clientCash, _ := f.cash.BalanceOf(ctx, client)
	ownCash, _ := f.cash.BalanceOf(ctx, f.own)
	if clientCash != 0 || ownCash != 70000000000 {
		t.Fatalf("\t%s\tWrong stable balances : client %d, registry %d", tests.Failed,
			clientCash, ownCash)
	}

	// Repaid is terminal.
	if err := f.r.RepayPledge(ctx, f.finance, agreementID,
		1000000); errors.Cause(err) != ErrNotActive {
		t.Fatalf("\t%s\tWrong error for second repayment : %v", tests.Failed, err)
	}
	if err := f.r.PayClient(ctx, f.finance, agreementID); errors.Cause(err) != ErrNotActive {
		t.Fatalf("\t%s\tWrong error for payout after repayment : %v", tests.Failed, err)
	}
	if err := f.r.PurchaseTokens(ctx, tests.RandomAccount(), agreementID, 10,
		tests.RandomPurchaseID()); errors.Cause(err) != ErrNotActive {
		t.Fatalf("\t%s\tWrong error for purchase after repayment : %v", tests.Failed, err)
	}

	// Sold tokens are not recalled, so a drained pool blocks settlement
	// before the client's money moves.
	second := tests.RandomAgreementID()
	if err := f.r.CreatePledge(ctx, f.operator,
		newAgreement(second, tests.RandomAssetID(), 10000, client)); err != nil {
		t.Fatalf("\t%s\tFailed to create pledge : %v", tests.Failed, err)
	}
	investor := tests.RandomAccount()
	if err := f.cash.Issue(ctx, investor, 1000000000); err != nil {
		t.Fatalf("\t%s\tFailed to fund investor : %v", tests.Failed, err)
	}
	if err := f.cash.Approve(ctx, investor, f.own, 1000000000); err != nil {
		t.Fatalf("\t%s\tFailed to approve registry : %v", tests.Failed, err)
	}
	if err := f.r.PurchaseTokens(ctx, investor, second, 1000, tests.RandomPurchaseID()); err != nil {
		t.Fatalf("\t%s\tFailed to purchase tokens : %v", tests.Failed, err)
	}

	if err := f.cash.Approve(ctx, client, f.own, 7000000000); err != nil {
		t.Fatalf("\t%s\tFailed to approve registry : %v", tests.Failed, err)
	}
	before, _ := f.cash.BalanceOf(ctx, client)
	if err := f.r.RepayPledge(ctx, f.finance, second,
		7000000000); errors.Cause(err) != ErrInsufficientTokens {
		t.Fatalf("\t%s\tWrong error for drained pool : %v", tests.Failed, err)
	}
	after, _ := f.cash.BalanceOf(ctx, client)
	if before != after {
		t.Fatalf("\t%s\tRejected repayment pulled funds : %d then %d", tests.Failed, before, after)
	}
	ag, _ = f.r.Agreement(ctx, second)
	if ag.Status != state.StatusActive {
		t.Fatalf("\t%s\tRejected repayment changed the status : %s", tests.Failed, ag.Status)
	}

	t.Logf("\t%s\tRepayment settles, releases the asset and ends the agreement", tests.Success)
}

// spreadRate checks the bounds, that existing payments are fixed and that the
// revenue cut follows the rate in effect at purchase time.
func spreadRate(t *testing.T) {
	ctx := testHarness.Context
	f := resetRegistry(t)

	client := tests.RandomAccount()
	first := tests.RandomAgreementID()
	if err := f.r.CreatePledge(ctx, f.operator,
		newAgreement(first, tests.RandomAssetID(), 100000, client)); err != nil {
		t.Fatalf("\t%s\tFailed to create pledge : %v", tests.Failed, err)
	}

	if err := f.r.SetSpreadRate(ctx, f.operator, 30); errors.Cause(err) != ErrUnauthorized {
		t.Fatalf("\t%s\tWrong error for non admin rate change : %v", tests.Failed, err)
	}
	if err := f.r.SetSpreadRate(ctx, f.admin, 51); errors.Cause(err) != ErrInvalidRate {
		t.Fatalf("\t%s\tWrong error for oversized rate : %v", tests.Failed, err)
	}
	if err := f.r.SetSpreadRate(ctx, f.admin, 30); err != nil {
		t.Fatalf("\t%s\tFailed to set rate : %v", tests.Failed, err)
	}
	reg, _ := Retrieve(ctx, testHarness.MasterDB)
	if reg.SpreadRate != 30 {
		t.Fatalf("\t%s\tWrong rate : %d", tests.Failed, reg.SpreadRate)
	}

	// New pledges price at the new rate, old payments stay fixed.
	second := tests.RandomAgreementID()
	if err := f.r.CreatePledge(ctx, f.operator,
		newAgreement(second, tests.RandomAssetID(), 100000, client)); err != nil {
		t.Fatalf("\t%s\tFailed to create pledge : %v", tests.Failed, err)
	}
	ag, _ := f.r.Agreement(ctx, second)
	if ag.ClientPayment != 49000000000 {
		t.Fatalf("\t%s\tWrong payment at new rate : %d", tests.Failed, ag.ClientPayment)
	}
	ag, _ = f.r.Agreement(ctx, first)
	if ag.ClientPayment != 59500000000 {
		t.Fatalf("\t%s\tRate change rewrote a fixed payment : %d", tests.Failed, ag.ClientPayment)
	}

	// The revenue cut uses the live rate, not the one at creation.
	investor := tests.RandomAccount()
	if err := f.cash.Issue(ctx, investor, 1000000000); err != nil {
		t.Fatalf("\t%s\tFailed to fund investor : %v", tests.Failed, err)
	}
	if err := f.cash.Approve(ctx, investor, f.own, 1000000000); err != nil {
		t.Fatalf("\t%s\tFailed to approve registry : %v", tests.Failed, err)
	}
	if err := f.r.PurchaseTokens(ctx, investor, first, 1000, tests.RandomPurchaseID()); err != nil {
		t.Fatalf("\t%s\tFailed to purchase tokens : %v", tests.Failed, err)
	}
	summary, _ := f.r.FinancialSummary(ctx)
	if summary.Revenue != 300000000 {
		t.Fatalf("\t%s\tWrong revenue at new rate : %d", tests.Failed, summary.Revenue)
	}

	t.Logf("\t%s\tSpread changes reprice future pledges and purchases only", tests.Success)
}

// withdrawRevenue checks that only accrued revenue leaves the registry.
func withdrawRevenue(t *testing.T) {
	ctx := testHarness.Context
	f := resetRegistry(t)

	client := tests.RandomAccount()
	agreementID := tests.RandomAgreementID()
	if err := f.r.CreatePledge(ctx, f.operator,
		newAgreement(agreementID, tests.RandomAssetID(), 100000, client)); err != nil {
		t.Fatalf("\t%s\tFailed to create pledge : %v", tests.Failed, err)
	}

	investor := tests.RandomAccount()
	if err := f.cash.Issue(ctx, investor, 1000000000); err != nil {
		t.Fatalf("\t%s\tFailed to fund investor : %v", tests.Failed, err)
	}
	if err := f.cash.Approve(ctx, investor, f.own, 1000000000); err != nil {
		t.Fatalf("\t%s\tFailed to approve registry : %v", tests.Failed, err)
	}
	if err := f.r.PurchaseTokens(ctx, investor, agreementID, 1000,
		tests.RandomPurchaseID()); err != nil {
		t.Fatalf("\t%s\tFailed to purchase tokens : %v", tests.Failed, err)
	}

	sink := tests.RandomAccount()

	if err := f.r.WithdrawRevenue(ctx, f.operator, sink,
		100000000); errors.Cause(err) != ErrUnauthorized {
		t.Fatalf("\t%s\tWrong error for unauthorized caller : %v", tests.Failed, err)
	}
	if err := f.r.WithdrawRevenue(ctx, f.finance, account.ID{},
		100000000); errors.Cause(err) != ErrInvalidInput {
		t.Fatalf("\t%s\tWrong error for zero destination : %v", tests.Failed, err)
	}

	// Principal is not withdrawable; the cap is accrued revenue.
	if err := f.r.WithdrawRevenue(ctx, f.finance, sink,
		200000000); errors.Cause(err) != treasury.ErrInsufficientRevenue {
		t.Fatalf("\t%s\tWrong error for overdraw : %v", tests.Failed, err)
	}

	if err := f.r.WithdrawRevenue(ctx, f.finance, sink, 100000000); err != nil {
		t.Fatalf("\t%s\tFailed to withdraw revenue : %v", tests.Failed, err)
	}
	sinkCash, _ := f.cash.BalanceOf(ctx, sink)
	ownCash, _ := f.cash.BalanceOf(ctx, f.own)
	if sinkCash != 100000000 || ownCash != 900000000 {
		t.Fatalf("\t%s\tWrong balances after withdrawal : sink %d, registry %d", tests.Failed,
			sinkCash, ownCash)
	}
	summary, _ := f.r.FinancialSummary(ctx)
	if summary.Revenue != 50000000 {
		t.Fatalf("\t%s\tWrong revenue remaining : %d", tests.Failed, summary.Revenue)
	}

	t.Logf("\t%s\tWithdrawals are capped at accrued revenue", tests.Success)
}

// pauseGate checks which operations each pause halts. The registry pause
// gates intake, not settlement; the ledger pause blocks anything that would
// move tokens.
func pauseGate(t *testing.T) {
	ctx := testHarness.Context
	f := resetRegistry(t)

	client := tests.RandomAccount()
	agreementID := tests.RandomAgreementID()
	if err := f.r.CreatePledge(ctx, f.operator,
		newAgreement(agreementID, tests.RandomAssetID(), 100000, client)); err != nil {
		t.Fatalf("\t%s\tFailed to create pledge : %v", tests.Failed, err)
	}
	if err := f.cash.Issue(ctx, f.own, 59500000000); err != nil {
		t.Fatalf("\t%s\tFailed to fund registry : %v", tests.Failed, err)
	}

	// Only the admin pauses the registry.
	if err := f.r.Pause(ctx, f.operator); errors.Cause(err) != ErrUnauthorized {
		t.Fatalf("\t%s\tWrong error for non admin pause : %v", tests.Failed, err)
	}
	if err := f.r.Pause(ctx, f.admin); err != nil {
		t.Fatalf("\t%s\tFailed to pause : %v", tests.Failed, err)
	}
	if err := f.r.Pause(ctx, f.admin); errors.Cause(err) != ErrPaused {
		t.Fatalf("\t%s\tWrong error for double pause : %v", tests.Failed, err)
	}

	if err := f.r.CreatePledge(ctx, f.operator, newAgreement(tests.RandomAgreementID(),
		tests.RandomAssetID(), 10000, client)); errors.Cause(err) != ErrPaused {
		t.Fatalf("\t%s\tWrong error for paused pledge : %v", tests.Failed, err)
	}
	if err := f.r.PurchaseTokens(ctx, tests.RandomAccount(), agreementID, 10,
		tests.RandomPurchaseID()); errors.Cause(err) != ErrPaused {
		t.Fatalf("\t%s\tWrong error for paused purchase : %v", tests.Failed, err)
	}

	// Obligations to clients survive a pause.
	if err := f.r.PayClient(ctx, f.finance, agreementID); err != nil {
		t.Fatalf("\t%s\tFailed to pay client while paused : %v", tests.Failed, err)
	}
	clientCash, _ := f.cash.BalanceOf(ctx, client)
	if clientCash != 59500000000 {
		t.Fatalf("\t%s\tWrong payout while paused : %d", tests.Failed, clientCash)
	}

	if err := f.r.Unpause(ctx, f.admin); err != nil {
		t.Fatalf("\t%s\tFailed to unpause : %v", tests.Failed, err)
	}
	if err := f.r.Unpause(ctx, f.admin); errors.Cause(err) != ErrNotPaused {
		t.Fatalf("\t%s\tWrong error for double unpause : %v", tests.Failed, err)
	}
	if err := f.r.CreatePledge(ctx, f.operator, newAgreement(tests.RandomAgreementID(),
		tests.RandomAssetID(), 10000, client)); err != nil {
		t.Fatalf("\t%s\tFailed to create pledge after unpause : %v", tests.Failed, err)
	}

	// A paused token ledger rejects purchases and repayments before any
	// stable funds move.
	if err := f.tokens.Pause(ctx, f.admin); err != nil {
		t.Fatalf("\t%s\tFailed to pause ledger : %v", tests.Failed, err)
	}
	if err := f.r.PurchaseTokens(ctx, tests.RandomAccount(), agreementID, 10,
		tests.RandomPurchaseID()); errors.Cause(err) != ErrLedgerPaused {
		t.Fatalf("\t%s\tWrong error for purchase on paused ledger : %v", tests.Failed, err)
	}
	if err := f.r.RepayPledge(ctx, f.finance, agreementID,
		1000000); errors.Cause(err) != ErrLedgerPaused {
		t.Fatalf("\t%s\tWrong error for repayment on paused ledger : %v", tests.Failed, err)
	}
	if err := f.tokens.Unpause(ctx, f.admin); err != nil {
		t.Fatalf("\t%s\tFailed to unpause ledger : %v", tests.Failed, err)
	}

	t.Logf("\t%s\tPauses gate intake and token movement, never client payouts", tests.Success)
}

// roles checks grant and revoke against the operator gate.
func roles(t *testing.T) {
	ctx := testHarness.Context
	f := resetRegistry(t)

	newcomer := tests.RandomAccount()
	client := tests.RandomAccount()

	if err := f.r.GrantRole(ctx, f.operator, newcomer,
		state.RoleOperator); errors.Cause(err) != ErrUnauthorized {
		t.Fatalf("\t%s\tWrong error for non admin grant : %v", tests.Failed, err)
	}

	if err := f.r.GrantRole(ctx, f.admin, newcomer, state.RoleOperator); err != nil {
		t.Fatalf("\t%s\tFailed to grant role : %v", tests.Failed, err)
	}
	if err := f.r.CreatePledge(ctx, newcomer, newAgreement(tests.RandomAgreementID(),
		tests.RandomAssetID(), 10000, client)); err != nil {
		t.Fatalf("\t%s\tFailed to create with granted role : %v", tests.Failed, err)
	}

	if err := f.r.RevokeRole(ctx, f.admin, newcomer, state.RoleOperator); err != nil {
		t.Fatalf("\t%s\tFailed to revoke role : %v", tests.Failed, err)
	}
	if err := f.r.CreatePledge(ctx, newcomer, newAgreement(tests.RandomAgreementID(),
		tests.RandomAssetID(), 10000, client)); errors.Cause(err) != ErrUnauthorized {
		t.Fatalf("\t%s\tWrong error after revoke : %v", tests.Failed, err)
	}

	t.Logf("\t%s\tRole grant and revoke gate the operator path", tests.Success)
}

// persistence checks the full pledge state survives a cache flush across
// every package involved.
func persistence(t *testing.T) {
	ctx := testHarness.Context
	f := resetRegistry(t)

	client := tests.RandomAccount()
	agreementID := tests.RandomAgreementID()
	if err := f.r.CreatePledge(ctx, f.operator,
		newAgreement(agreementID, tests.RandomAssetID(), 100000, client)); err != nil {
		t.Fatalf("\t%s\tFailed to create pledge : %v", tests.Failed, err)
	}

	investor := tests.RandomAccount()
	if err := f.cash.Issue(ctx, investor, 1000000000); err != nil {
		t.Fatalf("\t%s\tFailed to fund investor : %v", tests.Failed, err)
	}
	if err := f.cash.Approve(ctx, investor, f.own, 1000000000); err != nil {
		t.Fatalf("\t%s\tFailed to approve registry : %v", tests.Failed, err)
	}
	if err := f.r.PurchaseTokens(ctx, investor, agreementID, 1000,
		tests.RandomPurchaseID()); err != nil {
		t.Fatalf("\t%s\tFailed to purchase tokens : %v", tests.Failed, err)
	}

	regBefore, err := Retrieve(ctx, testHarness.MasterDB)
	if err != nil {
		t.Fatalf("\t%s\tFailed to retrieve registry : %v", tests.Failed, err)
	}
	agBefore, err := f.r.Agreement(ctx, agreementID)
	if err != nil {
		t.Fatalf("\t%s\tFailed to fetch agreement : %v", tests.Failed, err)
	}
	summaryBefore, err := f.r.FinancialSummary(ctx)
	if err != nil {
		t.Fatalf("\t%s\tFailed to read summary : %v", tests.Failed, err)
	}

	writers := []func(c context.Context, dbConn *db.DB) error{
		WriteCache,
		assetledger.WriteCache,
		asset.WriteCache,
		holdings.WriteCache,
		agreement.WriteCache,
		treasury.WriteCache,
		stable.WriteCache,
	}
	for _, write := range writers {
		if err := write(ctx, testHarness.MasterDB); err != nil {
			t.Fatalf("\t%s\tFailed to flush caches : %v", tests.Failed, err)
		}
	}

	Reset(ctx)
	assetledger.Reset(ctx)
	asset.Reset(ctx)
	holdings.Reset(ctx)
	agreement.Reset(ctx)
	treasury.Reset(ctx)
	stable.Reset(ctx)

	regAfter, err := Retrieve(ctx, testHarness.MasterDB)
	if err != nil {
		t.Fatalf("\t%s\tFailed to reload registry : %v", tests.Failed, err)
	}
	if diff := cmp.Diff(regBefore, regAfter); diff != "" {
		t.Fatalf("\t%s\tRegistry changed across flush (-want +got):\n%s", tests.Failed, diff)
	}

	agAfter, err := f.r.Agreement(ctx, agreementID)
	if err != nil {
		t.Fatalf("\t%s\tFailed to reload agreement : %v", tests.Failed, err)
	}
	if diff := cmp.Diff(agBefore, agAfter); diff != "" {
		t.Fatalf("\t%s\tAgreement changed across flush (-want +got):\n%s", tests.Failed, diff)
	}

	summaryAfter, err := f.r.FinancialSummary(ctx)
	if err != nil {
		t.Fatalf("\t%s\tFailed to reload summary : %v", tests.Failed, err)
	}
	if diff := cmp.Diff(summaryBefore, summaryAfter); diff != "" {
		t.Fatalf("\t%s\tSummary changed across flush (-want +got):\n%s", tests.Failed, diff)
	}

	pool, _ := f.tokens.BalanceOf(ctx, f.own)
	investorTokens, _ := f.tokens.BalanceOf(ctx, investor)
	if pool != 69000 || investorTokens != 1000 {
		t.Fatalf("\t%s\tWrong balances after reload : pool %d, investor %d", tests.Failed,
			pool, investorTokens)
	}

	t.Logf("\t%s\tPledge state survives flush and reload", tests.Success)
}
