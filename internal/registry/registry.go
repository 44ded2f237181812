package registry

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/rwaledger/pledge-core/internal/agreement"
	"github.com/rwaledger/pledge-core/internal/asset"
	"github.com/rwaledger/pledge-core/internal/events"
	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/internal/stable"
	"github.com/rwaledger/pledge-core/internal/treasury"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// stableScale converts whole token counts to 6 decimal stable units. One
// token settles at one stable unit.
const stableScale = uint64(1000000)

var (
	// ErrBusy occurs when an operation is re-entered before the previous one
	// completed. Operations on the registry never overlap.
	ErrBusy = errors.New("Registry operation in progress")

	// ErrUnauthorized occurs when the caller lacks the role an operation
	// requires.
	ErrUnauthorized = errors.New("Caller not authorized")

	// ErrPaused occurs when a gated operation arrives while the registry is
	// paused.
	ErrPaused = errors.New("Registry paused")

	// ErrNotPaused occurs when unpausing a registry that is not paused.
	ErrNotPaused = errors.New("Registry not paused")

	// ErrLedgerPaused occurs when a purchase arrives while the token ledger
	// is paused. Checked before any stable funds move.
	ErrLedgerPaused = errors.New("Token ledger paused")

	// ErrInvalidInput occurs for empty or zero arguments. The wrap names the
	// offending field.
	ErrInvalidInput = errors.New("Invalid input")

	// ErrPledgeExists occurs when an agreement id is used a second time.
	ErrPledgeExists = errors.New("Agreement already exists")

	// ErrPurchaseExists occurs when a purchase id is used a second time.
	ErrPurchaseExists = errors.New("Purchase already recorded")

	// ErrNotActive occurs when a lifecycle operation hits an agreement that
	// is not in the active status.
	ErrNotActive = errors.New("Agreement not active")

	// ErrInsufficientLiquidity occurs when the registry's stable balance
	// cannot cover a client payout.
	ErrInsufficientLiquidity = errors.New("Registry stable balance insufficient")

	// ErrInsufficientTokens occurs when the registry's token balance cannot
	// cover a purchase or a repayment redemption.
	ErrInsufficientTokens = errors.New("Registry token balance insufficient")

	// ErrInvalidRate occurs when a spread rate is outside [0, 50].
	ErrInvalidRate = errors.New("Spread rate out of range")

	// ErrTransferFailed occurs when the stable asset rejects a settlement
	// after local validation passed.
	ErrTransferFailed = errors.New("Stable transfer failed")
)

// AssetLedger is the capability the registry holds on the token ledger. It
// is injected once at construction and never reassigned. The registry's own
// account is the only holder of the registrar role, so mint and burn flow
// exclusively through this reference.
type AssetLedger interface {
	DiscountRate(ctx context.Context) (uint32, error)
	Paused(ctx context.Context) (bool, error)
	AssetActive(ctx context.Context, assetID string) (bool, error)
	RegisterAsset(ctx context.Context, caller account.ID, nu *asset.NewAsset,
		beneficiary account.ID) (uint64, error)
	ReleaseAsset(ctx context.Context, caller account.ID, assetID string,
		holder account.ID, tokens uint64) error
	Transfer(ctx context.Context, caller, to account.ID, amount uint64) error
	BalanceOf(ctx context.Context, owner account.ID) (uint64, error)
}

// Registry is the pledge registry component. It owns the agreement
// lifecycle, investor purchase bookkeeping and the platform's stable money
// accumulators, and orchestrates the token ledger through its capability.
type Registry struct {
	MasterDB *db.DB
	Ledger   AssetLedger
	Stable   stable.Asset
	Events   *events.Pump

	busy uint32
}

// begin marks an operation in progress. Mutating entrypoints are
// non-reentrant; overlapping calls fail instead of interleaving.
func (r *Registry) begin() error {
	if !atomic.CompareAndSwapUint32(&r.busy, 0, 1) {
		return ErrBusy
	}
	return nil
}

func (r *Registry) end() {
	atomic.StoreUint32(&r.busy, 0)
}

// Ensure initializes the registry singleton on first run. The own account is
// the registry's settlement identity, the beneficiary of minted tokens. The
// operator and finance accounts may be zero when those roles are granted
// later.
func Ensure(ctx context.Context, dbConn *db.DB, own, admin, operator, finance account.ID,
	spreadRate uint32, now state.Timestamp) error {

	ctx, span := trace.StartSpan(ctx, "internal.registry.Ensure")
	defer span.End()

	if _, err := Fetch(ctx, dbConn); err == nil {
		return nil
	} else if errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "Failed to fetch registry")
	}

	if spreadRate > 50 {
		return ErrInvalidRate
	}
	if own.IsZero() {
		return errors.Wrap(ErrInvalidInput, "own account")
	}

	reg := &state.Registry{
		Account:    own,
		SpreadRate: spreadRate,
		Roles: map[account.ID]state.Role{
			admin: state.RoleAdmin,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !operator.IsZero() {
		reg.Roles[operator] |= state.RoleOperator
	}
	if !finance.IsZero() {
		reg.Roles[finance] |= state.RoleFinance
	}

	Save(ctx, reg)
	node.Log(ctx, "Registry initialized : account %s, spread rate %d", own, spreadRate)
	return nil
}

// Retrieve gets the registry singleton from the database.
func Retrieve(ctx context.Context, dbConn *db.DB) (*state.Registry, error) {
	ctx, span := trace.StartSpan(ctx, "internal.registry.Retrieve")
	defer span.End()

	return Fetch(ctx, dbConn)
}

// CreatePledge opens a pledge agreement and registers its backing asset on
// the token ledger, minting the discounted value to the registry account.
// The client payment is fixed here from the spread in effect now.
//
// The agreement passes through pending only inside this operation; it
// commits active.
func (r *Registry) CreatePledge(ctx context.Context, caller account.ID,
	np *agreement.NewAgreement) error {

	ctx, span := trace.StartSpan(ctx, "internal.registry.CreatePledge")
	defer span.End()

	if err := r.begin(); err != nil {
		return err
	}
	defer r.end()

	v := node.ContextValues(ctx)

	reg, err := Fetch(ctx, r.MasterDB)
	if err != nil {
		return errors.Wrap(err, "Failed to fetch registry")
	}

	if !reg.HasRole(caller, state.RoleOperator) {
		node.LogWarn(ctx, "Caller lacks operator role : %s", caller)
		return ErrUnauthorized
	}
	if reg.Paused {
		node.LogWarn(ctx, "Registry paused : rejecting pledge %s", np.AgreementID)
		return ErrPaused
	}
	if len(np.AgreementID) == 0 {
		return errors.Wrap(ErrInvalidInput, "agreementID")
	}
	if np.Client.IsZero() {
		return errors.Wrap(ErrInvalidInput, "client")
	}
	if len(np.AssetID) == 0 {
		return errors.Wrap(ErrInvalidInput, "assetID")
	}
	if np.OriginalValue.IsZero() {
		return errors.Wrap(ErrInvalidInput, "originalValue")
	}

	// One agreement per external id.
	if _, err := agreement.Fetch(ctx, r.MasterDB, np.AgreementID); err == nil {
		node.LogWarn(ctx, "Agreement already exists : %s", np.AgreementID)
		return errors.Wrap(ErrPledgeExists, np.AgreementID)
	} else if errors.Cause(err) != agreement.ErrNotFound {
		return errors.Wrap(err, "Failed to check agreement")
	}

	rate, err := r.Ledger.DiscountRate(ctx)
	if err != nil {
		return errors.Wrap(err, "Failed to read discount rate")
	}

	discounted, err := np.OriginalValue.MulRate(rate)
	if err != nil {
		return errors.Wrap(ErrInvalidInput, "originalValue")
	}
	clientShare, err := discounted.MulRate(100 - reg.SpreadRate)
	if err != nil {
		return errors.Wrap(ErrInvalidInput, "originalValue")
	}
	payment, err := clientShare.StableUnits()
	if err != nil {
		return errors.Wrap(ErrInvalidInput, "originalValue")
	}

	np.DiscountedValue = discounted

	ag := state.Agreement{}
	if err := node.Convert(ctx, np, &ag); err != nil {
		return errors.Wrap(err, "Failed to convert agreement")
	}
	ag.ClientPayment = payment
	ag.Status = state.StatusPending
	ag.CreatedAt = v.Now
	ag.UpdatedAt = v.Now

	index, err := agreement.GetIndex(ctx, r.MasterDB, agreement.IndexClient, np.Client, v.Now)
	if err != nil {
		return errors.Wrap(err, "Failed to get client index")
	}

	// The ledger call is the last fallible step. It registers the asset and
	// mints to the registry account, or fails with no effect.
	tokens, err := r.Ledger.RegisterAsset(ctx, reg.Account, &asset.NewAsset{
		AssetID:       np.AssetID,
		AssetType:     np.AssetType,
		Description:   np.Description,
		OriginalValue: np.OriginalValue,
		Pledger:       np.Client,
	}, reg.Account)
	if err != nil {
		node.LogWarn(ctx, "Asset registration failed for %s : %s", np.AgreementID, err)
		return err
	}

	ag.TokensIssued = tokens
	ag.Status = state.StatusActive
	agreement.Save(ctx, &ag)

	index.AgreementIDs = append(index.AgreementIDs, ag.AgreementID)
	index.UpdatedAt = v.Now
	agreement.SaveIndex(ctx, agreement.IndexClient, index)

	reg.AgreementCount++
	reg.UpdatedAt = v.Now
	Save(ctx, reg)

	node.Log(ctx, "Pledge created : %s for client %s, discounted %s, payment %d, %d tokens",
		ag.AgreementID, ag.Client, discounted, payment, tokens)

	r.Events.Push(ctx, &events.Event{
		Type:          events.TypePledgeCreated,
		AgreementID:   ag.AgreementID,
		AssetID:       ag.AssetID,
		Actor:         caller.String(),
		Counterparty:  ag.Client.String(),
		TokenAmount:   tokens,
		StableAmount:  payment,
		OriginalValue: ag.OriginalValue.String(),
		PledgedValue:  discounted.String(),
		OccurredAt:    v.Now.Time(),
	})

	return nil
}

// PayClient sends the agreement's fixed client payment from the registry's
// stable funds. Payout is a side effect, not a lifecycle transition; the
// agreement stays active.
func (r *Registry) PayClient(ctx context.Context, caller account.ID, agreementID string) error {
	ctx, span := trace.StartSpan(ctx, "internal.registry.PayClient")
	defer span.End()

	if err := r.begin(); err != nil {
		return err
	}
	defer r.end()

	v := node.ContextValues(ctx)

	reg, err := Fetch(ctx, r.MasterDB)
	if err != nil {
		return errors.Wrap(err, "Failed to fetch registry")
	}

	if !reg.HasRole(caller, state.RoleFinance) {
		node.LogWarn(ctx, "Caller lacks finance role : %s", caller)
		return ErrUnauthorized
	}

	ag, err := agreement.Fetch(ctx, r.MasterDB, agreementID)
	if err != nil {
		if errors.Cause(err) == agreement.ErrNotFound {
			node.LogWarn(ctx, "Agreement not found : %s", agreementID)
			return errors.Wrap(agreement.ErrNotFound, agreementID)
		}
		return errors.Wrap(err, "Failed to fetch agreement")
	}
	if !ag.IsActive() {
		node.LogWarn(ctx, "Agreement not active : %s is %s", agreementID, ag.Status)
		return errors.Wrap(ErrNotActive, agreementID)
	}

	balance, err := r.Stable.BalanceOf(ctx, reg.Account)
	if err != nil {
		return errors.Wrap(err, "Failed to read stable balance")
	}
	if balance < ag.ClientPayment {
		node.LogWarn(ctx, "Stable liquidity short : have %d, need %d", balance, ag.ClientPayment)
		return errors.Wrap(ErrInsufficientLiquidity, agreementID)
	}

	tre, err := treasury.Retrieve(ctx, r.MasterDB, v.Now)
	if err != nil {
		return errors.Wrap(err, "Failed to retrieve treasury")
	}

	if err := r.Stable.Transfer(ctx, reg.Account, ag.Client, ag.ClientPayment); err != nil {
		node.LogWarn(ctx, "Client payout failed : %s", err)
		return errors.Wrap(ErrTransferFailed, err.Error())
	}

	treasury.RecordClientPayment(tre, ag.ClientPayment, v.Now)
	treasury.Save(ctx, tre)

	node.Log(ctx, "Client paid : %s received %d for %s", ag.Client, ag.ClientPayment, agreementID)

	r.Events.Push(ctx, &events.Event{
		Type:         events.TypeClientPaid,
		AgreementID:  agreementID,
		AssetID:      ag.AssetID,
		Actor:        caller.String(),
		Counterparty: ag.Client.String(),
		StableAmount: ag.ClientPayment,
		OccurredAt:   v.Now.Time(),
	})

	return nil
}

// PurchaseTokens sells tokens from the registry's pool to an investor
// against stable funds pulled through a pre-authorized allowance. Tokens
// from different pledges are fungible in the pool, so the balance check is
// aggregate. The spread share of the payment accrues as platform revenue.
func (r *Registry) PurchaseTokens(ctx context.Context, investor account.ID, agreementID string,
	tokenAmount uint64, purchaseID string) error {

	ctx, span := trace.StartSpan(ctx, "internal.registry.PurchaseTokens")
	defer span.End()

	if err := r.begin(); err != nil {
		return err
	}
	defer r.end()

	v := node.ContextValues(ctx)

	reg, err := Fetch(ctx, r.MasterDB)
	if err != nil {
		return errors.Wrap(err, "Failed to fetch registry")
	}

	if reg.Paused {
		node.LogWarn(ctx, "Registry paused : rejecting purchase %s", purchaseID)
		return ErrPaused
	}

	// The token leg runs on the ledger after the stable pull, so its pause
	// has to reject the purchase before any funds move.
	ledgerPaused, err := r.Ledger.Paused(ctx)
	if err != nil {
		return errors.Wrap(err, "Failed to read ledger pause state")
	}
	if ledgerPaused {
		node.LogWarn(ctx, "Token ledger paused : rejecting purchase %s", purchaseID)
		return ErrLedgerPaused
	}

	ag, err := agreement.Fetch(ctx, r.MasterDB, agreementID)
	if err != nil {
		if errors.Cause(err) == agreement.ErrNotFound {
			node.LogWarn(ctx, "Agreement not found : %s", agreementID)
			return errors.Wrap(agreement.ErrNotFound, agreementID)
		}
		return errors.Wrap(err, "Failed to fetch agreement")
	}
	if !ag.IsActive() {
		node.LogWarn(ctx, "Agreement not active : %s is %s", agreementID, ag.Status)
		return errors.Wrap(ErrNotActive, agreementID)
	}

	if tokenAmount == 0 {
		return errors.Wrap(ErrInvalidInput, "tokenAmount")
	}
	if tokenAmount > math.MaxUint64/stableScale {
		return errors.Wrap(ErrInvalidInput, "tokenAmount")
	}
	if len(purchaseID) == 0 {
		return errors.Wrap(ErrInvalidInput, "purchaseID")
	}
	if investor.IsZero() {
		return errors.Wrap(ErrInvalidInput, "investor")
	}

	// One purchase per external id.
	if _, err := agreement.FetchReference(ctx, r.MasterDB, purchaseID); err == nil {
		node.LogWarn(ctx, "Purchase already recorded : %s", purchaseID)
		return errors.Wrap(ErrPurchaseExists, purchaseID)
	} else if errors.Cause(err) != agreement.ErrPurchaseNotFound {
		return errors.Wrap(err, "Failed to check purchase")
	}

	pool, err := r.Ledger.BalanceOf(ctx, reg.Account)
	if err != nil {
		return errors.Wrap(err, "Failed to read token pool")
	}
	if pool < tokenAmount {
		node.LogWarn(ctx, "Token pool short : have %d, need %d", pool, tokenAmount)
		return errors.Wrap(ErrInsufficientTokens, agreementID)
	}

	stableRequired := tokenAmount * stableScale
	revenue := spreadCut(stableRequired, reg.SpreadRate)

	tre, err := treasury.Retrieve(ctx, r.MasterDB, v.Now)
	if err != nil {
		return errors.Wrap(err, "Failed to retrieve treasury")
	}
	index, err := agreement.GetIndex(ctx, r.MasterDB, agreement.IndexInvestor, investor, v.Now)
	if err != nil {
		return errors.Wrap(err, "Failed to get investor index")
	}

	// Pull the stable leg first; an unfunded or unapproved investor fails
	// here with nothing moved.
	if err := r.Stable.TransferFrom(ctx, reg.Account, investor, reg.Account, stableRequired); err != nil {
		node.LogWarn(ctx, "Stable pull failed for purchase %s : %s", purchaseID, err)
		return errors.Wrap(ErrTransferFailed, err.Error())
	}

	if err := r.Ledger.Transfer(ctx, reg.Account, investor, tokenAmount); err != nil {
		return errors.Wrap(err, "Failed to deliver tokens")
	}

	if err := agreement.AddPurchase(ctx, r.MasterDB, agreementID, &state.Purchase{
		PurchaseID:  purchaseID,
		Investor:    investor,
		TokenAmount: tokenAmount,
		StablePaid:  stableRequired,
		CreatedAt:   v.Now,
	}, v.Now); err != nil {
		return errors.Wrap(err, "Failed to record purchase")
	}

	if !index.Contains(agreementID) {
		index.AgreementIDs = append(index.AgreementIDs, agreementID)
		index.UpdatedAt = v.Now
		agreement.SaveIndex(ctx, agreement.IndexInvestor, index)
	}

	treasury.RecordInvestorPayment(tre, stableRequired, v.Now)
	treasury.AccrueRevenue(tre, revenue, v.Now)
	treasury.Save(ctx, tre)

	node.Log(ctx, "Tokens purchased : %s bought %d under %s for %d, revenue %d",
		investor, tokenAmount, agreementID, stableRequired, revenue)

	r.Events.Push(ctx, &events.Event{
		Type:         events.TypeTokensPurchased,
		AgreementID:  agreementID,
		AssetID:      ag.AssetID,
		PurchaseID:   purchaseID,
		Actor:        investor.String(),
		Counterparty: reg.Account.String(),
		TokenAmount:  tokenAmount,
		StableAmount: stableRequired,
		OccurredAt:   v.Now.Time(),
	})

	return nil
}

// RepayPledge settles an agreement: the repayment is pulled from the client,
// the agreement turns repaid and the backing asset is released by redeeming
// the full issued amount from the registry's own pool.
//
// Tokens sold to investors are not recalled, so the registry may no longer
// hold the full issued amount; that surfaces here as a token balance
// failure, checked before any stable funds move.
func (r *Registry) RepayPledge(ctx context.Context, caller account.ID, agreementID string,
	repayment uint64) error {

	ctx, span := trace.StartSpan(ctx, "internal.registry.RepayPledge")
	defer span.End()

	if err := r.begin(); err != nil {
		return err
	}
	defer r.end()

	v := node.ContextValues(ctx)

	reg, err := Fetch(ctx, r.MasterDB)
	if err != nil {
		return errors.Wrap(err, "Failed to fetch registry")
	}

	if !reg.HasRole(caller, state.RoleFinance) {
		node.LogWarn(ctx, "Caller lacks finance role : %s", caller)
		return ErrUnauthorized
	}

	ag, err := agreement.Fetch(ctx, r.MasterDB, agreementID)
	if err != nil {
		if errors.Cause(err) == agreement.ErrNotFound {
			node.LogWarn(ctx, "Agreement not found : %s", agreementID)
			return errors.Wrap(agreement.ErrNotFound, agreementID)
		}
		return errors.Wrap(err, "Failed to fetch agreement")
	}
	if !ag.IsActive() {
		node.LogWarn(ctx, "Agreement not active : %s is %s", agreementID, ag.Status)
		return errors.Wrap(ErrNotActive, agreementID)
	}

	// Precheck the release legs so the stable pull cannot commit ahead of a
	// redemption that would fail.
	active, err := r.Ledger.AssetActive(ctx, ag.AssetID)
	if err != nil {
		return errors.Wrap(err, "Failed to check asset")
	}
	if !active {
		node.LogWarn(ctx, "Backing asset already released : %s", ag.AssetID)
		return errors.Wrap(asset.ErrInactive, ag.AssetID)
	}

	ledgerPaused, err := r.Ledger.Paused(ctx)
	if err != nil {
		return errors.Wrap(err, "Failed to read ledger pause state")
	}
	if ledgerPaused {
		node.LogWarn(ctx, "Token ledger paused : rejecting repayment of %s", agreementID)
		return ErrLedgerPaused
	}

	pool, err := r.Ledger.BalanceOf(ctx, reg.Account)
	if err != nil {
		return errors.Wrap(err, "Failed to read token pool")
	}
	if pool < ag.TokensIssued {
		node.LogWarn(ctx, "Token pool cannot cover redemption : have %d, need %d",
			pool, ag.TokensIssued)
		return errors.Wrap(ErrInsufficientTokens, agreementID)
	}

	if err := r.Stable.TransferFrom(ctx, reg.Account, ag.Client, reg.Account, repayment); err != nil {
		node.LogWarn(ctx, "Repayment pull failed for %s : %s", agreementID, err)
		return errors.Wrap(ErrTransferFailed, err.Error())
	}

	if err := r.Ledger.ReleaseAsset(ctx, reg.Account, ag.AssetID, reg.Account,
		ag.TokensIssued); err != nil {
		return errors.Wrap(err, "Failed to release asset")
	}

	repaid := state.StatusRepaid
	if err := agreement.Update(ctx, r.MasterDB, agreementID,
		&agreement.UpdateAgreement{Status: &repaid}, v.Now); err != nil {
		return errors.Wrap(err, "Failed to update agreement")
	}

	node.Log(ctx, "Pledge repaid : %s settled %d, released %d tokens",
		agreementID, repayment, ag.TokensIssued)

	r.Events.Push(ctx, &events.Event{
		Type:         events.TypePledgeRepaid,
		AgreementID:  agreementID,
		AssetID:      ag.AssetID,
		Actor:        caller.String(),
		Counterparty: ag.Client.String(),
		TokenAmount:  ag.TokensIssued,
		StableAmount: repayment,
		OccurredAt:   v.Now.Time(),
	})

	return nil
}

// spreadCut returns floor(amount * rate / 100) without overflowing.
func spreadCut(amount uint64, rate uint32) uint64 {
	return amount/100*uint64(rate) + amount%100*uint64(rate)/100
}
