package assetledger

import (
	"context"
	"sync/atomic"

	"github.com/rwaledger/pledge-core/internal/asset"
	"github.com/rwaledger/pledge-core/internal/events"
	"github.com/rwaledger/pledge-core/internal/holdings"
	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

var (
	// ErrBusy occurs when an operation is re-entered before the previous one
	// completed. Operations on the ledger never overlap.
	ErrBusy = errors.New("Ledger operation in progress")

	// ErrUnauthorized occurs when the caller lacks the role an operation
	// requires.
	ErrUnauthorized = errors.New("Caller not authorized")

	// ErrPaused occurs when a mutating operation arrives while the ledger is
	// paused.
	ErrPaused = errors.New("Ledger paused")

	// ErrInvalidInput occurs for empty or zero arguments. The wrap names the
	// offending field.
	ErrInvalidInput = errors.New("Invalid input")

	// ErrAssetExists occurs when an asset id is registered a second time.
	ErrAssetExists = errors.New("Asset already registered")

	// ErrInvalidRate occurs when a discount rate is outside (0, 100].
	ErrInvalidRate = errors.New("Discount rate out of range")

	// ErrSupplyOverflow occurs when a mint would overflow total supply.
	ErrSupplyOverflow = errors.New("Total supply overflow")
)

// Ledger is the asset token ledger component. It owns the fungible token
// balances and the registry of pledged assets backing them. Minting and
// burning are gated to holders of the registrar role, in practice only the
// pledge registry's account.
type Ledger struct {
	MasterDB        *db.DB
	HoldingsChannel *holdings.CacheChannel
	Events          *events.Pump

	busy uint32
}

// begin marks an operation in progress. Mutating entrypoints are
// non-reentrant; overlapping calls fail instead of interleaving.
func (l *Ledger) begin() error {
	if !atomic.CompareAndSwapUint32(&l.busy, 0, 1) {
		return ErrBusy
	}
	return nil
}

func (l *Ledger) end() {
	atomic.StoreUint32(&l.busy, 0)
}

func (l *Ledger) queueHolding(ci *holdings.CacheItem) {
	if l.HoldingsChannel != nil {
		l.HoldingsChannel.Add(ci)
	}
}

// Ensure initializes the ledger singleton on first run. The admin account
// receives the admin and pauser roles. The registrar account is the pledge
// registry's own identity, the only caller allowed to mint and burn.
func Ensure(ctx context.Context, dbConn *db.DB, admin, registrar account.ID,
	discountRate uint32, now state.Timestamp) error {

	ctx, span := trace.StartSpan(ctx, "internal.assetledger.Ensure")
	defer span.End()

	if _, err := Fetch(ctx, dbConn); err == nil {
		return nil
	} else if errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "Failed to fetch ledger")
	}

	if discountRate == 0 || discountRate > 100 {
		return ErrInvalidRate
	}

	led := &state.Ledger{
		DiscountRate: discountRate,
		Roles: map[account.ID]state.Role{
			admin: state.RoleAdmin | state.RolePauser,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	led.Roles[registrar] |= state.RoleRegistrar

	Save(ctx, led)
	node.Log(ctx, "Ledger initialized : discount rate %d, admin %s", discountRate, admin)
	return nil
}

// Retrieve gets the ledger singleton from the database.
func Retrieve(ctx context.Context, dbConn *db.DB) (*state.Ledger, error) {
	ctx, span := trace.StartSpan(ctx, "internal.assetledger.Retrieve")
	defer span.End()

	return Fetch(ctx, dbConn)
}

// RegisterAsset records a pledged asset and mints the discounted token value
// to the beneficiary. Returns the number of tokens issued.
func (l *Ledger) RegisterAsset(ctx context.Context, caller account.ID, nu *asset.NewAsset,
	beneficiary account.ID) (uint64, error) {

	ctx, span := trace.StartSpan(ctx, "internal.assetledger.RegisterAsset")
	defer span.End()

	if err := l.begin(); err != nil {
		return 0, err
	}
	defer l.end()

	v := node.ContextValues(ctx)

	led, err := Fetch(ctx, l.MasterDB)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to fetch ledger")
	}

	if !led.HasRole(caller, state.RoleRegistrar) {
		node.LogWarn(ctx, "Caller lacks registrar role : %s", caller)
		return 0, ErrUnauthorized
	}
	if led.Paused {
		node.LogWarn(ctx, "Ledger paused : rejecting asset %s", nu.AssetID)
		return 0, ErrPaused
	}
	if len(nu.AssetID) == 0 {
		return 0, errors.Wrap(ErrInvalidInput, "assetID")
	}
	if nu.OriginalValue.IsZero() {
		return 0, errors.Wrap(ErrInvalidInput, "originalValue")
	}
	if beneficiary.IsZero() {
		return 0, errors.Wrap(ErrInvalidInput, "beneficiary")
	}

	// One record per external asset id, enforced by reverse lookup.
	if _, err := asset.Fetch(ctx, l.MasterDB, nu.AssetID); err == nil {
		node.LogWarn(ctx, "Asset already registered : %s", nu.AssetID)
		return 0, errors.Wrap(ErrAssetExists, nu.AssetID)
	} else if errors.Cause(err) != asset.ErrNotFound {
		return 0, errors.Wrap(err, "Failed to check asset")
	}

	pledged, err := nu.OriginalValue.MulRate(led.DiscountRate)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidInput, "originalValue")
	}
	tokens, err := pledged.Tokens()
	if err != nil {
		return 0, errors.Wrap(ErrInvalidInput, "originalValue")
	}

	pledgedTotal, err := led.TotalPledgedValue.Add(pledged)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to accumulate pledged value")
	}

	supply := led.TotalSupply + tokens
	if supply < led.TotalSupply {
		return 0, ErrSupplyOverflow
	}

	h, err := holdings.GetHolding(ctx, l.MasterDB, beneficiary, v.Now)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to get holding")
	}
	if err := holdings.AddDeposit(h, tokens, v.Now); err != nil {
		return 0, errors.Wrap(err, "Failed to mint tokens")
	}

	nu.PledgedValue = pledged
	nu.TokensIssued = tokens

	// All validation passed. Everything below must succeed together.
	if err := asset.Create(ctx, l.MasterDB, nu, led.NextIndex, v.Now); err != nil {
		return 0, errors.Wrap(err, "Failed to create asset")
	}

	l.queueHolding(holdings.Save(ctx, h))

	led.NextIndex++
	led.TotalSupply = supply
	led.TotalPledgedValue = pledgedTotal
	led.UpdatedAt = v.Now
	Save(ctx, led)

	node.Log(ctx, "Asset registered : %s pledged %s, issued %d tokens to %s",
		nu.AssetID, pledged, tokens, beneficiary)

	l.Events.Push(ctx, &events.Event{
		Type:          events.TypeAssetRegistered,
		AssetID:       nu.AssetID,
		Actor:         caller.String(),
		Counterparty:  beneficiary.String(),
		TokenAmount:   tokens,
		OriginalValue: nu.OriginalValue.String(),
		PledgedValue:  pledged.String(),
		OccurredAt:    v.Now.Time(),
	})

	return tokens, nil
}

// ReleaseAsset burns redeemed tokens from the holder and accumulates them
// against the asset. When cumulative redemptions reach the issued amount the
// asset deactivates and its pledged value leaves the global accumulator,
// exactly once.
func (l *Ledger) ReleaseAsset(ctx context.Context, caller account.ID, assetID string,
	holder account.ID, tokens uint64) error {

	ctx, span := trace.StartSpan(ctx, "internal.assetledger.ReleaseAsset")
	defer span.End()

	if err := l.begin(); err != nil {
		return err
	}
	defer l.end()

	v := node.ContextValues(ctx)

	led, err := Fetch(ctx, l.MasterDB)
	if err != nil {
		return errors.Wrap(err, "Failed to fetch ledger")
	}

	if !led.HasRole(caller, state.RoleRegistrar) {
		node.LogWarn(ctx, "Caller lacks registrar role : %s", caller)
		return ErrUnauthorized
	}
	if led.Paused {
		node.LogWarn(ctx, "Ledger paused : rejecting release of %s", assetID)
		return ErrPaused
	}

	a, err := asset.Fetch(ctx, l.MasterDB, assetID)
	if err != nil {
		if errors.Cause(err) == asset.ErrNotFound {
			node.LogWarn(ctx, "Asset not found : %s", assetID)
			return errors.Wrap(asset.ErrNotFound, assetID)
		}
		return errors.Wrap(err, "Failed to fetch asset")
	}
	if !a.Active {
		node.LogWarn(ctx, "Asset already released : %s", assetID)
		return errors.Wrap(asset.ErrInactive, assetID)
	}

	h, err := holdings.GetHolding(ctx, l.MasterDB, holder, v.Now)
	if err != nil {
		return errors.Wrap(err, "Failed to get holding")
	}
	if err := holdings.AddDebit(h, tokens, v.Now); err != nil {
		node.LogWarn(ctx, "Holder balance below redemption : %s has %d, needs %d",
			holder, holdings.Balance(h), tokens)
		return err
	}

	redeemed := a.TokensRedeemed + tokens
	released := redeemed >= a.TokensIssued

	pledgedTotal := led.TotalPledgedValue
	if released {
		pledgedTotal, err = led.TotalPledgedValue.Sub(a.PledgedValue)
		if err != nil {
			return errors.Wrap(err, "Failed to release pledged value")
		}
	}

	upd := asset.UpdateAsset{TokensRedeemed: &redeemed}
	if released {
		active := false
		upd.Active = &active
	}
	if err := asset.Update(ctx, l.MasterDB, assetID, &upd, v.Now); err != nil {
		return errors.Wrap(err, "Failed to update asset")
	}

	l.queueHolding(holdings.Save(ctx, h))

	led.TotalSupply -= tokens
	led.TotalPledgedValue = pledgedTotal
	led.UpdatedAt = v.Now
	Save(ctx, led)

	node.Log(ctx, "Asset release : %s burned %d from %s, redeemed %d of %d",
		assetID, tokens, holder, redeemed, a.TokensIssued)

	ev := &events.Event{
		Type:         events.TypeAssetReleased,
		AssetID:      assetID,
		Actor:        caller.String(),
		Counterparty: holder.String(),
		TokenAmount:  tokens,
		OccurredAt:   v.Now.Time(),
	}
	if released {
		ev.PledgedValue = a.PledgedValue.String()
	}
	l.Events.Push(ctx, ev)

	return nil
}
