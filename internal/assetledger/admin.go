package assetledger

import (
	"context"
	"strconv"

	"github.com/rwaledger/pledge-core/internal/asset"
	"github.com/rwaledger/pledge-core/internal/events"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// ErrNotPaused occurs when unpausing a ledger that is not paused.
var ErrNotPaused = errors.New("Ledger not paused")

// DiscountRate returns the rate applied to newly pledged assets.
func (l *Ledger) DiscountRate(ctx context.Context) (uint32, error) {
	led, err := Fetch(ctx, l.MasterDB)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to fetch ledger")
	}

	return led.DiscountRate, nil
}

// Paused reports whether mutations are currently rejected.
func (l *Ledger) Paused(ctx context.Context) (bool, error) {
	led, err := Fetch(ctx, l.MasterDB)
	if err != nil {
		return false, errors.Wrap(err, "Failed to fetch ledger")
	}

	return led.Paused, nil
}

// AssetActive reports whether an asset still backs outstanding tokens.
func (l *Ledger) AssetActive(ctx context.Context, assetID string) (bool, error) {
	a, err := asset.Fetch(ctx, l.MasterDB, assetID)
	if err != nil {
		return false, err
	}

	return a.Active, nil
}

// SetDiscountRate changes the rate applied to future pledges. Existing asset
// records keep the values computed at registration.
func (l *Ledger) SetDiscountRate(ctx context.Context, caller account.ID, rate uint32) error {
	ctx, span := trace.StartSpan(ctx, "internal.assetledger.SetDiscountRate")
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

	if !led.HasRole(caller, state.RoleAdmin) {
		node.LogWarn(ctx, "Caller lacks admin role : %s", caller)
		return ErrUnauthorized
	}
	if rate == 0 || rate > 100 {
		node.LogWarn(ctx, "Discount rate out of range : %d", rate)
		return ErrInvalidRate
	}

	led.DiscountRate = rate
	led.UpdatedAt = v.Now
	Save(ctx, led)

	node.Log(ctx, "Discount rate set to %d by %s", rate, caller)

	l.Events.Push(ctx, &events.Event{
		Type:       events.TypeDiscountRateSet,
		Actor:      caller.String(),
		Detail:     strconv.FormatUint(uint64(rate), 10),
		OccurredAt: v.Now.Time(),
	})

	return nil
}

// Pause stops registration, release and transfers until Unpause.
func (l *Ledger) Pause(ctx context.Context, caller account.ID) error {
	ctx, span := trace.StartSpan(ctx, "internal.assetledger.Pause")
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

	if !led.HasRole(caller, state.RoleAdmin) && !led.HasRole(caller, state.RolePauser) {
		node.LogWarn(ctx, "Caller lacks pauser role : %s", caller)
		return ErrUnauthorized
	}
	if led.Paused {
		return ErrPaused
	}

	led.Paused = true
	led.UpdatedAt = v.Now
	Save(ctx, led)

	node.Log(ctx, "Ledger paused by %s", caller)

	l.Events.Push(ctx, &events.Event{
		Type:       events.TypeLedgerPaused,
		Actor:      caller.String(),
		OccurredAt: v.Now.Time(),
	})

	return nil
}

// Unpause restores normal operation.
func (l *Ledger) Unpause(ctx context.Context, caller account.ID) error {
	ctx, span := trace.StartSpan(ctx, "internal.assetledger.Unpause")
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

	if !led.HasRole(caller, state.RoleAdmin) && !led.HasRole(caller, state.RolePauser) {
		node.LogWarn(ctx, "Caller lacks pauser role : %s", caller)
		return ErrUnauthorized
	}
	if !led.Paused {
		return ErrNotPaused
	}

	led.Paused = false
	led.UpdatedAt = v.Now
	Save(ctx, led)

	node.Log(ctx, "Ledger unpaused by %s", caller)

	l.Events.Push(ctx, &events.Event{
		Type:       events.TypeLedgerUnpaused,
		Actor:      caller.String(),
		OccurredAt: v.Now.Time(),
	})

	return nil
}

// GrantRole adds role bits to the target account.
func (l *Ledger) GrantRole(ctx context.Context, caller, target account.ID, role state.Role) error {
	ctx, span := trace.StartSpan(ctx, "internal.assetledger.GrantRole")
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

	if !led.HasRole(caller, state.RoleAdmin) {
		node.LogWarn(ctx, "Caller lacks admin role : %s", caller)
		return ErrUnauthorized
	}
	if target.IsZero() {
		return errors.Wrap(ErrInvalidInput, "target")
	}
	if role == 0 {
		return errors.Wrap(ErrInvalidInput, "role")
	}

	if led.Roles == nil {
		led.Roles = make(map[account.ID]state.Role)
	}
	led.Roles[target] |= role
	led.UpdatedAt = v.Now
	Save(ctx, led)

	node.Log(ctx, "Ledger role %s granted to %s by %s", role, target, caller)

	l.Events.Push(ctx, &events.Event{
		Type:         events.TypeLedgerRoleGranted,
		Actor:        caller.String(),
		Counterparty: target.String(),
		Detail:       role.String(),
		OccurredAt:   v.Now.Time(),
	})

	return nil
}

// RevokeRole removes role bits from the target account.
func (l *Ledger) RevokeRole(ctx context.Context, caller, target account.ID, role state.Role) error {
	ctx, span := trace.StartSpan(ctx, "internal.assetledger.RevokeRole")
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

	if !led.HasRole(caller, state.RoleAdmin) {
		node.LogWarn(ctx, "Caller lacks admin role : %s", caller)
		return ErrUnauthorized
	}
	if target.IsZero() {
		return errors.Wrap(ErrInvalidInput, "target")
	}
	if role == 0 {
		return errors.Wrap(ErrInvalidInput, "role")
	}

	remaining := led.Roles[target] &^ role
	if remaining == 0 {
		delete(led.Roles, target)
	} else {
		led.Roles[target] = remaining
	}
	led.UpdatedAt = v.Now
	Save(ctx, led)

	node.Log(ctx, "Ledger role %s revoked from %s by %s", role, target, caller)

	l.Events.Push(ctx, &events.Event{
		Type:         events.TypeLedgerRoleRevoked,
		Actor:        caller.String(),
		Counterparty: target.String(),
		Detail:       role.String(),
		OccurredAt:   v.Now.Time(),
	})

	return nil
}
