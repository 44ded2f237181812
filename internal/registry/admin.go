package registry

import (
	"context"
	"strconv"

	"github.com/rwaledger/pledge-core/internal/events"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/internal/treasury"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// SetSpreadRate changes the platform's cut on future pledges and purchases.
// Client payments already fixed on existing agreements never change.
func (r *Registry) SetSpreadRate(ctx context.Context, caller account.ID, rate uint32) error {
	ctx, span := trace.StartSpan(ctx, "internal.registry.SetSpreadRate")
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

	if !reg.HasRole(caller, state.RoleAdmin) {
		node.LogWarn(ctx, "Caller lacks admin role : %s", caller)
		return ErrUnauthorized
	}
	if rate > 50 {
		node.LogWarn(ctx, "Spread rate out of range : %d", rate)
		return ErrInvalidRate
	}

	reg.SpreadRate = rate
	reg.UpdatedAt = v.Now
	Save(ctx, reg)

	node.Log(ctx, "Spread rate set to %d by %s", rate, caller)

	r.Events.Push(ctx, &events.Event{
		Type:       events.TypeSpreadRateSet,
		Actor:      caller.String(),
		Detail:     strconv.FormatUint(uint64(rate), 10),
		OccurredAt: v.Now.Time(),
	})

	return nil
}

// WithdrawRevenue moves accrued spread revenue out of the registry's stable
// funds. Only revenue may leave this way; client and investor principal is
// not withdrawable.
func (r *Registry) WithdrawRevenue(ctx context.Context, caller, to account.ID,
	amount uint64) error {

	ctx, span := trace.StartSpan(ctx, "internal.registry.WithdrawRevenue")
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
	if to.IsZero() {
		return errors.Wrap(ErrInvalidInput, "to")
	}

	tre, err := treasury.Retrieve(ctx, r.MasterDB, v.Now)
	if err != nil {
		return errors.Wrap(err, "Failed to retrieve treasury")
	}
	if err := treasury.WithdrawRevenue(tre, amount, v.Now); err != nil {
		node.LogWarn(ctx, "Withdrawal exceeds revenue : have %d, want %d", tre.Revenue, amount)
		return err
	}

	if err := r.Stable.Transfer(ctx, reg.Account, to, amount); err != nil {
		node.LogWarn(ctx, "Revenue withdrawal failed : %s", err)
		return errors.Wrap(ErrTransferFailed, err.Error())
	}

	treasury.Save(ctx, tre)

	node.Log(ctx, "Revenue withdrawn : %d to %s by %s", amount, to, caller)

	r.Events.Push(ctx, &events.Event{
		Type:         events.TypeRevenueWithdrawn,
		Actor:        caller.String(),
		Counterparty: to.String(),
		StableAmount: amount,
		OccurredAt:   v.Now.Time(),
	})

	return nil
}

// Pause stops pledge creation and token purchases until Unpause.
func (r *Registry) Pause(ctx context.Context, caller account.ID) error {
	ctx, span := trace.StartSpan(ctx, "internal.registry.Pause")
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

	if !reg.HasRole(caller, state.RoleAdmin) {
		node.LogWarn(ctx, "Caller lacks admin role : %s", caller)
		return ErrUnauthorized
	}
	if reg.Paused {
		return ErrPaused
	}

	reg.Paused = true
	reg.UpdatedAt = v.Now
	Save(ctx, reg)

	node.Log(ctx, "Registry paused by %s", caller)

	r.Events.Push(ctx, &events.Event{
		Type:       events.TypeRegistryPaused,
		Actor:      caller.String(),
		OccurredAt: v.Now.Time(),
	})

	return nil
}

// Unpause restores normal operation.
func (r *Registry) Unpause(ctx context.Context, caller account.ID) error {
	ctx, span := trace.StartSpan(ctx, "internal.registry.Unpause")
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

	if !reg.HasRole(caller, state.RoleAdmin) {
		node.LogWarn(ctx, "Caller lacks admin role : %s", caller)
		return ErrUnauthorized
	}
	if !reg.Paused {
		return ErrNotPaused
	}

	reg.Paused = false
	reg.UpdatedAt = v.Now
	Save(ctx, reg)

	node.Log(ctx, "Registry unpaused by %s", caller)

	r.Events.Push(ctx, &events.Event{
		Type:       events.TypeRegistryUnpaused,
		Actor:      caller.String(),
		OccurredAt: v.Now.Time(),
	})

	return nil
}

// GrantRole adds role bits to the target account.
func (r *Registry) GrantRole(ctx context.Context, caller, target account.ID, role state.Role) error {
	ctx, span := trace.StartSpan(ctx, "internal.registry.GrantRole")
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

	if !reg.HasRole(caller, state.RoleAdmin) {
		node.LogWarn(ctx, "Caller lacks admin role : %s", caller)
		return ErrUnauthorized
	}
	if target.IsZero() {
		return errors.Wrap(ErrInvalidInput, "target")
	}
	if role == 0 {
		return errors.Wrap(ErrInvalidInput, "role")
	}

	if reg.Roles == nil {
		reg.Roles = make(map[account.ID]state.Role)
	}
	reg.Roles[target] |= role
	reg.UpdatedAt = v.Now
	Save(ctx, reg)

	node.Log(ctx, "Registry role %s granted to %s by %s", role, target, caller)

	r.Events.Push(ctx, &events.Event{
		Type:         events.TypeRegistryRoleGranted,
		Actor:        caller.String(),
		Counterparty: target.String(),
		Detail:       role.String(),
		OccurredAt:   v.Now.Time(),
	})

	return nil
}

// RevokeRole removes role bits from the target account.
func (r *Registry) RevokeRole(ctx context.Context, caller, target account.ID, role state.Role) error {
	ctx, span := trace.StartSpan(ctx, "internal.registry.RevokeRole")
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

	if !reg.HasRole(caller, state.RoleAdmin) {
		node.LogWarn(ctx, "Caller lacks admin role : %s", caller)
		return ErrUnauthorized
	}
	if target.IsZero() {
		return errors.Wrap(ErrInvalidInput, "target")
	}
	if role == 0 {
		return errors.Wrap(ErrInvalidInput, "role")
	}

	remaining := reg.Roles[target] &^ role
	if remaining == 0 {
		delete(reg.Roles, target)
	} else {
		reg.Roles[target] = remaining
	}
	reg.UpdatedAt = v.Now
	Save(ctx, reg)

	node.Log(ctx, "Registry role %s revoked from %s by %s", role, target, caller)

	r.Events.Push(ctx, &events.Event{
		Type:         events.TypeRegistryRoleRevoked,
		Actor:        caller.String(),
		Counterparty: target.String(),
		Detail:       role.String(),
		OccurredAt:   v.Now.Time(),
	})

	return nil
}
