package assetledger

import (
	"context"

	"github.com/rwaledger/pledge-core/internal/events"
	"github.com/rwaledger/pledge-core/internal/holdings"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// Transfer moves tokens from the caller to another account.
func (l *Ledger) Transfer(ctx context.Context, caller, to account.ID, amount uint64) error {
	ctx, span := trace.StartSpan(ctx, "internal.assetledger.Transfer")
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
	if led.Paused {
		node.LogWarn(ctx, "Ledger paused : rejecting transfer")
		return ErrPaused
	}
	if to.IsZero() {
		return errors.Wrap(ErrInvalidInput, "to")
	}

	from, err := holdings.GetHolding(ctx, l.MasterDB, caller, v.Now)
	if err != nil {
		return errors.Wrap(err, "Failed to get sender holding")
	}
	if err := holdings.AddDebit(from, amount, v.Now); err != nil {
		node.LogWarn(ctx, "Transfer exceeds balance : %s has %d, needs %d",
			caller, holdings.Balance(from), amount)
		return err
	}

	// A self transfer settles against the same copy so the balance nets out.
	receiver := from
	if !to.Equal(caller) {
		receiver, err = holdings.GetHolding(ctx, l.MasterDB, to, v.Now)
		if err != nil {
			return errors.Wrap(err, "Failed to get receiver holding")
		}
	}
	if err := holdings.AddDeposit(receiver, amount, v.Now); err != nil {
		return err
	}

	l.queueHolding(holdings.Save(ctx, from))
	if !to.Equal(caller) {
		l.queueHolding(holdings.Save(ctx, receiver))
	}

	l.Events.Push(ctx, &events.Event{
		Type:         events.TypeTokensTransferred,
		Actor:        caller.String(),
		Counterparty: to.String(),
		TokenAmount:  amount,
		OccurredAt:   v.Now.Time(),
	})

	return nil
}

// Approve lets a spender move up to amount of the caller's tokens. The
// allowance is set, not accumulated; approving zero clears it.
func (l *Ledger) Approve(ctx context.Context, caller, spender account.ID, amount uint64) error {
	ctx, span := trace.StartSpan(ctx, "internal.assetledger.Approve")
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
	if led.Paused {
		node.LogWarn(ctx, "Ledger paused : rejecting approval")
		return ErrPaused
	}
	if spender.IsZero() {
		return errors.Wrap(ErrInvalidInput, "spender")
	}

	h, err := holdings.GetHolding(ctx, l.MasterDB, caller, v.Now)
	if err != nil {
		return errors.Wrap(err, "Failed to get holding")
	}
	holdings.SetAllowance(h, spender, amount, v.Now)

	l.queueHolding(holdings.Save(ctx, h))

	l.Events.Push(ctx, &events.Event{
		Type:         events.TypeAllowanceSet,
		Actor:        caller.String(),
		Counterparty: spender.String(),
		TokenAmount:  amount,
		OccurredAt:   v.Now.Time(),
	})

	return nil
}

// TransferFrom moves tokens between two accounts against an allowance the
// owner granted the caller.
func (l *Ledger) TransferFrom(ctx context.Context, caller, owner, to account.ID,
	amount uint64) error {

	ctx, span := trace.StartSpan(ctx, "internal.assetledger.TransferFrom")
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
	if led.Paused {
		node.LogWarn(ctx, "Ledger paused : rejecting transfer")
		return ErrPaused
	}
	if to.IsZero() {
		return errors.Wrap(ErrInvalidInput, "to")
	}

	from, err := holdings.GetHolding(ctx, l.MasterDB, owner, v.Now)
	if err != nil {
		return errors.Wrap(err, "Failed to get owner holding")
	}
	if err := holdings.SpendAllowance(from, caller, amount, v.Now); err != nil {
		node.LogWarn(ctx, "Transfer exceeds allowance : %s spending for %s", caller, owner)
		return err
	}
	if err := holdings.AddDebit(from, amount, v.Now); err != nil {
		node.LogWarn(ctx, "Transfer exceeds balance : %s has %d, needs %d",
			owner, holdings.Balance(from), amount)
		return err
	}

	receiver := from
	if !to.Equal(owner) {
		receiver, err = holdings.GetHolding(ctx, l.MasterDB, to, v.Now)
		if err != nil {
			return errors.Wrap(err, "Failed to get receiver holding")
		}
	}
	if err := holdings.AddDeposit(receiver, amount, v.Now); err != nil {
		return err
	}

	l.queueHolding(holdings.Save(ctx, from))
	if !to.Equal(owner) {
		l.queueHolding(holdings.Save(ctx, receiver))
	}

	l.Events.Push(ctx, &events.Event{
		Type:         events.TypeTokensTransferred,
		Actor:        owner.String(),
		Counterparty: to.String(),
		TokenAmount:  amount,
		Detail:       "spender " + caller.String(),
		OccurredAt:   v.Now.Time(),
	})

	return nil
}

// BalanceOf returns an account's token balance.
func (l *Ledger) BalanceOf(ctx context.Context, owner account.ID) (uint64, error) {
	ctx, span := trace.StartSpan(ctx, "internal.assetledger.BalanceOf")
	defer span.End()

	v := node.ContextValues(ctx)

	h, err := holdings.GetHolding(ctx, l.MasterDB, owner, v.Now)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to get holding")
	}

	return holdings.Balance(h), nil
}

// Allowance returns the amount a spender may move out of an owner's balance.
func (l *Ledger) Allowance(ctx context.Context, owner, spender account.ID) (uint64, error) {
	ctx, span := trace.StartSpan(ctx, "internal.assetledger.Allowance")
	defer span.End()

	v := node.ContextValues(ctx)

	h, err := holdings.GetHolding(ctx, l.MasterDB, owner, v.Now)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to get holding")
	}

	return holdings.Allowance(h, spender), nil
}

// TotalSupply returns the outstanding token supply across all holdings.
func (l *Ledger) TotalSupply(ctx context.Context) (uint64, error) {
	led, err := Fetch(ctx, l.MasterDB)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to fetch ledger")
	}

	return led.TotalSupply, nil
}
