package stable

import (
	"context"

	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"

	"go.opencensus.io/trace"
)

// Ledger is an in-process stable asset. Deployments settling against an
// external stable issuer replace it behind the Asset interface.
type Ledger struct {
	MasterDB *db.DB
}

// NewLedger returns a stable ledger over the given storage.
func NewLedger(masterDB *db.DB) *Ledger {
	return &Ledger{MasterDB: masterDB}
}

// BalanceOf returns the stable balance of an account. Unknown accounts hold
// zero.
func (l *Ledger) BalanceOf(ctx context.Context, owner account.ID) (uint64, error) {
	a, err := Fetch(ctx, l.MasterDB, owner)
	if err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

// Allowance returns the amount a spender may move out of an owner's account.
func (l *Ledger) Allowance(ctx context.Context, owner, spender account.ID) (uint64, error) {
	a, err := Fetch(ctx, l.MasterDB, owner)
	if err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if a.Allowances == nil {
		return 0, nil
	}
	return a.Allowances[spender], nil
}

// Issue mints stable funds to an account.
func (l *Ledger) Issue(ctx context.Context, to account.ID, amount uint64) error {
	ctx, span := trace.StartSpan(ctx, "internal.stable.Issue")
	defer span.End()

	now := state.CurrentTimestamp()

	a, err := getAccount(ctx, l.MasterDB, to, now)
	if err != nil {
		return err
	}
	if a.Balance+amount < a.Balance {
		return ErrBalanceOverflow
	}

	a.Balance += amount
	a.UpdatedAt = now
	Save(ctx, a)
	return nil
}

// Approve sets the amount a spender may move out of an owner's account.
func (l *Ledger) Approve(ctx context.Context, owner, spender account.ID, amount uint64) error {
	ctx, span := trace.StartSpan(ctx, "internal.stable.Approve")
	defer span.End()

	now := state.CurrentTimestamp()

	a, err := getAccount(ctx, l.MasterDB, owner, now)
	if err != nil {
		return err
	}

	if a.Allowances == nil {
		a.Allowances = make(map[account.ID]uint64)
	}
	if amount == 0 {
		delete(a.Allowances, spender)
	} else {
		a.Allowances[spender] = amount
	}
	a.UpdatedAt = now
	Save(ctx, a)
	return nil
}

// Transfer moves stable funds between accounts.
func (l *Ledger) Transfer(ctx context.Context, from, to account.ID, amount uint64) error {
	ctx, span := trace.StartSpan(ctx, "internal.stable.Transfer")
	defer span.End()

	now := state.CurrentTimestamp()

	sender, err := getAccount(ctx, l.MasterDB, from, now)
	if err != nil {
		return err
	}
	if sender.Balance < amount {
		return ErrInsufficientFunds
	}

	if from.Equal(to) {
		sender.UpdatedAt = now
		Save(ctx, sender)
		return nil
	}

	receiver, err := getAccount(ctx, l.MasterDB, to, now)
	if err != nil {
		return err
	}
	if receiver.Balance+amount < receiver.Balance {
		return ErrBalanceOverflow
	}

	sender.Balance -= amount
	sender.UpdatedAt = now
	receiver.Balance += amount
	receiver.UpdatedAt = now

	Save(ctx, sender)
	Save(ctx, receiver)
	return nil
}

// TransferFrom moves stable funds out of an owner's account using the
// spender's allowance.
func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to account.ID,
	amount uint64) error {

	ctx, span := trace.StartSpan(ctx, "internal.stable.TransferFrom")
	defer span.End()

	now := state.CurrentTimestamp()

	owner, err := getAccount(ctx, l.MasterDB, from, now)
	if err != nil {
		return err
	}

	allowed := uint64(0)
	if owner.Allowances != nil {
		allowed = owner.Allowances[spender]
	}
	if allowed < amount {
		return ErrInsufficientAllowance
	}
	if owner.Balance < amount {
		return ErrInsufficientFunds
	}

	remaining := allowed - amount
	if remaining == 0 {
		delete(owner.Allowances, spender)
	} else {
		owner.Allowances[spender] = remaining
	}

	if from.Equal(to) {
		owner.UpdatedAt = now
		Save(ctx, owner)
		return nil
	}

	receiver, err := getAccount(ctx, l.MasterDB, to, now)
	if err != nil {
		return err
	}
	if receiver.Balance+amount < receiver.Balance {
		return ErrBalanceOverflow
	}

	owner.Balance -= amount
	owner.UpdatedAt = now
	receiver.Balance += amount
	receiver.UpdatedAt = now

	Save(ctx, owner)
	Save(ctx, receiver)
	return nil
}

// getAccount fetches an account record, creating a fresh zero balance record
// for unknown addresses.
func getAccount(ctx context.Context, dbConn *db.DB, address account.ID,
	now state.Timestamp) (*state.Holding, error) {

	a, err := Fetch(ctx, dbConn, address)
	if err == nil {
		return a, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	return &state.Holding{
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
