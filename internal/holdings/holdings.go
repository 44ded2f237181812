package holdings

import (
	"context"

	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound abstracts the standard not found error.
	ErrNotFound = errors.New("Holding not found")

	// ErrInsufficientHoldings occurs when the address doesn't hold enough
	// tokens for the operation.
	ErrInsufficientHoldings = errors.New("Holdings insufficient")

	// ErrInsufficientAllowance occurs when a spender tries to move more than
	// the holder approved.
	ErrInsufficientAllowance = errors.New("Allowance insufficient")

	// ErrBalanceOverflow occurs when a deposit would overflow the balance.
	ErrBalanceOverflow = errors.New("Balance overflow")
)

// GetHolding returns the holding data for an address. A fresh zero balance
// holding is returned when the address has never held tokens, so callers can
// deposit without a separate create step.
func GetHolding(ctx context.Context, dbConn *db.DB, address account.ID,
	now state.Timestamp) (*state.Holding, error) {

	result, err := Fetch(ctx, dbConn, address)
	if err == nil {
		return result, nil
	}
	if err != ErrNotFound {
		return result, err
	}

	result = &state.Holding{
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return result, nil
}

// Balance returns the spendable balance of a holding.
func Balance(h *state.Holding) uint64 {
	return h.Balance
}

// AddDebit removes an amount from a holding. The caller keeps the change
// local until Save is called.
func AddDebit(h *state.Holding, amount uint64, now state.Timestamp) error {
	if h.Balance < amount {
		return ErrInsufficientHoldings
	}

	h.Balance -= amount
	h.UpdatedAt = now
	return nil
}

// AddDeposit adds an amount to a holding.
func AddDeposit(h *state.Holding, amount uint64, now state.Timestamp) error {
	if h.Balance+amount < h.Balance {
		return ErrBalanceOverflow
	}

	h.Balance += amount
	h.UpdatedAt = now
	return nil
}

// Allowance returns the amount a spender may move out of the holding.
func Allowance(h *state.Holding, spender account.ID) uint64 {
	if h.Allowances == nil {
		return 0
	}
	return h.Allowances[spender]
}

// SetAllowance replaces the amount a spender may move out of the holding.
func SetAllowance(h *state.Holding, spender account.ID, amount uint64,
	now state.Timestamp) {

	if h.Allowances == nil {
		h.Allowances = make(map[account.ID]uint64)
	}

	if amount == 0 {
		delete(h.Allowances, spender)
	} else {
		h.Allowances[spender] = amount
	}
	h.UpdatedAt = now
}

// SpendAllowance consumes part of a spender's allowance. It does not touch
// the balance; callers pair it with AddDebit.
func SpendAllowance(h *state.Holding, spender account.ID, amount uint64,
	now state.Timestamp) error {

	current := Allowance(h, spender)
	if current < amount {
		return ErrInsufficientAllowance
	}

	SetAllowance(h, spender, current-amount, now)
	return nil
}
