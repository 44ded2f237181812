package stable

import (
	"context"

	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound abstracts the standard not found error.
	ErrNotFound = errors.New("Stable account not found")

	// ErrInsufficientFunds occurs when an account doesn't hold enough stable
	// funds for the operation.
	ErrInsufficientFunds = errors.New("Stable funds insufficient")

	// ErrInsufficientAllowance occurs when a spender tries to move more
	// stable funds than the owner approved.
	ErrInsufficientAllowance = errors.New("Stable allowance insufficient")

	// ErrBalanceOverflow occurs when an issuance or transfer would overflow
	// the receiving balance.
	ErrBalanceOverflow = errors.New("Stable balance overflow")
)

// Asset is the stable settlement asset client payments, token purchases and
// repayments move through. Amounts carry 6 decimal places. Implementations
// must apply a transfer completely or not at all.
type Asset interface {
	// BalanceOf returns the stable balance of an account.
	BalanceOf(ctx context.Context, owner account.ID) (uint64, error)

	// Approve lets a spender move up to amount out of the owner's account.
	Approve(ctx context.Context, owner, spender account.ID, amount uint64) error

	// Transfer moves stable funds between accounts.
	Transfer(ctx context.Context, from, to account.ID, amount uint64) error

	// TransferFrom moves stable funds out of an owner's account using the
	// spender's allowance.
	TransferFrom(ctx context.Context, spender, from, to account.ID, amount uint64) error
}
