package executor

import (
	"github.com/rwaledger/pledge-core/internal/agreement"
	"github.com/rwaledger/pledge-core/internal/asset"
	"github.com/rwaledger/pledge-core/internal/assetledger"
	"github.com/rwaledger/pledge-core/internal/holdings"
	"github.com/rwaledger/pledge-core/internal/platform/protomux"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/internal/registry"
	"github.com/rwaledger/pledge-core/internal/treasury"

	"github.com/pkg/errors"
)

// Code classifies why an operation was rejected.
type Code string

const (
	// Unauthorized means the caller lacks the role the operation requires.
	Unauthorized Code = "UNAUTHORIZED"

	// InvalidInput means an argument was malformed, zero or empty.
	InvalidInput Code = "INVALID_INPUT"

	// DuplicateIdentifier means an external identifier was used a second
	// time.
	DuplicateIdentifier Code = "DUPLICATE_IDENTIFIER"

	// NotFound means an agreement, asset or purchase does not exist.
	NotFound Code = "NOT_FOUND"

	// InvalidStateTransition means the operation is not valid for the
	// record's current status.
	InvalidStateTransition Code = "INVALID_STATE_TRANSITION"

	// InsufficientBalance means a token or revenue balance cannot cover the
	// operation.
	InsufficientBalance Code = "INSUFFICIENT_BALANCE"

	// InsufficientLiquidity means the registry's stable funds cannot cover a
	// client payout.
	InsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"

	// TransferFailed means the external stable asset rejected a settlement.
	TransferFailed Code = "TRANSFER_FAILED"

	// SystemPaused means a paused component rejected the operation.
	SystemPaused Code = "SYSTEM_PAUSED"

	// Internal covers failures outside the operation taxonomy, storage
	// errors mostly. Nothing committed.
	Internal Code = "INTERNAL"
)

// Classify maps an operation failure to its reject code.
func Classify(err error) Code {
	switch errors.Cause(err) {
	case assetledger.ErrUnauthorized, registry.ErrUnauthorized:
		return Unauthorized

	case assetledger.ErrPaused, registry.ErrPaused, registry.ErrLedgerPaused:
		return SystemPaused

	case assetledger.ErrInvalidInput, registry.ErrInvalidInput,
		assetledger.ErrInvalidRate, registry.ErrInvalidRate,
		assetledger.ErrSupplyOverflow, holdings.ErrBalanceOverflow,
		state.ErrValueOverflow, state.ErrValueUnderflow,
		ErrInvalidParams, protomux.ErrRouteNotFound:
		return InvalidInput

	case assetledger.ErrAssetExists, registry.ErrPledgeExists, registry.ErrPurchaseExists:
		return DuplicateIdentifier

	case asset.ErrNotFound, agreement.ErrNotFound, agreement.ErrPurchaseNotFound,
		holdings.ErrNotFound, assetledger.ErrNotFound, registry.ErrNotFound:
		return NotFound

	case asset.ErrInactive, registry.ErrNotActive,
		assetledger.ErrNotPaused, registry.ErrNotPaused:
		return InvalidStateTransition

	case holdings.ErrInsufficientHoldings, holdings.ErrInsufficientAllowance,
		registry.ErrInsufficientTokens, treasury.ErrInsufficientRevenue:
		return InsufficientBalance

	case registry.ErrInsufficientLiquidity:
		return InsufficientLiquidity

	case registry.ErrTransferFailed:
		return TransferFailed
	}

	return Internal
}
