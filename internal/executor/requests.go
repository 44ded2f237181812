package executor

import (
	"encoding/json"

	"github.com/rwaledger/pledge-core/internal/platform/protomux"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
)

// Operation names, as addressed in requests.
const (
	OpRegisterAsset   = "registerAsset"
	OpReleaseAsset    = "releaseAsset"
	OpTransfer        = "transfer"
	OpApprove         = "approve"
	OpTransferFrom    = "transferFrom"
	OpSetDiscountRate = "setDiscountRate"
	OpCreatePledge    = "createPledge"
	OpPayClient       = "payClient"
	OpPurchaseTokens  = "purchaseTokens"
	OpRepayPledge     = "repayPledge"
	OpSetSpreadRate   = "setSpreadRate"
	OpWithdrawRevenue = "withdrawRevenue"
	OpPause           = "pause"
	OpUnpause         = "unpause"
	OpGrantRole       = "grantRole"
	OpRevokeRole      = "revokeRole"
)

// ErrInvalidParams occurs when a request's parameter payload cannot be
// decoded for its operation.
var ErrInvalidParams = errors.New("Invalid operation parameters")

// RegisterAssetParams are the arguments of ledger/registerAsset.
type RegisterAssetParams struct {
	AssetID       string      `json:"AssetID"`
	AssetType     string      `json:"AssetType"`
	Description   string      `json:"Description"`
	OriginalValue state.Value `json:"OriginalValue"`
	Pledger       account.ID  `json:"Pledger"`
	Beneficiary   account.ID  `json:"Beneficiary"`
}

// ReleaseAssetParams are the arguments of ledger/releaseAsset.
type ReleaseAssetParams struct {
	AssetID string     `json:"AssetID"`
	Holder  account.ID `json:"Holder"`
	Tokens  uint64     `json:"Tokens"`
}

// TransferParams are the arguments of ledger/transfer.
type TransferParams struct {
	To     account.ID `json:"To"`
	Amount uint64     `json:"Amount"`
}

// ApproveParams are the arguments of ledger/approve.
type ApproveParams struct {
	Spender account.ID `json:"Spender"`
	Amount  uint64     `json:"Amount"`
}

// TransferFromParams are the arguments of ledger/transferFrom. The caller
// spends its allowance on the owner's holding.
type TransferFromParams struct {
	Owner  account.ID `json:"Owner"`
	To     account.ID `json:"To"`
	Amount uint64     `json:"Amount"`
}

// SetRateParams are the arguments of setDiscountRate and setSpreadRate.
type SetRateParams struct {
	Rate uint32 `json:"Rate"`
}

// RoleParams are the arguments of grantRole and revokeRole. Role carries a
// single role name.
type RoleParams struct {
	Target account.ID `json:"Target"`
	Role   string     `json:"Role"`
}

// CreatePledgeParams are the arguments of registry/createPledge.
type CreatePledgeParams struct {
	AgreementID   string      `json:"AgreementID"`
	Client        account.ID  `json:"Client"`
	AssetID       string      `json:"AssetID"`
	AssetType     string      `json:"AssetType"`
	Description   string      `json:"Description"`
	OriginalValue state.Value `json:"OriginalValue"`
	DocumentHash  string      `json:"DocumentHash"`
}

// PayClientParams are the arguments of registry/payClient.
type PayClientParams struct {
	AgreementID string `json:"AgreementID"`
}

// PurchaseTokensParams are the arguments of registry/purchaseTokens. The
// caller is the investor.
type PurchaseTokensParams struct {
	AgreementID string `json:"AgreementID"`
	TokenAmount uint64 `json:"TokenAmount"`
	PurchaseID  string `json:"PurchaseID"`
}

// RepayPledgeParams are the arguments of registry/repayPledge.
type RepayPledgeParams struct {
	AgreementID string `json:"AgreementID"`
	Amount      uint64 `json:"Amount"`
}

// WithdrawRevenueParams are the arguments of registry/withdrawRevenue.
type WithdrawRevenueParams struct {
	To     account.ID `json:"To"`
	Amount uint64     `json:"Amount"`
}

// NewRequest builds an operation envelope, marshaling params to JSON. A nil
// params builds a request for operations that take none.
func NewRequest(target, operation string, caller account.ID,
	params interface{}) (*protomux.Request, error) {

	req := &protomux.Request{
		Target:    target,
		Operation: operation,
		Caller:    caller,
	}

	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidParams, err.Error())
		}
		req.Params = data
	}

	return req, nil
}

// decode unmarshals a request's parameter payload into the operation's
// typed arguments.
func decode(raw json.RawMessage, into interface{}) error {
	if len(raw) == 0 {
		return errors.Wrap(ErrInvalidParams, "missing params")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return errors.Wrap(ErrInvalidParams, err.Error())
	}
	return nil
}

// decodeRole parses the role names in a RoleParams payload.
func decodeRole(name string) (state.Role, error) {
	role, err := state.RoleFromString(name)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidParams, err.Error())
	}
	return role, nil
}
