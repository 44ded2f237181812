package agreement

import (
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"
)

// NewAgreement defines what we require when creating a pledge agreement.
type NewAgreement struct {
	AgreementID     string      `json:"AgreementID"`
	Client          account.ID  `json:"Client"`
	AssetID         string      `json:"AssetID"`
	AssetType       string      `json:"AssetType"`
	Description     string      `json:"Description"`
	OriginalValue   state.Value `json:"OriginalValue"`
	DiscountedValue state.Value `json:"DiscountedValue"`
	TokensIssued    uint64      `json:"TokensIssued"`
	DocumentHash    string      `json:"DocumentHash"`
}

// UpdateAgreement defines what information may be provided to modify an
// existing agreement. Only non-nil fields are applied.
type UpdateAgreement struct {
	Status        *state.Status `json:"Status,omitempty"`
	ClientPayment *uint64       `json:"ClientPayment,omitempty"`
}
