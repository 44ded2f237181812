package asset

import (
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"
)

// NewAsset defines what we require when registering a pledged asset.
type NewAsset struct {
	AssetID       string      `json:"AssetID"`
	AssetType     string      `json:"AssetType"`
	Description   string      `json:"Description"`
	OriginalValue state.Value `json:"OriginalValue"`
	PledgedValue  state.Value `json:"PledgedValue"`
	TokensIssued  uint64      `json:"TokensIssued"`
	Pledger       account.ID  `json:"Pledger"`
}

// UpdateAsset defines what information may be provided to modify an existing
// asset. Only non-nil fields are applied.
type UpdateAsset struct {
	TokensRedeemed *uint64 `json:"TokensRedeemed,omitempty"`
	Active         *bool   `json:"Active,omitempty"`
}
