package events

import (
	"context"
	"time"

	"github.com/rwaledger/pledge-core/internal/platform/node"
)

// Type names a core operation whose committed effects an event records.
type Type string

const (
	TypeAssetRegistered   Type = "ASSET_REGISTERED"
	TypeAssetReleased     Type = "ASSET_RELEASED"
	TypeTokensTransferred Type = "TOKENS_TRANSFERRED"
	TypeAllowanceSet      Type = "ALLOWANCE_SET"
	TypeDiscountRateSet   Type = "DISCOUNT_RATE_SET"
	TypeLedgerPaused      Type = "LEDGER_PAUSED"
	TypeLedgerUnpaused    Type = "LEDGER_UNPAUSED"
	TypeLedgerRoleGranted Type = "LEDGER_ROLE_GRANTED"
	TypeLedgerRoleRevoked Type = "LEDGER_ROLE_REVOKED"

	TypePledgeCreated       Type = "PLEDGE_CREATED"
	TypeClientPaid          Type = "CLIENT_PAID"
	TypeTokensPurchased     Type = "TOKENS_PURCHASED"
	TypePledgeRepaid        Type = "PLEDGE_REPAID"
	TypeSpreadRateSet       Type = "SPREAD_RATE_SET"
	TypeRevenueWithdrawn    Type = "REVENUE_WITHDRAWN"
	TypeRegistryPaused      Type = "REGISTRY_PAUSED"
	TypeRegistryUnpaused    Type = "REGISTRY_UNPAUSED"
	TypeRegistryRoleGranted Type = "REGISTRY_ROLE_GRANTED"
	TypeRegistryRoleRevoked Type = "REGISTRY_ROLE_REVOKED"
)

// Event records the committed effects of one core operation. Amount fields
// are zero when they don't apply to the operation type.
type Event struct {
	ID            string    `db:"id" json:"ID"`
	Type          Type      `db:"event_type" json:"Type"`
	TxRef         string    `db:"tx_ref" json:"TxRef"`
	AgreementID   string    `db:"agreement_id" json:"AgreementID,omitempty"`
	AssetID       string    `db:"asset_id" json:"AssetID,omitempty"`
	PurchaseID    string    `db:"purchase_id" json:"PurchaseID,omitempty"`
	Actor         string    `db:"actor" json:"Actor,omitempty"`
	Counterparty  string    `db:"counterparty" json:"Counterparty,omitempty"`
	TokenAmount   uint64    `db:"token_amount" json:"TokenAmount,omitempty"`
	StableAmount  uint64    `db:"stable_amount" json:"StableAmount,omitempty"`
	OriginalValue string    `db:"original_value" json:"OriginalValue,omitempty"`
	PledgedValue  string    `db:"pledged_value" json:"PledgedValue,omitempty"`
	Detail        string    `db:"detail" json:"Detail,omitempty"`
	OccurredAt    time.Time `db:"occurred_at" json:"OccurredAt"`
}

// Sink receives events after an operation commits. Sinks are for durable
// logging only; the core never blocks on one and never retries a write.
type Sink interface {
	Write(ctx context.Context, e *Event) error
	Close() error
}

// LogSink writes events to the context logger. It stands in when no Postgres
// DSN is configured.
type LogSink struct{}

func (s *LogSink) Write(ctx context.Context, e *Event) error {
	node.Log(ctx, "Event %s : agreement %q asset %q tokens %d stable %d",
		e.Type, e.AgreementID, e.AssetID, e.TokenAmount, e.StableAmount)
	return nil
}

func (s *LogSink) Close() error {
	return nil
}
