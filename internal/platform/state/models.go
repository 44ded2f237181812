package state

import (
	"strings"

	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
)

// Role is a bit mask of the permissions an account holds on a component.
type Role uint32

const (
	// RoleAdmin can change rates, grant and revoke roles, and pause.
	RoleAdmin Role = 1 << iota

	// RoleRegistrar can register and release assets on the ledger. Held by
	// the pledge registry's own account.
	RoleRegistrar

	// RoleOperator can create pledges.
	RoleOperator

	// RoleFinance can pay clients, take repayments and withdraw revenue.
	RoleFinance

	// RolePauser can pause and unpause the ledger.
	RolePauser
)

var roleNames = []struct {
	role Role
	name string
}{
	{RoleAdmin, "ADMIN"},
	{RoleRegistrar, "REGISTRAR"},
	{RoleOperator, "OPERATOR"},
	{RoleFinance, "FINANCE"},
	{RolePauser, "PAUSER"},
}

// Has returns true when all bits of other are present.
func (r Role) Has(other Role) bool {
	return r&other == other
}

// String returns the pipe separated names of the roles in the mask.
func (r Role) String() string {
	names := make([]string, 0, len(roleNames))
	for _, entry := range roleNames {
		if r.Has(entry.role) {
			names = append(names, entry.name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// RoleFromString parses a single role name used at the request boundary.
func RoleFromString(s string) (Role, error) {
	for _, entry := range roleNames {
		if strings.EqualFold(s, entry.name) {
			return entry.role, nil
		}
	}
	return 0, errors.Errorf("Unknown role : %s", s)
}

// Status is the lifecycle state of a pledge agreement.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusActive  Status = "ACTIVE"
	StatusRepaid  Status = "REPAID"

	// DEFAULTED and RELEASED are declared for future liquidation flows. No
	// operation transitions into them yet.
	StatusDefaulted Status = "DEFAULTED"
	StatusReleased  Status = "RELEASED"
)

// Asset is one pledged asset record backing issued tokens. Records are
// append only; after registration only Active, TokensRedeemed and UpdatedAt
// change.
type Asset struct {
	Index          uint64     `json:"Index,omitempty"`
	AssetID        string     `json:"AssetID,omitempty"`
	AssetType      string     `json:"AssetType,omitempty"`
	Description    string     `json:"Description,omitempty"`
	OriginalValue  Value      `json:"OriginalValue,omitempty"`
	PledgedValue   Value      `json:"PledgedValue,omitempty"`
	TokensIssued   uint64     `json:"TokensIssued,omitempty"`
	TokensRedeemed uint64     `json:"TokensRedeemed,omitempty"`
	Pledger        account.ID `json:"Pledger,omitempty"`
	Active         bool       `json:"Active,omitempty"`
	PledgedAt      Timestamp  `json:"PledgedAt,omitempty"`
	CreatedAt      Timestamp  `json:"CreatedAt,omitempty"`
	UpdatedAt      Timestamp  `json:"UpdatedAt,omitempty"`
}

// Holding is one account's token balance and transfer allowances.
type Holding struct {
	Address    account.ID            `json:"Address,omitempty"`
	Balance    uint64                `json:"Balance,omitempty"`
	Allowances map[account.ID]uint64 `json:"Allowances,omitempty"`
	CreatedAt  Timestamp             `json:"CreatedAt,omitempty"`
	UpdatedAt  Timestamp             `json:"UpdatedAt,omitempty"`
}

// Agreement is one pledge deal between a client and the platform.
//
// ClientPayment is fixed at creation from the spread in effect at the time.
// Later spread changes never alter it.
type Agreement struct {
	AgreementID     string      `json:"AgreementID,omitempty"`
	Client          account.ID  `json:"Client,omitempty"`
	AssetID         string      `json:"AssetID,omitempty"`
	AssetType       string      `json:"AssetType,omitempty"`
	Description     string      `json:"Description,omitempty"`
	OriginalValue   Value       `json:"OriginalValue,omitempty"`
	DiscountedValue Value       `json:"DiscountedValue,omitempty"`
	TokensIssued    uint64      `json:"TokensIssued,omitempty"`
	ClientPayment   uint64      `json:"ClientPayment,omitempty"` // 6 decimal stable units
	Status          Status      `json:"Status,omitempty"`
	DocumentHash    string      `json:"DocumentHash,omitempty"`
	Purchases       []*Purchase `json:"Purchases,omitempty"`
	CreatedAt       Timestamp   `json:"CreatedAt,omitempty"`
	UpdatedAt       Timestamp   `json:"UpdatedAt,omitempty"`
}

// IsActive returns true while the agreement accepts payouts, purchases and
// repayment.
func (a *Agreement) IsActive() bool {
	return a.Status == StatusActive
}

// Purchase is one investor token sale event under an agreement.
type Purchase struct {
	PurchaseID  string     `json:"PurchaseID,omitempty"`
	AgreementID string     `json:"AgreementID,omitempty"`
	Investor    account.ID `json:"Investor,omitempty"`
	TokenAmount uint64     `json:"TokenAmount,omitempty"`
	StablePaid  uint64     `json:"StablePaid,omitempty"` // 6 decimal stable units
	CreatedAt   Timestamp  `json:"CreatedAt,omitempty"`
}

// AgreementIndex is the ordered list of agreement ids tied to one account,
// as client or as investor.
type AgreementIndex struct {
	Address      account.ID `json:"Address,omitempty"`
	AgreementIDs []string   `json:"AgreementIDs,omitempty"`
	UpdatedAt    Timestamp  `json:"UpdatedAt,omitempty"`
}

// Contains returns true when the id is already in the index.
func (i *AgreementIndex) Contains(agreementID string) bool {
	for _, id := range i.AgreementIDs {
		if id == agreementID {
			return true
		}
	}
	return false
}

// Ledger is the asset ledger component's root state.
type Ledger struct {
	DiscountRate      uint32              `json:"DiscountRate,omitempty"`
	NextIndex         uint64              `json:"NextIndex,omitempty"`
	TotalSupply       uint64              `json:"TotalSupply,omitempty"`
	TotalPledgedValue Value               `json:"TotalPledgedValue,omitempty"`
	Paused            bool                `json:"Paused,omitempty"`
	Roles             map[account.ID]Role `json:"Roles,omitempty"`
	CreatedAt         Timestamp           `json:"CreatedAt,omitempty"`
	UpdatedAt         Timestamp           `json:"UpdatedAt,omitempty"`
}

// HasRole returns true when the holder has been granted all bits of role.
func (l *Ledger) HasRole(holder account.ID, role Role) bool {
	return l.Roles[holder].Has(role)
}

// Registry is the pledge registry component's root state. Account is the
// registry's own identity, the beneficiary of minted tokens and the party
// to stable asset settlement.
type Registry struct {
	Account        account.ID          `json:"Account,omitempty"`
	SpreadRate     uint32              `json:"SpreadRate,omitempty"`
	Paused         bool                `json:"Paused,omitempty"`
	Roles          map[account.ID]Role `json:"Roles,omitempty"`
	AgreementCount uint64              `json:"AgreementCount,omitempty"`
	CreatedAt      Timestamp           `json:"CreatedAt,omitempty"`
	UpdatedAt      Timestamp           `json:"UpdatedAt,omitempty"`
}

// HasRole returns true when the holder has been granted all bits of role.
func (r *Registry) HasRole(holder account.ID, role Role) bool {
	return r.Roles[holder].Has(role)
}

// Treasury tracks the platform's stable asset flows. All amounts are 6
// decimal stable units. Revenue decreases only on withdrawal; the payment
// totals never decrease.
type Treasury struct {
	TotalClientPayments   uint64    `json:"TotalClientPayments,omitempty"`
	TotalInvestorPayments uint64    `json:"TotalInvestorPayments,omitempty"`
	Revenue               uint64    `json:"Revenue,omitempty"`
	CreatedAt             Timestamp `json:"CreatedAt,omitempty"`
	UpdatedAt             Timestamp `json:"UpdatedAt,omitempty"`
}

// FinancialSummary is the platform's aggregate money position.
type FinancialSummary struct {
	TotalClientPayments   uint64 `json:"TotalClientPayments"`
	TotalInvestorPayments uint64 `json:"TotalInvestorPayments"`
	Revenue               uint64 `json:"Revenue"`
	Agreements            uint64 `json:"Agreements"`
}
