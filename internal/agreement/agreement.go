package agreement

import (
	"context"

	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

var (
	// ErrNotFound abstracts the standard not found error.
	ErrNotFound = errors.New("Agreement not found")

	// ErrPurchaseNotFound occurs when a purchase reference points nowhere.
	ErrPurchaseNotFound = errors.New("Purchase not found")
)

// Retrieve gets the specified agreement from the database.
func Retrieve(ctx context.Context, dbConn *db.DB, agreementID string) (*state.Agreement, error) {
	ctx, span := trace.StartSpan(ctx, "internal.agreement.Retrieve")
	defer span.End()

	a, err := Fetch(ctx, dbConn, agreementID)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// Create the agreement. The client's agreement index is extended to include
// it.
func Create(ctx context.Context, dbConn *db.DB, nu *NewAgreement, now state.Timestamp) error {
	ctx, span := trace.StartSpan(ctx, "internal.agreement.Create")
	defer span.End()

	var a state.Agreement

	err := node.Convert(ctx, &nu, &a)
	if err != nil {
		return err
	}

	a.Status = state.StatusPending
	a.CreatedAt = now
	a.UpdatedAt = now

	index, err := GetIndex(ctx, dbConn, IndexClient, nu.Client, now)
	if err != nil {
		return errors.Wrap(err, "Failed to get client index")
	}
	index.AgreementIDs = append(index.AgreementIDs, a.AgreementID)
	index.UpdatedAt = now

	Save(ctx, &a)
	SaveIndex(ctx, IndexClient, index)
	return nil
}

// Update the agreement
func Update(ctx context.Context, dbConn *db.DB, agreementID string, upd *UpdateAgreement,
	now state.Timestamp) error {

	ctx, span := trace.StartSpan(ctx, "internal.agreement.Update")
	defer span.End()

	a, err := Fetch(ctx, dbConn, agreementID)
	if err != nil {
		return ErrNotFound
	}

	if upd.Status != nil {
		a.Status = *upd.Status
	}
	if upd.ClientPayment != nil {
		a.ClientPayment = *upd.ClientPayment
	}

	a.UpdatedAt = now

	Save(ctx, a)
	return nil
}

// AddPurchase appends a purchase to an agreement and records the reference
// used to find it by purchase ID.
func AddPurchase(ctx context.Context, dbConn *db.DB, agreementID string, p *state.Purchase,
	now state.Timestamp) error {

	ctx, span := trace.StartSpan(ctx, "internal.agreement.AddPurchase")
	defer span.End()

	a, err := Fetch(ctx, dbConn, agreementID)
	if err != nil {
		return ErrNotFound
	}

	record := *p
	record.AgreementID = agreementID
	a.Purchases = append(a.Purchases, &record)
	a.UpdatedAt = now

	Save(ctx, a)
	SaveReference(ctx, record.PurchaseID, agreementID)
	return nil
}

// RetrievePurchase resolves a purchase ID to the purchase record stored on
// its agreement.
func RetrievePurchase(ctx context.Context, dbConn *db.DB, purchaseID string) (*state.Purchase, error) {
	ctx, span := trace.StartSpan(ctx, "internal.agreement.RetrievePurchase")
	defer span.End()

	agreementID, err := FetchReference(ctx, dbConn, purchaseID)
	if err != nil {
		return nil, err
	}

	a, err := Fetch(ctx, dbConn, agreementID)
	if err != nil {
		return nil, ErrPurchaseNotFound
	}

	for _, p := range a.Purchases {
		if p.PurchaseID == purchaseID {
			return p, nil
		}
	}

	return nil, ErrPurchaseNotFound
}

// GetIndex returns one of an address's participation indexes. A fresh empty
// index is returned when the address has no agreements of that kind yet.
func GetIndex(ctx context.Context, dbConn *db.DB, kind IndexKind, address account.ID,
	now state.Timestamp) (*state.AgreementIndex, error) {

	result, err := FetchIndex(ctx, dbConn, kind, address)
	if err == nil {
		return result, nil
	}
	if err != ErrNotFound {
		return result, err
	}

	result = &state.AgreementIndex{
		Address:   address,
		UpdatedAt: now,
	}
	return result, nil
}
