package asset

import (
	"context"

	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/platform/state"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

var (
	// ErrNotFound abstracts the standard not found error.
	ErrNotFound = errors.New("Asset not found")

	// ErrInactive occurs when redemptions are recorded against an asset that
	// has already been released.
	ErrInactive = errors.New("Asset not active")
)

// Retrieve gets the specified asset from the database.
func Retrieve(ctx context.Context, dbConn *db.DB, assetID string) (*state.Asset, error) {
	ctx, span := trace.StartSpan(ctx, "internal.asset.Retrieve")
	defer span.End()

	a, err := Fetch(ctx, dbConn, assetID)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// Create the asset
func Create(ctx context.Context, dbConn *db.DB, nu *NewAsset, index uint64,
	now state.Timestamp) error {

	ctx, span := trace.StartSpan(ctx, "internal.asset.Create")
	defer span.End()

	var a state.Asset

	err := node.Convert(ctx, &nu, &a)
	if err != nil {
		return err
	}

	a.Index = index
	a.Active = true
	a.PledgedAt = now
	a.CreatedAt = now
	a.UpdatedAt = now

	Save(ctx, &a)
	return nil
}

// Update the asset
func Update(ctx context.Context, dbConn *db.DB, assetID string, upd *UpdateAsset,
	now state.Timestamp) error {

	ctx, span := trace.StartSpan(ctx, "internal.asset.Update")
	defer span.End()

	a, err := Fetch(ctx, dbConn, assetID)
	if err != nil {
		return ErrNotFound
	}

	if upd.TokensRedeemed != nil {
		a.TokensRedeemed = *upd.TokensRedeemed
	}
	if upd.Active != nil {
		a.Active = *upd.Active
	}

	a.UpdatedAt = now

	Save(ctx, a)
	return nil
}
