package registry

import (
	"context"

	"github.com/rwaledger/pledge-core/internal/agreement"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/internal/treasury"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// Agreement returns one agreement by its external id.
func (r *Registry) Agreement(ctx context.Context, agreementID string) (*state.Agreement, error) {
	ctx, span := trace.StartSpan(ctx, "internal.registry.Agreement")
	defer span.End()

	ag, err := agreement.Fetch(ctx, r.MasterDB, agreementID)
	if err != nil {
		if errors.Cause(err) == agreement.ErrNotFound {
			return nil, errors.Wrap(agreement.ErrNotFound, agreementID)
		}
		return nil, errors.Wrap(err, "Failed to fetch agreement")
	}

	return ag, nil
}

// Purchases returns the ordered purchase history of an agreement.
func (r *Registry) Purchases(ctx context.Context, agreementID string) ([]*state.Purchase, error) {
	ctx, span := trace.StartSpan(ctx, "internal.registry.Purchases")
	defer span.End()

	ag, err := r.Agreement(ctx, agreementID)
	if err != nil {
		return nil, err
	}

	return ag.Purchases, nil
}

// AgreementsByClient returns the ids of the agreements a client pledged.
func (r *Registry) AgreementsByClient(ctx context.Context, client account.ID) ([]string, error) {
	ctx, span := trace.StartSpan(ctx, "internal.registry.AgreementsByClient")
	defer span.End()

	v := node.ContextValues(ctx)

	index, err := agreement.GetIndex(ctx, r.MasterDB, agreement.IndexClient, client, v.Now)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get client index")
	}

	return index.AgreementIDs, nil
}

// AgreementsByInvestor returns the ids of the agreements an investor bought
// into.
func (r *Registry) AgreementsByInvestor(ctx context.Context, investor account.ID) ([]string, error) {
	ctx, span := trace.StartSpan(ctx, "internal.registry.AgreementsByInvestor")
	defer span.End()

	v := node.ContextValues(ctx)

	index, err := agreement.GetIndex(ctx, r.MasterDB, agreement.IndexInvestor, investor, v.Now)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get investor index")
	}

	return index.AgreementIDs, nil
}

// FinancialSummary returns the platform's aggregate money position.
func (r *Registry) FinancialSummary(ctx context.Context) (*state.FinancialSummary, error) {
	ctx, span := trace.StartSpan(ctx, "internal.registry.FinancialSummary")
	defer span.End()

	v := node.ContextValues(ctx)

	reg, err := Fetch(ctx, r.MasterDB)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to fetch registry")
	}

	tre, err := treasury.Retrieve(ctx, r.MasterDB, v.Now)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to retrieve treasury")
	}

	return &state.FinancialSummary{
		TotalClientPayments:   tre.TotalClientPayments,
		TotalInvestorPayments: tre.TotalInvestorPayments,
		Revenue:               tre.Revenue,
		Agreements:            reg.AgreementCount,
	}, nil
}
