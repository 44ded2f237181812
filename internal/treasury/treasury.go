package treasury

import (
	"context"

	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/state"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

var (
	// ErrInsufficientRevenue occurs when a withdrawal asks for more than the
	// accrued spread revenue.
	ErrInsufficientRevenue = errors.New("Revenue insufficient")
)

// Retrieve gets the treasury totals from the database. A fresh zero treasury
// is returned when nothing has been recorded yet.
func Retrieve(ctx context.Context, dbConn *db.DB, now state.Timestamp) (*state.Treasury, error) {
	ctx, span := trace.StartSpan(ctx, "internal.treasury.Retrieve")
	defer span.End()

	t, err := Fetch(ctx, dbConn)
	if err == nil {
		return t, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	t = &state.Treasury{
		CreatedAt: now,
		UpdatedAt: now,
	}
	return t, nil
}

// RecordClientPayment adds a stable payment made to a client.
func RecordClientPayment(t *state.Treasury, amount uint64, now state.Timestamp) {
	t.TotalClientPayments += amount
	t.UpdatedAt = now
}

// RecordInvestorPayment adds a stable payment received from an investor
// purchase.
func RecordInvestorPayment(t *state.Treasury, amount uint64, now state.Timestamp) {
	t.TotalInvestorPayments += amount
	t.UpdatedAt = now
}

// AccrueRevenue adds the spread retained from an investor purchase.
func AccrueRevenue(t *state.Treasury, amount uint64, now state.Timestamp) {
	t.Revenue += amount
	t.UpdatedAt = now
}

// WithdrawRevenue removes accrued revenue. The caller moves the matching
// stable funds.
func WithdrawRevenue(t *state.Treasury, amount uint64, now state.Timestamp) error {
	if t.Revenue < amount {
		return ErrInsufficientRevenue
	}

	t.Revenue -= amount
	t.UpdatedAt = now
	return nil
}
