package node

import (
	"context"

	"github.com/rwaledger/pledge-core/internal/platform/state"
)

// ctxKey represents the type of value for the context key.
type ctxKey int

// KeyValues is how operation values are stored/retrieved.
const KeyValues ctxKey = 1

// Values represent state for each executed operation. The executor sets
// them before dispatch; Now never decreases between operations.
type Values struct {
	TraceID string
	Now     state.Timestamp
}

// ContextValues returns the operation values in the Context.
//
// Operations are always dispatched with values set, so a missing entry is a
// wiring bug and panics the same way a failed type assertion would.
func ContextValues(ctx context.Context) *Values {
	return ctx.Value(KeyValues).(*Values)
}
