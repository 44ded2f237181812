package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rwaledger/pledge-core/internal/assetledger"
	"github.com/rwaledger/pledge-core/internal/platform/logger"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/platform/protomux"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/internal/registry"

	"github.com/google/uuid"
	"go.opencensus.io/trace"
)

// Executor is the transaction boundary of the platform. Every state-mutating
// operation enters through Execute, which applies them one at a time in a
// total order and stamps each with a unique transaction reference and a
// non-decreasing timestamp.
type Executor struct {
	mux *protomux.ProtoMux

	mu   sync.Mutex
	last uint64
}

// New returns an executor with every ledger and registry operation routed.
func New(ledger *assetledger.Ledger, reg *registry.Registry) *Executor {
	e := &Executor{
		mux: protomux.New(),
	}
	e.routes(ledger, reg)
	return e
}

// Receipt confirms a committed operation.
type Receipt struct {
	TxRef     string          `json:"TxRef"`
	Target    string          `json:"Target"`
	Operation string          `json:"Operation"`
	Committed state.Timestamp `json:"Committed"`
}

// Rejection reports a failed operation: the classified reject code and the
// failing cause's message, which names the offending identifier. Nothing was
// committed.
type Rejection struct {
	Code    Code   `json:"Code"`
	Message string `json:"Message"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s : %s", r.Code, r.Message)
}

// Execute runs one operation to completion. The operation either commits
// fully and returns a receipt, or reverts fully and returns a *Rejection.
func (e *Executor) Execute(ctx context.Context, req *protomux.Request) (*Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := trace.StartSpan(ctx, "internal.executor.Execute")
	defer span.End()

	txRef := uuid.New().String()
	now := e.tick()

	ctx = logger.ContextWithTxRef(ctx, txRef)
	ctx = context.WithValue(ctx, node.KeyValues, &node.Values{
		TraceID: txRef,
		Now:     now,
	})

	node.Log(ctx, "Executing %s/%s for %s", req.Target, req.Operation, req.Caller)

	if err := e.mux.Trigger(ctx, req); err != nil {
		rejection := &Rejection{
			Code:    Classify(err),
			Message: err.Error(),
		}
		node.LogWarn(ctx, "Operation rejected : %s", rejection)
		return nil, rejection
	}

	return &Receipt{
		TxRef:     txRef,
		Target:    req.Target,
		Operation: req.Operation,
		Committed: now,
	}, nil
}

// tick returns the next operation timestamp. Wall time drives it, clamped so
// timestamps never repeat or run backwards between operations.
func (e *Executor) tick() state.Timestamp {
	now := uint64(time.Now().UnixNano())
	if now <= e.last {
		now = e.last + 1
	}
	e.last = now
	return state.NewTimestamp(now)
}
