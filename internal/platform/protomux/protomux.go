package protomux

import (
	"context"
	"encoding/json"

	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
)

// Targets name the components requests are addressed to.
const (
	// TargetLedger is the asset token ledger.
	TargetLedger = "ledger"

	// TargetRegistry is the pledge registry.
	TargetRegistry = "registry"
)

// ErrRouteNotFound occurs when no handler is registered for a request's
// target and operation.
var ErrRouteNotFound = errors.New("Route not found")

// Request is the envelope submitted for execution: a target component, an
// operation name, the attested caller identity and the operation parameters.
type Request struct {
	Target    string          `json:"Target"`
	Operation string          `json:"Operation"`
	Caller    account.ID      `json:"Caller"`
	Params    json.RawMessage `json:"Params,omitempty"`
}

// A HandlerFunc executes one operation against its component.
type HandlerFunc func(ctx context.Context, req *Request) error

// ProtoMux routes operation requests to their handlers, keyed by target and
// operation name.
type ProtoMux struct {
	handlers map[string]map[string]HandlerFunc
}

func New() *ProtoMux {
	return &ProtoMux{
		handlers: make(map[string]map[string]HandlerFunc),
	}
}

// Handle registers the handler for a target and operation. Routes are wired
// once at startup, so a duplicate registration panics.
func (p *ProtoMux) Handle(target, operation string, handler HandlerFunc) {
	group, exists := p.handlers[target]
	if !exists {
		group = make(map[string]HandlerFunc)
		p.handlers[target] = group
	}

	if _, exists := group[operation]; exists {
		panic("Duplicate route " + target + "/" + operation)
	}
	group[operation] = handler
}

// Trigger dispatches a request to its handler.
func (p *ProtoMux) Trigger(ctx context.Context, req *Request) error {
	group, exists := p.handlers[req.Target]
	if !exists {
		return errors.Wrap(ErrRouteNotFound, req.Target)
	}

	handler, exists := group[req.Operation]
	if !exists {
		return errors.Wrap(ErrRouteNotFound, req.Target+"/"+req.Operation)
	}

	return handler(ctx, req)
}
