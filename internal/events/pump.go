package events

import (
	"context"
	"sync"

	"github.com/rwaledger/pledge-core/internal/platform/logger"
	"github.com/rwaledger/pledge-core/internal/platform/node"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Pump queues events for a background sink writer without ever blocking the
// operation that produced them. A nil pump drops everything, so components
// push unconditionally.
type Pump struct {
	Channel chan *Event

	lock sync.Mutex
	open bool
}

// Push stamps the event with an id and the transaction reference from the
// context, then queues it. When the queue is full the event is dropped with
// a warning rather than stalling the committed operation.
func (p *Pump) Push(ctx context.Context, e *Event) {
	if p == nil {
		return
	}

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.TxRef == "" {
		e.TxRef = logger.TxRefFromContext(ctx)
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if !p.open {
		return
	}

	select {
	case p.Channel <- e:
	default:
		node.LogWarn(ctx, "Event queue full : dropping %s", e.Type)
	}
}

func (p *Pump) Open(count int) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.open {
		return errors.New("Pump already open")
	}

	p.Channel = make(chan *Event, count)
	p.open = true
	return nil
}

func (p *Pump) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !p.open {
		return errors.New("Pump closed")
	}

	close(p.Channel)
	p.open = false
	return nil
}

// ProcessEvents writes queued events to the sink until the pump is closed.
// Sink failures are logged and skipped; event delivery is best effort.
func ProcessEvents(ctx context.Context, sink Sink, p *Pump) error {
	for e := range p.Channel {
		if err := sink.Write(ctx, e); err != nil {
			node.LogError(ctx, "Failed to write %s event : %s", e.Type, err)
		}
	}

	return nil
}
