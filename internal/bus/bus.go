package bus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"go.uber.org/zap"
)

// ErrTimeout is returned by WaitForMessage when no matching message arrives
// before the deadline.
var ErrTimeout = errors.New("bus: wait for message timed out")

// Handler receives one delivered message. Handlers run on the publisher's
// goroutine and must hand expensive work to their own queue.
type Handler func(msg types.AgentMessage)

// Predicate filters messages for WaitForMessage. A nil predicate matches all.
type Predicate func(msg types.AgentMessage) bool

type subscriber struct {
	owner types.AgentID
	fn    Handler
}

type waiter struct {
	pred Predicate
	ch   chan types.AgentMessage
	done bool
}

// MessageBus is the in-process broker every agent shares. Delivery is
// synchronous and in registration order; each handler call is isolated so a
// panicking subscriber cannot take down the publisher or starve the rest.
type MessageBus struct {
	mu       sync.Mutex
	capacity int
	history  []types.AgentMessage
	anySubs  []subscriber
	typeSubs map[types.MessageType][]subscriber
	direct   map[types.AgentID][]subscriber
	waiters  map[types.MessageType][]*waiter
	logger   *zap.Logger
}

func New(historyCapacity int, logger *zap.Logger) *MessageBus {
	if historyCapacity <= 0 {
		historyCapacity = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageBus{
		capacity: historyCapacity,
		typeSubs: make(map[types.MessageType][]subscriber),
		direct:   make(map[types.AgentID][]subscriber),
		waiters:  make(map[types.MessageType][]*waiter),
		logger:   logger.Named("bus"),
	}
}

// Subscribe registers a handler for one message type.
func (b *MessageBus) Subscribe(owner types.AgentID, t types.MessageType, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.typeSubs[t] = append(b.typeSubs[t], subscriber{owner: owner, fn: fn})
}

// SubscribeAll registers a handler for every published message.
func (b *MessageBus) SubscribeAll(owner types.AgentID, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.anySubs = append(b.anySubs, subscriber{owner: owner, fn: fn})
}

// SubscribeDirect registers the point-to-point channel for an agent identity.
func (b *MessageBus) SubscribeDirect(owner types.AgentID, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.direct[owner] = append(b.direct[owner], subscriber{owner: owner, fn: fn})
}

// Publish assigns id and timestamp, appends to bounded history and delivers
// synchronously: any-subscribers first, then type subscribers, then the
// direct channel when the message is addressed. Returns the sealed envelope.
func (b *MessageBus) Publish(from, to types.AgentID, payload types.Payload) types.AgentMessage {
	msg := types.AgentMessage{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		From:      from,
		To:        to,
		Type:      payload.MessageType(),
		Payload:   payload,
	}

	b.mu.Lock()
	b.history = append(b.history, msg)
	if len(b.history) > b.capacity {
		b.history = b.history[len(b.history)-b.capacity:]
	}

	targets := make([]subscriber, 0, len(b.anySubs)+len(b.typeSubs[msg.Type])+4)
	targets = append(targets, b.anySubs...)
	targets = append(targets, b.typeSubs[msg.Type]...)
	if to != types.Broadcast {
		targets = append(targets, b.direct[to]...)
	}

	var fired []*waiter
	pending := b.waiters[msg.Type][:0]
	for _, w := range b.waiters[msg.Type] {
		if !w.done && (w.pred == nil || w.pred(msg)) {
			w.done = true
			fired = append(fired, w)
			continue
		}
		if !w.done {
			pending = append(pending, w)
		}
	}
	b.waiters[msg.Type] = pending
	b.mu.Unlock()

	for _, sub := range targets {
		b.deliver(sub, msg)
	}
	for _, w := range fired {
		w.ch <- msg
	}

	return msg
}

// SendTo publishes a point-to-point message.
func (b *MessageBus) SendTo(from, to types.AgentID, payload types.Payload) types.AgentMessage {
	return b.Publish(from, to, payload)
}

// Broadcast publishes to the broadcast sentinel.
func (b *MessageBus) Broadcast(from types.AgentID, payload types.Payload) types.AgentMessage {
	return b.Publish(from, types.Broadcast, payload)
}

// deliver isolates one handler call so a panic is contained to the subscriber.
func (b *MessageBus) deliver(sub subscriber, msg types.AgentMessage) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				zap.String("owner", string(sub.owner)),
				zap.String("type", string(msg.Type)),
				zap.Any("panic", r))
		}
	}()
	sub.fn(msg)
}

// WaitForMessage blocks until the next message of type t satisfying pred
// arrives, or fails with ErrTimeout. The one-shot listener is removed on
// either outcome.
func (b *MessageBus) WaitForMessage(ctx context.Context, t types.MessageType, timeout time.Duration, pred Predicate) (types.AgentMessage, error) {
	w := &waiter{pred: pred, ch: make(chan types.AgentMessage, 1)}

	b.mu.Lock()
	b.waiters[t] = append(b.waiters[t], w)
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-w.ch:
		return msg, nil
	case <-timer.C:
		b.removeWaiter(t, w)
		return types.AgentMessage{}, ErrTimeout
	case <-ctx.Done():
		b.removeWaiter(t, w)
		return types.AgentMessage{}, ctx.Err()
	}
}

func (b *MessageBus) removeWaiter(t types.MessageType, w *waiter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w.done {
		// Publish already claimed this waiter; drain so the publisher
		// never blocks on the buffered send.
		select {
		case <-w.ch:
		default:
		}
		return
	}
	w.done = true
	list := b.waiters[t][:0]
	for _, x := range b.waiters[t] {
		if x != w {
			list = append(list, x)
		}
	}
	b.waiters[t] = list
}

// RecentMessages returns up to limit messages, most recent last. limit <= 0
// returns the whole retained history.
func (b *MessageBus) RecentMessages(limit int) []types.AgentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]types.AgentMessage, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}

func (b *MessageBus) MessagesByType(t types.MessageType) []types.AgentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []types.AgentMessage
	for _, msg := range b.history {
		if msg.Type == t {
			out = append(out, msg)
		}
	}
	return out
}

func (b *MessageBus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}
