package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.uber.org/zap"
)

// OrderStatusChannel is the pub/sub channel order status events travel on.
const OrderStatusChannel = "order-status"

const subscriberBuffer = 16

// Broadcaster fans order status events out to live subscribers.
type Broadcaster interface {
	Publish(ctx context.Context, event models.OrderStatusEvent) error
	// Subscribe delivers events until ctx is done or cancel is called.
	Subscribe(ctx context.Context) (<-chan models.OrderStatusEvent, func())
}

// PubSub is the subset of the Redis repository the broadcaster needs.
type PubSub interface {
	PublishJSON(ctx context.Context, channel string, value interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func())
}

// RedisBroadcaster shares events between every API instance through Redis.
type RedisBroadcaster struct {
	ps  PubSub
	log *zap.Logger
}

func NewRedisBroadcaster(ps PubSub, logger *zap.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{ps: ps, log: logger.Named("broadcast")}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, event models.OrderStatusEvent) error {
	return b.ps.PublishJSON(ctx, OrderStatusChannel, event)
}

func (b *RedisBroadcaster) Subscribe(ctx context.Context) (<-chan models.OrderStatusEvent, func()) {
	raw, cancel := b.ps.Subscribe(ctx, OrderStatusChannel)
	out := make(chan models.OrderStatusEvent, subscriberBuffer)
	stop := make(chan struct{})

	go func() {
		defer close(out)
		for data := range raw {
			event, ok := decodeEvent(b.log, data)
			if !ok {
				continue
			}
			select {
			case out <- event:
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(stop)
			cancel()
		})
	}
}

func decodeEvent(log *zap.Logger, data []byte) (models.OrderStatusEvent, bool) {
	var event models.OrderStatusEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.Warn("Dropping malformed order status event", zap.Error(err))
		return event, false
	}
	return event, true
}

// Hub is the in-process broadcaster used when Redis is not configured. Events
// reach only subscribers of this instance.
type Hub struct {
	mu   sync.Mutex
	subs map[chan models.OrderStatusEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan models.OrderStatusEvent]struct{})}
}

func (h *Hub) Publish(_ context.Context, event models.OrderStatusEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			// slow subscriber, drop
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context) (<-chan models.OrderStatusEvent, func()) {
	ch := make(chan models.OrderStatusEvent, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel
}
