package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// OrderStatusSubject is the NATS subject order status events are published on.
const OrderStatusSubject = "orders.status"

// natsConn is the part of *nats.Conn the broadcaster uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// NatsBroadcaster shares order status events through a NATS subject.
type NatsBroadcaster struct {
	nc    natsConn
	close func()
	log   *zap.Logger
}

// ConnectNats dials url, retrying a few times before giving up.
func ConnectNats(ctx context.Context, url string, logger *zap.Logger) (*NatsBroadcaster, error) {
	log := logger.Named("broadcast")

	var err error
	for i := 0; i < 3; i++ {
		var nc *nats.Conn
		nc, err = nats.Connect(url,
			nats.Name("soukstyle-api"),
			nats.MaxReconnects(5),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Warn("NATS disconnected", zap.Error(err))
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
			}),
		)
		if err == nil {
			log.Info("Connected to NATS", zap.String("url", url))
			return &NatsBroadcaster{nc: nc, close: nc.Close, log: log}, nil
		}

		log.Warn("Failed to connect to NATS", zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to NATS after retries: %w", err)
}

func (b *NatsBroadcaster) Publish(_ context.Context, event models.OrderStatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.nc.Publish(OrderStatusSubject, data)
}

func (b *NatsBroadcaster) Subscribe(ctx context.Context) (<-chan models.OrderStatusEvent, func()) {
	out := make(chan models.OrderStatusEvent, subscriberBuffer)

	var mu sync.Mutex
	closed := false
	sub, err := b.nc.Subscribe(OrderStatusSubject, func(msg *nats.Msg) {
		event, ok := decodeEvent(b.log, msg.Data)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- event:
		default:
		}
	})
	if err != nil {
		b.log.Error("Failed to subscribe to order status events", zap.Error(err))
	}

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if sub != nil {
				if err := sub.Unsubscribe(); err != nil {
					b.log.Warn("Failed to unsubscribe", zap.Error(err))
				}
			}
			mu.Lock()
			closed = true
			close(out)
			mu.Unlock()
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

	return out, cancel
}

func (b *NatsBroadcaster) Close() {
	if b.close != nil {
		b.close()
		b.log.Info("NATS connection closed")
	}
}
