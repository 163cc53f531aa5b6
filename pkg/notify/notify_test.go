package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository/memory"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, mail Mail) error {
	return m.Called(mail).Error(0)
}

func newDispatcher(t *testing.T, store NotificationStore, mailer Mailer, b Broadcaster) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(actor.NewActorSystem(), Config{
		Notifications: store,
		Mailer:        mailer,
		Broadcaster:   b,
		Logger:        zap.NewNop(),
		Now:           func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Stop() })
	return d
}

func TestDispatcher_StoresNotifications(t *testing.T) {
	store := memory.NewStore()
	d := newDispatcher(t, store.Notifications(), NewLogMailer(zap.NewNop()), NewHub())
	user := primitive.NewObjectID()

	d.Notify(user, "first")
	d.Notify(user, "second")
	require.NoError(t, d.Flush(time.Second))

	list, err := store.Notifications().ListByUser(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, n := range list {
		assert.False(t, n.Read)
		assert.Equal(t, 2024, n.CreatedAt.Year())
	}
}

func TestDispatcher_MailFailureIsSwallowed(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("Send", Mail{To: "a@souk.dz", Subject: "New order", Body: "x"}).Return(errors.New("smtp down")).Once()
	mailer.On("Send", Mail{To: "b@souk.dz", Subject: "New order", Body: "y"}).Return(nil).Once()

	d := newDispatcher(t, memory.NewStore().Notifications(), mailer, NewHub())
	d.Email("a@souk.dz", "New order", "x")
	d.Email("", "ignored", "no recipient")
	d.Email("b@souk.dz", "New order", "y")
	require.NoError(t, d.Flush(time.Second))

	mailer.AssertExpectations(t)
}

func TestDispatcher_BroadcastsOrderStatus(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _ := hub.Subscribe(ctx)

	d := newDispatcher(t, memory.NewStore().Notifications(), NewLogMailer(zap.NewNop()), hub)
	d.OrderStatusChanged(models.OrderStatusEvent{OrderID: "o1", Status: models.OrderShipped})

	select {
	case ev := <-events:
		assert.Equal(t, "o1", ev.OrderID)
		assert.Equal(t, models.OrderShipped, ev.Status)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestHub_CancelUnsubscribes(t *testing.T) {
	hub := NewHub()
	events, cancel := hub.Subscribe(context.Background())
	cancel()
	cancel()

	_, open := <-events
	assert.False(t, open)
	require.NoError(t, hub.Publish(context.Background(), models.OrderStatusEvent{OrderID: "o2"}))
}

func TestHub_ContextEndsSubscription(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	events, _ := hub.Subscribe(ctx)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, open := <-events:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

// fakePubSub loops published payloads back to every subscriber.
type fakePubSub struct {
	mu   sync.Mutex
	subs []chan []byte
}

func (f *fakePubSub) PublishJSON(_ context.Context, _ string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		ch <- data
	}
	return nil
}

func (f *fakePubSub) Subscribe(_ context.Context, _ string) (<-chan []byte, func()) {
	ch := make(chan []byte, 4)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch, func() { close(ch) }
}

func TestRedisBroadcaster_DecodesEvents(t *testing.T) {
	ps := &fakePubSub{}
	b := NewRedisBroadcaster(ps, zap.NewNop())
	events, cancel := b.Subscribe(context.Background())

	ps.subs[0] <- []byte("not json")
	require.NoError(t, b.Publish(context.Background(), models.OrderStatusEvent{OrderID: "o3", Status: models.OrderDelivered}))

	select {
	case ev := <-events:
		assert.Equal(t, "o3", ev.OrderID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, time.Second, 10*time.Millisecond)
}

// fakeNats hands published messages straight to the registered handlers.
type fakeNats struct {
	mu       sync.Mutex
	handlers []nats.MsgHandler
	subjects []string
}

func (f *fakeNats) Publish(subject string, data []byte) error {
	f.mu.Lock()
	f.subjects = append(f.subjects, subject)
	handlers := append([]nats.MsgHandler(nil), f.handlers...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(&nats.Msg{Subject: subject, Data: data})
	}
	return nil
}

func (f *fakeNats) Subscribe(_ string, cb nats.MsgHandler) (*nats.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, cb)
	return nil, nil
}

func TestNatsBroadcaster(t *testing.T) {
	conn := &fakeNats{}
	b := &NatsBroadcaster{nc: conn, log: zap.NewNop()}
	ctx, stop := context.WithCancel(context.Background())
	events, _ := b.Subscribe(ctx)

	conn.handlers[0](&nats.Msg{Data: []byte("{")})
	require.NoError(t, b.Publish(ctx, models.OrderStatusEvent{OrderID: "o4", Status: models.OrderShipped}))

	select {
	case ev := <-events:
		assert.Equal(t, "o4", ev.OrderID)
		assert.Equal(t, models.OrderShipped, ev.Status)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	assert.Equal(t, []string{OrderStatusSubject}, conn.subjects)

	stop()
	assert.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, time.Second, 10*time.Millisecond)

	// publishing after the subscriber left must not panic
	require.NoError(t, b.Publish(context.Background(), models.OrderStatusEvent{OrderID: "o5"}))
}
