// Package notify delivers the side effects of domain operations: in-app
// notifications, mail and order status broadcasts. Everything goes through a
// single dispatcher actor so callers never wait on delivery.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	dispatcherName  = "notification-dispatcher"
	deliveryTimeout = 5 * time.Second
)

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

type Config struct {
	Notifications NotificationStore
	Mailer        Mailer
	Broadcaster   Broadcaster
	Logger        *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Messages
type notifyUser struct {
	UserID  primitive.ObjectID
	Message string
}

type sendMail struct {
	Mail Mail
}

type orderStatus struct {
	Event models.OrderStatusEvent
}

type flush struct{}

type flushed struct{}

type dispatchActor struct {
	cfg Config
	log *zap.Logger
}

func (a *dispatchActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *notifyUser:
		a.notify(msg)

	case *sendMail:
		a.mail(msg.Mail)

	case *orderStatus:
		a.broadcast(msg.Event)

	case *flush:
		ctx.Respond(&flushed{})

	case *actor.Started:
		a.log.Info("Notification dispatcher started")

	case *actor.Stopping:
		a.log.Info("Notification dispatcher stopping")

	case *actor.Stopped:
		a.log.Info("Notification dispatcher stopped")
	}
}

func (a *dispatchActor) notify(msg *notifyUser) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	n := &models.Notification{UserID: msg.UserID, Message: msg.Message, CreatedAt: a.cfg.Now()}
	if err := a.cfg.Notifications.Create(ctx, n); err != nil {
		a.log.Warn("Failed to store notification",
			zap.String("user_id", msg.UserID.Hex()),
			zap.Error(err))
	}
}

func (a *dispatchActor) mail(m Mail) {
	if m.To == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := a.cfg.Mailer.Send(ctx, m); err != nil {
		a.log.Warn("Failed to send mail",
			zap.String("to", m.To),
			zap.String("subject", m.Subject),
			zap.Error(err))
	}
}

func (a *dispatchActor) broadcast(event models.OrderStatusEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := a.cfg.Broadcaster.Publish(ctx, event); err != nil {
		a.log.Warn("Failed to broadcast order status",
			zap.String("order_id", event.OrderID),
			zap.String("status", string(event.Status)),
			zap.Error(err))
	}
}

// Dispatcher is the asynchronous Notifier handed to the services.
type Dispatcher struct {
	root *actor.RootContext
	pid  *actor.PID
}

func NewDispatcher(system *actor.ActorSystem, cfg Config) (*Dispatcher, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	log := cfg.Logger.Named("notify")

	props := actor.PropsFromProducer(func() actor.Actor {
		return &dispatchActor{cfg: cfg, log: log}
	})
	pid, err := system.Root.SpawnNamed(props, dispatcherName)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn notification dispatcher: %w", err)
	}
	return &Dispatcher{root: system.Root, pid: pid}, nil
}

func (d *Dispatcher) Notify(userID primitive.ObjectID, message string) {
	d.root.Send(d.pid, &notifyUser{UserID: userID, Message: message})
}

func (d *Dispatcher) Email(to, subject, body string) {
	d.root.Send(d.pid, &sendMail{Mail: Mail{To: to, Subject: subject, Body: body}})
}

func (d *Dispatcher) OrderStatusChanged(event models.OrderStatusEvent) {
	d.root.Send(d.pid, &orderStatus{Event: event})
}

// Flush waits until every message sent before the call has been handled.
func (d *Dispatcher) Flush(timeout time.Duration) error {
	_, err := d.root.RequestFuture(d.pid, &flush{}, timeout).Result()
	return err
}

// Stop drains the mailbox and stops the actor.
func (d *Dispatcher) Stop() error {
	return d.root.PoisonFuture(d.pid).Wait()
}
