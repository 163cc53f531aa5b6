package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository/memory"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sentMail struct {
	To, Subject, Body string
}

type recordingNotifier struct {
	mu     sync.Mutex
	notes  map[primitive.ObjectID][]string
	mails  []sentMail
	events []models.OrderStatusEvent
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{notes: map[primitive.ObjectID][]string{}}
}

func (n *recordingNotifier) Notify(userID primitive.ObjectID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes[userID] = append(n.notes[userID], message)
}

func (n *recordingNotifier) Email(to, subject, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mails = append(n.mails, sentMail{To: to, Subject: subject, Body: body})
}

func (n *recordingNotifier) OrderStatusChanged(event models.OrderStatusEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) notesFor(id primitive.ObjectID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notes[id]...)
}

func (n *recordingNotifier) mailsWithSubject(subject string) []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMail
	for _, m := range n.mails {
		if m.Subject == subject {
			out = append(out, m)
		}
	}
	return out
}

type stubTokens struct{}

func (stubTokens) Issue(u *models.User) (string, error) { return "token-" + u.ID.Hex(), nil }

type testEnv struct {
	svc      *Services
	store    *memory.Store
	notifier *recordingNotifier
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    memory.NewStore(),
		notifier: newRecordingNotifier(),
		now:      time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
	env.svc = New(Deps{
		Repos: Repositories{
			Users:         env.store.Users(),
			Shops:         env.store.Shops(),
			Products:      env.store.Products(),
			Orders:        env.store.Orders(),
			Reviews:       env.store.Reviews(),
			Coupons:       env.store.Coupons(),
			Carts:         env.store.Carts(),
			Notifications: env.store.Notifications(),
			Categories:    env.store.Categories(),
			Audit:         env.store,
		},
		Notifier: env.notifier,
		Tokens:   stubTokens{},
		Options: Options{
			LowStockThreshold: 5,
			CancelWindow:      24 * time.Hour,
			AdminEmails:       []string{"admin@souk.dz"},
		},
		Now: func() time.Time { return env.now },
	})
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()
	sess, err := e.svc.Users.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    name + "@souk.dz",
		Password: "secret123",
	})
	require.NoError(t, err)
	return sess.User
}

func (e *testEnv) admin(t *testing.T) *models.User {
	t.Helper()
	sess, err := e.svc.Users.Register(context.Background(), RegisterInput{
		Name:     "admin",
		Email:    "admin@souk.dz",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.True(t, sess.User.IsAdmin())
	return sess.User
}

// approvedShop creates a shop for owner and approves it through the admin path.
func (e *testEnv) approvedShop(t *testing.T, owner *models.User, name string) *models.Shop {
	t.Helper()
	ctx := context.Background()
	shop, err := e.svc.Shops.Create(ctx, owner, CreateShopInput{Name: name, Wilaya: "Alger"})
	require.NoError(t, err)
	require.NoError(t, e.store.Shops().SetStatus(ctx, shop.ID, models.ShopApproved))
	shop, err = e.svc.Shops.Get(ctx, shop.ID)
	require.NoError(t, err)
	return shop
}

func (e *testEnv) product(t *testing.T, owner *models.User, shop *models.Shop, name string, price float64, stock int) *models.Product {
	t.Helper()
	p, err := e.svc.Products.Create(context.Background(), owner, ProductInput{
		ShopID: shop.ID,
		Name:   name,
		Price:  price,
		Stock:  stock,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) stockOf(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := e.store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (e *testEnv) orderCountOf(t *testing.T, id primitive.ObjectID) int64 {
	t.Helper()
	p, err := e.store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.OrderCount
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}
