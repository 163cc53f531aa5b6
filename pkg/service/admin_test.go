package service

import (
	"context"
	"testing"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(userID primitive.ObjectID, message string) {
	m.Called(userID, message)
}

func (m *mockNotifier) Email(to, subject, body string) {
	m.Called(to, subject, body)
}

func (m *mockNotifier) OrderStatusChanged(event models.OrderStatusEvent) {
	m.Called(event)
}

func TestAdminService_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "plain")

	_, err := env.svc.Admin.ListShops(ctx, u, "")
	requireKind(t, err, KindForbidden)
	_, err = env.svc.Admin.ListUsers(ctx, u)
	requireKind(t, err, KindForbidden)
	_, err = env.svc.Admin.Analytics(ctx, u)
	requireKind(t, err, KindForbidden)
	requireKind(t, env.svc.Admin.DeleteUser(ctx, u, u.ID), KindForbidden)
}

func TestAdminService_ApproveShop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, owner := env.admin(t), env.user(t, "owner")

	notifier := &mockNotifier{}
	env.svc.Admin.deps.Notifier = notifier

	shop, err := env.svc.Shops.Create(ctx, owner, CreateShopInput{Name: "Caftan"})
	require.NoError(t, err)

	pending, err := env.svc.Admin.ListShops(ctx, admin, models.ShopPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	notifier.On("Notify", owner.ID, "Your shop Caftan was approved").Once()
	approved, err := env.svc.Admin.ApproveShop(ctx, admin, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ShopApproved, approved.Status)
	notifier.AssertExpectations(t)

	listed, err := env.svc.Shops.List(ctx, models.ShopFilter{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	logs, err := env.svc.Admin.AuditLogs(ctx, admin, shop.ID.Hex())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "shop.approve", logs[0].Action)
	assert.Equal(t, admin.ID.Hex(), logs[0].ActorID)

	_, err = env.svc.Admin.ApproveShop(ctx, admin, primitive.NewObjectID())
	requireKind(t, err, KindNotFound)
}

func TestAdminService_DeleteShopCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, owner := env.admin(t), env.user(t, "owner")
	shop := env.approvedShop(t, owner, "Main")
	other := env.approvedShop(t, owner, "Other")
	p := env.product(t, owner, shop, "A", 1, 1)
	kept := env.product(t, owner, other, "B", 1, 1)

	require.NoError(t, env.svc.Admin.DeleteShop(ctx, admin, shop.ID))

	_, err := env.svc.Shops.Get(ctx, shop.ID)
	requireKind(t, err, KindNotFound)
	_, err = env.svc.Products.Get(ctx, p.ID)
	requireKind(t, err, KindNotFound)
	_, err = env.svc.Products.Get(ctx, kept.ID)
	require.NoError(t, err)

	requireKind(t, env.svc.Admin.DeleteShop(ctx, admin, shop.ID), KindNotFound)
}

func TestAdminService_DeleteUserCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, owner, buyer := env.admin(t), env.user(t, "owner"), env.user(t, "buyer")
	shop := env.approvedShop(t, owner, "Main")
	p := env.product(t, owner, shop, "A", 10, 5)
	order, err := env.svc.Orders.Create(ctx, buyer, CreateOrderInput{ShopID: shop.ID, Lines: []OrderLineInput{{ProductID: p.ID, Quantity: 1}}})
	require.NoError(t, err)

	requireKind(t, env.svc.Admin.DeleteUser(ctx, admin, admin.ID), KindValidation)
	require.NoError(t, env.svc.Admin.DeleteUser(ctx, admin, owner.ID))

	_, err = env.svc.Users.Get(ctx, owner.ID)
	requireKind(t, err, KindNotFound)
	_, err = env.svc.Shops.Get(ctx, shop.ID)
	requireKind(t, err, KindNotFound)
	_, err = env.svc.Products.Get(ctx, p.ID)
	requireKind(t, err, KindNotFound)

	// the buyer keeps the order history
	got, err := env.svc.Orders.Get(ctx, buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	logs, err := env.svc.Admin.AuditLogs(ctx, admin, owner.ID.Hex())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "user.delete", logs[0].Action)
}

func TestAdminService_SetRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, u := env.admin(t), env.user(t, "helper")

	_, err := env.svc.Admin.SetRole(ctx, admin, u.ID, "superuser")
	requireKind(t, err, KindValidation)
	_, err = env.svc.Admin.SetRole(ctx, admin, admin.ID, models.RoleBuyer)
	requireKind(t, err, KindValidation)

	got, err := env.svc.Admin.SetRole(ctx, admin, u.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())

	users, err := env.svc.Admin.ListUsers(ctx, got)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAdminService_Analytics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, buyer := env.admin(t), env.user(t, "buyer")
	bigOwner, smallOwner := env.user(t, "big"), env.user(t, "small")
	big := env.approvedShop(t, bigOwner, "Big")
	small := env.approvedShop(t, smallOwner, "Small")
	bp := env.product(t, bigOwner, big, "A", 100, 10)
	sp := env.product(t, smallOwner, small, "B", 10, 10)

	order := func(shop *models.Shop, p *models.Product, qty int) *models.Order {
		o, err := env.svc.Orders.Create(ctx, buyer, CreateOrderInput{ShopID: shop.ID, Lines: []OrderLineInput{{ProductID: p.ID, Quantity: qty}}})
		require.NoError(t, err)
		return o
	}
	order(big, bp, 2)
	order(small, sp, 1)
	order(small, sp, 1)
	cancelled := order(big, bp, 5)
	_, err := env.svc.Orders.Cancel(ctx, buyer, cancelled.ID)
	require.NoError(t, err)

	stats, err := env.svc.Admin.Analytics(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 220.0, stats.TotalSales)
	assert.Equal(t, int64(3), stats.OrderCount)
	require.Len(t, stats.TopShops, 2)
	assert.Equal(t, "Big", stats.TopShops[0].Name)
	assert.Equal(t, 200.0, stats.TopShops[0].TotalSales)
	assert.Equal(t, "Small", stats.TopShops[1].Name)
	assert.Equal(t, int64(2), stats.TopShops[1].OrderCount)
}
