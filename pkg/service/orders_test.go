package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOrderService_CreateTakesStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	shop := env.approvedShop(t, seller, "Dar El Hayek")
	p := env.product(t, seller, shop, "Haik", 1200.50, 5)

	_, err := env.svc.Carts.SetItem(ctx, buyer, models.CartItem{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	order, err := env.svc.Orders.Create(ctx, buyer, CreateOrderInput{
		ShopID: shop.ID,
		Lines:  []OrderLineInput{{ProductID: p.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, models.DeliveryPending, order.DeliveryStatus)
	assert.Equal(t, 3601.5, order.Total)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 1200.50, order.Lines[0].Price)
	assert.Equal(t, 2, env.stockOf(t, p.ID))

	stored, err := env.store.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.OrderCount)

	cart, err := env.svc.Carts.Get(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	assert.NotEmpty(t, env.notifier.notesFor(seller.ID))
	assert.Len(t, env.notifier.mailsWithSubject("New order received"), 1)
	assert.Len(t, env.notifier.mailsWithSubject("Low stock alert"), 1)
}

func TestOrderService_TotalIsSnapshotted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	shop := env.approvedShop(t, seller, "Atelier")
	p := env.product(t, seller, shop, "Burnous", 100, 10)

	order, err := env.svc.Orders.Create(ctx, buyer, CreateOrderInput{
		ShopID: shop.ID,
		Lines:  []OrderLineInput{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	price := 999.0
	_, err = env.svc.Products.Update(ctx, seller, p.ID, ProductUpdate{Price: &price})
	require.NoError(t, err)

	got, err := env.svc.Orders.Get(ctx, buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, got.Total)
	assert.Equal(t, 100.0, got.Lines[0].Price)
}

func TestOrderService_CreateRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	shop := env.approvedShop(t, seller, "Main")
	other := env.approvedShop(t, seller, "Other")
	a := env.product(t, seller, shop, "A", 10, 5)
	b := env.product(t, seller, shop, "B", 10, 1)
	foreign := env.product(t, seller, other, "F", 10, 5)

	pending, err := env.svc.Shops.Create(ctx, seller, CreateShopInput{Name: "Pending"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   CreateOrderInput
		kind Kind
	}{
		{"unknown shop", CreateOrderInput{ShopID: primitive.NewObjectID(), Lines: []OrderLineInput{{ProductID: a.ID, Quantity: 1}}}, KindNotFound},
		{"pending shop", CreateOrderInput{ShopID: pending.ID, Lines: []OrderLineInput{{ProductID: a.ID, Quantity: 1}}}, KindNotFound},
		{"no lines", CreateOrderInput{ShopID: shop.ID}, KindValidation},
		{"zero quantity", CreateOrderInput{ShopID: shop.ID, Lines: []OrderLineInput{{ProductID: a.ID}}}, KindValidation},
		{"foreign product", CreateOrderInput{ShopID: shop.ID, Lines: []OrderLineInput{{ProductID: foreign.ID, Quantity: 1}}}, KindValidation},
		{"unknown variant", CreateOrderInput{ShopID: shop.ID, Lines: []OrderLineInput{{ProductID: a.ID, Quantity: 1, Variant: &models.VariantRef{Size: "XL"}}}}, KindValidation},
		{"over stock", CreateOrderInput{ShopID: shop.ID, Lines: []OrderLineInput{{ProductID: a.ID, Quantity: 2}, {ProductID: b.ID, Quantity: 2}}}, KindConflict},
		{"repeated lines over stock", CreateOrderInput{ShopID: shop.ID, Lines: []OrderLineInput{{ProductID: a.ID, Quantity: 3}, {ProductID: a.ID, Quantity: 3}}}, KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Orders.Create(ctx, buyer, tt.in)
			requireKind(t, err, tt.kind)
			assert.Equal(t, 5, env.stockOf(t, a.ID))
			assert.Equal(t, 1, env.stockOf(t, b.ID))
		})
	}
}

func TestOrderService_Coupons(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	shop := env.approvedShop(t, seller, "Main")
	other := env.approvedShop(t, seller, "Other")
	p := env.product(t, seller, shop, "Kaftan", 50, 100)

	expired := env.now.Add(-time.Hour)
	_, err := env.svc.Coupons.Create(ctx, seller, CouponInput{ShopID: shop.ID, Code: "old", Discount: 50, ExpiresAt: &expired})
	require.NoError(t, err)
	_, err = env.svc.Coupons.Create(ctx, seller, CouponInput{ShopID: shop.ID, Code: "SAVE10", Discount: 10})
	require.NoError(t, err)
	_, err = env.svc.Coupons.Create(ctx, seller, CouponInput{ShopID: other.ID, Code: "ELSEWHERE", Discount: 30})
	require.NoError(t, err)

	order := func(code string) float64 {
		o, err := env.svc.Orders.Create(ctx, buyer, CreateOrderInput{
			ShopID:     shop.ID,
			Lines:      []OrderLineInput{{ProductID: p.ID, Quantity: 2}},
			CouponCode: code,
		})
		require.NoError(t, err)
		return o.Total
	}

	assert.Equal(t, 90.0, order("save10"))
	assert.Equal(t, 100.0, order("OLD"))
	assert.Equal(t, 100.0, order("ELSEWHERE"))
	assert.Equal(t, 100.0, order("NOPE"))
}

func TestOrderService_UpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer, stranger := env.user(t, "seller"), env.user(t, "buyer"), env.user(t, "stranger")
	shop := env.approvedShop(t, seller, "Main")
	p := env.product(t, seller, shop, "Kaftan", 50, 10)

	order, err := env.svc.Orders.Create(ctx, buyer, CreateOrderInput{ShopID: shop.ID, Lines: []OrderLineInput{{ProductID: p.ID, Quantity: 1}}})
	require.NoError(t, err)

	_, err = env.svc.Orders.UpdateStatus(ctx, stranger, order.ID, models.OrderShipped)
	requireKind(t, err, KindForbidden)

	_, err = env.svc.Orders.UpdateStatus(ctx, seller, order.ID, models.OrderCancelled)
	requireKind(t, err, KindValidation)

	_, err = env.svc.Orders.UpdateStatus(ctx, seller, order.ID, "Lost")
	requireKind(t, err, KindValidation)

	shipped, err := env.svc.Orders.UpdateStatus(ctx, seller, order.ID, models.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, shipped.Status)
	assert.Equal(t, models.DeliveryShipped, shipped.DeliveryStatus)

	again, err := env.svc.Orders.UpdateStatus(ctx, seller, order.ID, models.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, again.Status)

	_, err = env.svc.Orders.UpdateStatus(ctx, seller, order.ID, models.OrderConfirmed)
	requireKind(t, err, KindConflict)

	delivered, err := env.svc.Orders.UpdateStatus(ctx, seller, order.ID, models.OrderDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, delivered.DeliveryStatus)

	notes := env.notifier.notesFor(buyer.ID)
	require.Len(t, notes, 2)
	assert.True(t, strings.HasSuffix(notes[1], "is now Delivered"), notes[1])
	assert.Len(t, env.notifier.mailsWithSubject("Order status update"), 2)
	require.Len(t, env.notifier.events, 2)
	assert.Equal(t, models.OrderDelivered, env.notifier.events[1].Status)
	assert.Equal(t, order.ID.Hex(), env.notifier.events[1].OrderID)
}

func TestOrderService_ConfirmDelivery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	shop := env.approvedShop(t, seller, "Main")
	p := env.product(t, seller, shop, "Kaftan", 50, 10)

	order, err := env.svc.Orders.Create(ctx, buyer, CreateOrderInput{ShopID: shop.ID, Lines: []OrderLineInput{{ProductID: p.ID, Quantity: 1}}})
	require.NoError(t, err)

	got, err := env.svc.Orders.ConfirmDelivery(ctx, seller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, got.Status)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.True(t, got.PaymentConfirmed)

	again, err := env.svc.Orders.ConfirmDelivery(ctx, seller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, again.Status)

	_, err = env.svc.Orders.UpdateStatus(ctx, seller, order.ID, models.OrderReturned)
	requireKind(t, err, KindConflict)

	returned, err := env.svc.Orders.Create(ctx, buyer, CreateOrderInput{ShopID: shop.ID, Lines: []OrderLineInput{{ProductID: p.ID, Quantity: 1}}})
	require.NoError(t, err)
	_, err = env.svc.Orders.UpdateStatus(ctx, seller, returned.ID, models.OrderReturned)
	require.NoError(t, err)
	_, err = env.svc.Orders.ConfirmDelivery(ctx, seller, returned.ID)
	requireKind(t, err, KindConflict)
}

func TestOrderService_Cancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	shop := env.approvedShop(t, seller, "Main")
	a := env.product(t, seller, shop, "A", 10, 10)
	b := env.product(t, seller, shop, "B", 20, 10)

	place := func() *models.Order {
		o, err := env.svc.Orders.Create(ctx, buyer, CreateOrderInput{
			ShopID: shop.ID,
			Lines:  []OrderLineInput{{ProductID: a.ID, Quantity: 2}, {ProductID: b.ID, Quantity: 3}},
		})
		require.NoError(t, err)
		return o
	}

	t.Run("restores stock once", func(t *testing.T) {
		o := place()
		assert.Equal(t, 8, env.stockOf(t, a.ID))
		assert.Equal(t, int64(3), env.orderCountOf(t, b.ID))

		_, err := env.svc.Orders.Cancel(ctx, seller, o.ID)
		requireKind(t, err, KindForbidden)

		got, err := env.svc.Orders.Cancel(ctx, buyer, o.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderCancelled, got.Status)
		assert.Equal(t, 10, env.stockOf(t, a.ID))
		assert.Equal(t, 10, env.stockOf(t, b.ID))
		assert.Equal(t, int64(0), env.orderCountOf(t, b.ID))

		_, err = env.svc.Orders.Cancel(ctx, buyer, o.ID)
		requireKind(t, err, KindConflict)
		assert.Equal(t, 10, env.stockOf(t, a.ID))
		assert.NotEmpty(t, env.notifier.mailsWithSubject("Order cancelled"))
	})

	t.Run("window passed", func(t *testing.T) {
		o := place()
		before := env.stockOf(t, a.ID)
		env.advance(25 * time.Hour)

		_, err := env.svc.Orders.Cancel(ctx, buyer, o.ID)
		requireKind(t, err, KindConflict)
		assert.Equal(t, before, env.stockOf(t, a.ID))
	})

	t.Run("not pending", func(t *testing.T) {
		o := place()
		before := env.stockOf(t, a.ID)
		_, err := env.svc.Orders.UpdateStatus(ctx, seller, o.ID, models.OrderConfirmed)
		require.NoError(t, err)

		_, err = env.svc.Orders.Cancel(ctx, buyer, o.ID)
		requireKind(t, err, KindConflict)
		assert.Equal(t, before, env.stockOf(t, a.ID))
	})
}

func TestOrderService_ListForShopIncludesBuyerRisk(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer, fresh := env.user(t, "seller"), env.user(t, "buyer"), env.user(t, "fresh")
	shop := env.approvedShop(t, seller, "Main")
	p := env.product(t, seller, shop, "A", 10, 100)

	for i := 0; i < 4; i++ {
		o, err := env.svc.Orders.Create(ctx, buyer, CreateOrderInput{ShopID: shop.ID, Lines: []OrderLineInput{{ProductID: p.ID, Quantity: 1}}})
		require.NoError(t, err)
		if i == 0 {
			_, err = env.svc.Orders.UpdateStatus(ctx, seller, o.ID, models.OrderReturned)
			require.NoError(t, err)
		}
		env.advance(time.Minute)
	}

	rate, err := env.svc.Orders.FailedDeliveryRate(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate)

	_, err = env.svc.Orders.ListForShop(ctx, buyer, shop.ID)
	requireKind(t, err, KindForbidden)

	list, err := env.svc.Orders.ListForShop(ctx, seller, shop.ID)
	require.NoError(t, err)
	require.Len(t, list, 4)
	for _, o := range list {
		assert.Equal(t, 25.0, o.BuyerFailedDeliveryRate)
	}
	assert.True(t, list[0].CreatedAt.After(list[3].CreatedAt))

	mine, err := env.svc.Orders.ListMine(ctx, buyer, models.OrderFilter{Status: models.OrderReturned})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestOrderService_GetVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer, stranger := env.user(t, "seller"), env.user(t, "buyer"), env.user(t, "stranger")
	admin := env.admin(t)
	shop := env.approvedShop(t, seller, "Main")
	p := env.product(t, seller, shop, "A", 10, 10)

	o, err := env.svc.Orders.Create(ctx, buyer, CreateOrderInput{ShopID: shop.ID, Lines: []OrderLineInput{{ProductID: p.ID, Quantity: 1}}})
	require.NoError(t, err)

	for _, u := range []*models.User{buyer, seller, admin} {
		_, err := env.svc.Orders.Get(ctx, u, o.ID)
		assert.NoError(t, err)
	}
	_, err = env.svc.Orders.Get(ctx, stranger, o.ID)
	requireKind(t, err, KindForbidden)
	_, err = env.svc.Orders.Get(ctx, buyer, primitive.NewObjectID())
	requireKind(t, err, KindNotFound)
}
