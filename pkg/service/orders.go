package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type OrderService struct {
	deps Deps
	log  *zap.Logger
}

type OrderLineInput struct {
	ProductID primitive.ObjectID
	Quantity  int
	Variant   *models.VariantRef
}

type CreateOrderInput struct {
	ShopID     primitive.ObjectID
	Lines      []OrderLineInput
	CouponCode string
}

// Create places an order against live stock. Either every line's stock is
// taken or none is: a short line puts back what earlier lines took.
func (s *OrderService) Create(ctx context.Context, caller *models.User, in CreateOrderInput) (*models.Order, error) {
	if len(in.Lines) == 0 {
		return nil, Invalid("an order needs at least one product")
	}
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			return nil, Invalid("quantity must be at least 1")
		}
	}

	shop, err := s.deps.Repos.Shops.GetByID(ctx, in.ShopID)
	if err != nil {
		return nil, lookup(err, "shop")
	}
	if !shop.Orderable() {
		return nil, NotFound("shop")
	}

	products, err := s.checkLines(ctx, shop, in.Lines)
	if err != nil {
		return nil, err
	}

	lines := make([]models.OrderLine, 0, len(in.Lines))
	total := decimal.Zero
	for _, l := range in.Lines {
		p := products[l.ProductID]
		var variant *models.VariantRef
		if !l.Variant.IsZero() {
			v := *l.Variant
			variant = &v
		}
		lines = append(lines, models.OrderLine{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  l.Quantity,
			Variant:   variant,
			Price:     p.Price,
		})
		total = total.Add(models.LineTotal(p.Price, l.Quantity))
	}

	low, err := s.takeStock(ctx, lines)
	if err != nil {
		return nil, err
	}

	if code := strings.TrimSpace(in.CouponCode); code != "" {
		total = s.applyCoupon(ctx, shop.ID, code, total)
	}

	now := s.deps.Now()
	order := &models.Order{
		BuyerID:        caller.ID,
		ShopID:         shop.ID,
		Lines:          lines,
		Total:          models.Amount(total),
		Status:         models.OrderPending,
		PaymentStatus:  models.PaymentPending,
		DeliveryStatus: models.DeliveryPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.deps.Repos.Orders.Create(ctx, order); err != nil {
		s.restoreStock(ctx, lines)
		return nil, Internal("failed to save order", err)
	}

	s.log.Info("Order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("buyer_id", caller.ID.Hex()),
		zap.String("shop_id", shop.ID.Hex()),
		zap.Float64("total", order.Total))

	owner := s.owner(ctx, shop)
	s.deps.Notifier.Notify(shop.OwnerID, fmt.Sprintf("New order %s received for %s", order.ID.Hex(), shop.Name))
	if owner != nil {
		s.deps.Notifier.Email(owner.Email, "New order received",
			fmt.Sprintf("Order %s was placed on %s for a total of %.2f.", order.ID.Hex(), shop.Name, order.Total))
		for _, p := range low {
			s.deps.Notifier.Email(owner.Email, "Low stock alert",
				fmt.Sprintf("%s has only %d left in stock.", p.Name, p.Stock))
		}
	}

	if err := s.deps.Repos.Carts.Clear(ctx, caller.ID); err != nil {
		s.log.Warn("Failed to clear cart", zap.String("user_id", caller.ID.Hex()), zap.Error(err))
	}
	return order, nil
}

// checkLines loads every product once and rejects the order before any stock
// moves. Repeated lines for one product are checked against their sum.
func (s *OrderService) checkLines(ctx context.Context, shop *models.Shop, lines []OrderLineInput) (map[primitive.ObjectID]*models.Product, error) {
	products := make(map[primitive.ObjectID]*models.Product, len(lines))
	wanted := make(map[primitive.ObjectID]int, len(lines))

	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			var err error
			p, err = s.deps.Repos.Products.GetByID(ctx, l.ProductID)
			if err != nil {
				return nil, lookup(err, "product")
			}
			products[l.ProductID] = p
		}
		if p.ShopID != shop.ID {
			return nil, Invalid("product %s does not belong to this shop", p.Name)
		}
		if !p.HasVariant(l.Variant) {
			return nil, Invalid("product %s has no such variant", p.Name)
		}
		wanted[p.ID] += l.Quantity
		if wanted[p.ID] > p.Stock {
			return nil, Conflict(fmt.Sprintf("insufficient stock for %s", p.Name))
		}
	}
	return products, nil
}

// takeStock decrements each line and returns the products that fell under
// their low-stock threshold.
func (s *OrderService) takeStock(ctx context.Context, lines []models.OrderLine) ([]*models.Product, error) {
	var low []*models.Product
	for i, l := range lines {
		p, err := s.deps.Repos.Products.DecrementStock(ctx, l.ProductID, l.Quantity)
		if err != nil {
			s.restoreStock(ctx, lines[:i])
			switch {
			case errors.Is(err, repository.ErrConflict):
				return nil, Conflict(fmt.Sprintf("insufficient stock for %s", l.Name))
			case errors.Is(err, repository.ErrNotFound):
				return nil, NotFound("product")
			}
			return nil, Internal("failed to reserve stock", err)
		}
		if p.LowStock(s.deps.Options.LowStockThreshold) {
			low = append(low, p)
		}
	}
	return low, nil
}

func (s *OrderService) restoreStock(ctx context.Context, lines []models.OrderLine) {
	for _, l := range lines {
		if err := s.deps.Repos.Products.RestoreStock(ctx, l.ProductID, l.Quantity); err != nil {
			s.log.Error("Failed to restore stock",
				zap.String("product_id", l.ProductID.Hex()),
				zap.Int("quantity", l.Quantity),
				zap.Error(err))
		}
	}
}

// applyCoupon discounts total when code names an active coupon of the shop.
// Anything else leaves the total untouched.
func (s *OrderService) applyCoupon(ctx context.Context, shopID primitive.ObjectID, code string, total decimal.Decimal) decimal.Decimal {
	coupon, err := s.deps.Repos.Coupons.FindByCode(ctx, models.NormalizeCouponCode(code), shopID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("Coupon lookup failed", zap.String("code", code), zap.Error(err))
		}
		return total
	}
	if !coupon.Active(s.deps.Now()) {
		return total
	}
	return models.ApplyDiscount(total, coupon.Discount)
}

func (s *OrderService) Get(ctx context.Context, caller *models.User, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.deps.Repos.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "order")
	}
	if order.BuyerID == caller.ID || caller.IsAdmin() {
		return order, nil
	}
	shop, err := s.deps.Repos.Shops.GetByID(ctx, order.ShopID)
	if err == nil && shop.IsOwner(caller.ID) {
		return order, nil
	}
	return nil, Forbidden("not allowed to view this order")
}

func (s *OrderService) ListMine(ctx context.Context, caller *models.User, filter models.OrderFilter) ([]*models.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, Invalid("unknown order status %q", filter.Status)
	}
	filter.BuyerID = caller.ID
	filter.ShopIDs = nil
	orders, err := s.deps.Repos.Orders.List(ctx, filter)
	if err != nil {
		return nil, Internal("failed to list orders", err)
	}
	return orders, nil
}

// ListForShop returns the shop's orders, each with the buyer's failed
// delivery rate so the owner can judge the risk of shipping.
func (s *OrderService) ListForShop(ctx context.Context, caller *models.User, shopID primitive.ObjectID) ([]*models.OrderWithRisk, error) {
	shop, err := s.deps.Repos.Shops.GetByID(ctx, shopID)
	if err != nil {
		return nil, lookup(err, "shop")
	}
	if !shop.IsOwner(caller.ID) && !caller.IsAdmin() {
		return nil, Forbidden("only the shop owner can list its orders")
	}

	orders, err := s.deps.Repos.Orders.List(ctx, models.OrderFilter{ShopIDs: []primitive.ObjectID{shop.ID}})
	if err != nil {
		return nil, Internal("failed to list orders", err)
	}

	rates := map[primitive.ObjectID]float64{}
	out := make([]*models.OrderWithRisk, 0, len(orders))
	for _, o := range orders {
		rate, ok := rates[o.BuyerID]
		if !ok {
			rate, err = s.FailedDeliveryRate(ctx, o.BuyerID)
			if err != nil {
				return nil, err
			}
			rates[o.BuyerID] = rate
		}
		out = append(out, &models.OrderWithRisk{Order: o, BuyerFailedDeliveryRate: rate})
	}
	return out, nil
}

// FailedDeliveryRate is returned/total*100 over all of the buyer's orders,
// 0 for a buyer without orders.
func (s *OrderService) FailedDeliveryRate(ctx context.Context, buyerID primitive.ObjectID) (float64, error) {
	total, returned, err := s.deps.Repos.Orders.StatsByBuyer(ctx, buyerID)
	if err != nil {
		return 0, Internal("failed to compute delivery stats", err)
	}
	return models.Percentage(returned, total), nil
}

// UpdateStatus moves an order along the fulfilment table. Setting the
// current status again succeeds without side effects.
func (s *OrderService) UpdateStatus(ctx context.Context, caller *models.User, id primitive.ObjectID, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, Invalid("unknown order status %q", status)
	}
	if status == models.OrderCancelled {
		return nil, Invalid("orders are cancelled by the buyer")
	}

	order, shop, err := s.ownedOrder(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, Conflict(fmt.Sprintf("cannot move order from %s to %s", order.Status, status))
	}

	return s.transition(ctx, order, shop, models.PatchFor(status, s.deps.Now()))
}

// ConfirmDelivery marks the order delivered and its cash payment received.
func (s *OrderService) ConfirmDelivery(ctx context.Context, caller *models.User, id primitive.ObjectID) (*models.Order, error) {
	order, shop, err := s.ownedOrder(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderDelivered && order.PaymentConfirmed {
		return order, nil
	}
	if order.Status != models.OrderDelivered && !order.Status.CanTransitionTo(models.OrderDelivered) {
		return nil, Conflict(fmt.Sprintf("cannot confirm delivery of a %s order", order.Status))
	}

	patch := models.PatchFor(models.OrderDelivered, s.deps.Now())
	patch.PaymentStatus = models.PaymentPaid
	patch.PaymentConfirmed = true
	return s.transition(ctx, order, shop, patch)
}

// Cancel lets the buyer withdraw a pending order inside the cancel window.
// Stock goes back exactly once: only the request that wins the status change
// restores it.
func (s *OrderService) Cancel(ctx context.Context, caller *models.User, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.deps.Repos.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "order")
	}
	if order.BuyerID != caller.ID {
		return nil, Forbidden("only the buyer can cancel this order")
	}
	if order.Status != models.OrderPending {
		return nil, Conflict("only pending orders can be cancelled")
	}
	now := s.deps.Now()
	if now.Sub(order.CreatedAt) > s.deps.Options.CancelWindow {
		return nil, Conflict("the cancellation window has passed")
	}

	updated, err := s.deps.Repos.Orders.TransitionStatus(ctx, id, models.OrderPending,
		models.StatusPatch{Status: models.OrderCancelled, UpdatedAt: now})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, Conflict("only pending orders can be cancelled")
		}
		return nil, persist(err, "order")
	}
	s.restoreStock(ctx, updated.Lines)

	s.log.Info("Order cancelled", zap.String("order_id", id.Hex()), zap.String("buyer_id", caller.ID.Hex()))

	if shop, err := s.deps.Repos.Shops.GetByID(ctx, updated.ShopID); err == nil {
		s.deps.Notifier.Notify(shop.OwnerID, fmt.Sprintf("Order %s was cancelled by the buyer", id.Hex()))
		if owner := s.owner(ctx, shop); owner != nil {
			s.deps.Notifier.Email(owner.Email, "Order cancelled",
				fmt.Sprintf("Order %s on %s was cancelled by the buyer.", id.Hex(), shop.Name))
		}
	} else {
		s.log.Warn("Failed to load shop for cancel notice", zap.String("order_id", id.Hex()), zap.Error(err))
	}
	s.deps.Notifier.OrderStatusChanged(models.NewOrderStatusEvent(updated))
	return updated, nil
}

func (s *OrderService) transition(ctx context.Context, order *models.Order, shop *models.Shop, patch models.StatusPatch) (*models.Order, error) {
	updated, err := s.deps.Repos.Orders.TransitionStatus(ctx, order.ID, order.Status, patch)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, Conflict("order was changed by another request, reload and retry")
		}
		return nil, persist(err, "order")
	}

	s.log.Info("Order status changed",
		zap.String("order_id", order.ID.Hex()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(updated.Status)))

	msg := fmt.Sprintf("Your order %s from %s is now %s", updated.ID.Hex(), shop.Name, updated.Status)
	s.deps.Notifier.Notify(updated.BuyerID, msg)
	if buyer, err := s.deps.Repos.Users.GetByID(ctx, updated.BuyerID); err == nil {
		s.deps.Notifier.Email(buyer.Email, "Order status update", msg)
	} else {
		s.log.Warn("Failed to load buyer for status mail", zap.String("order_id", order.ID.Hex()), zap.Error(err))
	}
	s.deps.Notifier.OrderStatusChanged(models.NewOrderStatusEvent(updated))
	return updated, nil
}

func (s *OrderService) ownedOrder(ctx context.Context, caller *models.User, id primitive.ObjectID) (*models.Order, *models.Shop, error) {
	order, err := s.deps.Repos.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, nil, lookup(err, "order")
	}
	shop, err := s.deps.Repos.Shops.GetByID(ctx, order.ShopID)
	if err != nil {
		return nil, nil, lookup(err, "shop")
	}
	if !shop.IsOwner(caller.ID) {
		return nil, nil, Forbidden("only the shop owner can update this order")
	}
	return order, shop, nil
}

// owner is best effort; mail is skipped when it fails.
func (s *OrderService) owner(ctx context.Context, shop *models.Shop) *models.User {
	u, err := s.deps.Repos.Users.GetByID(ctx, shop.OwnerID)
	if err != nil {
		s.log.Warn("Failed to load shop owner", zap.String("shop_id", shop.ID.Hex()), zap.Error(err))
		return nil
	}
	return u
}
