package gateway

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const orderStatusEvent = "order-status"

type orderLineRequest struct {
	ProductID string             `json:"product_id" binding:"required"`
	Quantity  int                `json:"quantity" binding:"required"`
	Variant   *models.VariantRef `json:"variant"`
}

type orderRequest struct {
	ShopID     string             `json:"shop_id" binding:"required"`
	Products   []orderLineRequest `json:"products" binding:"required,min=1,dive"`
	CouponCode string             `json:"coupon_code"`
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

type rateBuyerRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

func (g *Gateway) createOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	shopID, err := primitive.ObjectIDFromHex(req.ShopID)
	if err != nil {
		badRequest(c, "invalid shop_id")
		return
	}
	in := service.CreateOrderInput{ShopID: shopID, CouponCode: req.CouponCode}
	for _, line := range req.Products {
		productID, err := primitive.ObjectIDFromHex(line.ProductID)
		if err != nil {
			badRequest(c, "invalid product_id")
			return
		}
		in.Lines = append(in.Lines, service.OrderLineInput{
			ProductID: productID,
			Quantity:  line.Quantity,
			Variant:   line.Variant,
		})
	}

	order, err := g.deps.Services.Orders.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// parseDate accepts RFC 3339 timestamps or plain dates.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, service.Invalid("invalid date %q", raw)
}

func (g *Gateway) myOrders(c *gin.Context) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	orders, err := g.deps.Services.Orders.ListMine(c.Request.Context(), currentUser(c), models.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		From:   from,
		To:     to,
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (g *Gateway) shopOrders(c *gin.Context) {
	shopID, ok := pathID(c, "shopId")
	if !ok {
		return
	}
	orders, err := g.deps.Services.Orders.ListForShop(c.Request.Context(), currentUser(c), shopID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (g *Gateway) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := g.deps.Services.Orders.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	order, err := g.deps.Services.Orders.UpdateStatus(c.Request.Context(), currentUser(c), id, req.Status)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) confirmDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := g.deps.Services.Orders.ConfirmDelivery(c.Request.Context(), currentUser(c), id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) cancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := g.deps.Services.Orders.Cancel(c.Request.Context(), currentUser(c), id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// rateBuyer lets the seller of a delivered order rate its buyer.
func (g *Gateway) rateBuyer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req rateBuyerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	caller := currentUser(c)
	order, err := g.deps.Services.Orders.Get(c.Request.Context(), caller, id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	review, err := g.deps.Services.Reviews.Create(c.Request.Context(), caller, service.ReviewInput{
		Target:  models.Target{Kind: models.TargetUser, ID: order.BuyerID},
		OrderID: order.ID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// orderStream pushes order status changes as server-sent events. Callers
// see orders they bought or sold; admins see all. ?order=<id> narrows the
// stream to one order.
func (g *Gateway) orderStream(c *gin.Context) {
	caller := currentUser(c)
	ctx := c.Request.Context()

	owned := map[string]bool{}
	if !caller.IsAdmin() {
		shops, err := g.deps.Services.Shops.Mine(ctx, caller)
		if err != nil {
			g.respondError(c, err)
			return
		}
		for _, shop := range shops {
			owned[shop.ID.Hex()] = true
		}
	}
	only := c.Query("order")

	events, cancel := g.deps.Broadcaster.Subscribe(ctx)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()
	g.logger.Debug("Order stream opened", zap.String("user_id", caller.ID.Hex()))

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			if only != "" && ev.OrderID != only {
				return true
			}
			if caller.IsAdmin() || ev.BuyerID == caller.ID.Hex() || owned[ev.ShopID] {
				c.SSEvent(orderStatusEvent, ev)
			}
			return true
		}
	})
}
