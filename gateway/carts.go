package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cartItemRequest struct {
	ProductID string             `json:"product_id" binding:"required"`
	Quantity  int                `json:"quantity"`
	Variant   *models.VariantRef `json:"variant"`
}

func (g *Gateway) getCart(c *gin.Context) {
	cart, err := g.deps.Services.Carts.Get(c.Request.Context(), currentUser(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (g *Gateway) setCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		badRequest(c, "invalid product_id")
		return
	}
	cart, err := g.deps.Services.Carts.SetItem(c.Request.Context(), currentUser(c), models.CartItem{
		ProductID: productID,
		Quantity:  req.Quantity,
		Variant:   req.Variant,
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (g *Gateway) removeCartItem(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}
	cart, err := g.deps.Services.Carts.RemoveItem(c.Request.Context(), currentUser(c), productID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (g *Gateway) clearCart(c *gin.Context) {
	if err := g.deps.Services.Carts.Clear(c.Request.Context(), currentUser(c)); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}
