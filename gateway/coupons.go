package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lokmen200/soukstyle/pkg/service"
)

type couponRequest struct {
	ShopID    string     `json:"shop_id"`
	Code      string     `json:"code" binding:"required"`
	Discount  float64    `json:"discount" binding:"required"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (g *Gateway) createCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	shopID, err := optionalID(req.ShopID)
	if err != nil {
		badRequest(c, "invalid shop_id")
		return
	}
	coupon, err := g.deps.Services.Coupons.Create(c.Request.Context(), currentUser(c), service.CouponInput{
		ShopID:    shopID,
		Code:      req.Code,
		Discount:  req.Discount,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, coupon)
}

func (g *Gateway) listCoupons(c *gin.Context) {
	coupons, err := g.deps.Services.Coupons.ListForOwner(c.Request.Context(), currentUser(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, coupons)
}

func (g *Gateway) deleteCoupon(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := g.deps.Services.Coupons.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "coupon deleted"})
}
