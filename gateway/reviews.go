package gateway

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type reviewRequest struct {
	// Kind and TargetID are read only by POST /reviews; the nested routes take
	// the target from the path.
	Kind     string `json:"kind"`
	TargetID string `json:"target_id"`
	OrderID  string `json:"order_id" binding:"required"`
	Rating   int    `json:"rating" binding:"required"`
	Comment  string `json:"comment"`
}

// targetKind accepts kinds in any case: product, Product, PRODUCT.
func targetKind(raw string) models.TargetKind {
	for _, k := range []models.TargetKind{models.TargetProduct, models.TargetShop, models.TargetUser} {
		if strings.EqualFold(raw, string(k)) {
			return k
		}
	}
	return models.TargetKind(raw)
}

func (g *Gateway) createReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	targetID, err := primitive.ObjectIDFromHex(req.TargetID)
	if err != nil {
		badRequest(c, "invalid target_id")
		return
	}
	g.writeReview(c, models.Target{Kind: targetKind(req.Kind), ID: targetID}, req)
}

// reviewTarget serves POST /products/:id/review and POST /shops/:id/review.
func (g *Gateway) reviewTarget(kind models.TargetKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		g.writeReview(c, models.Target{Kind: kind, ID: id}, req)
	}
}

func (g *Gateway) writeReview(c *gin.Context, target models.Target, req reviewRequest) {
	orderID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		badRequest(c, "invalid order_id")
		return
	}
	review, err := g.deps.Services.Reviews.Create(c.Request.Context(), currentUser(c), service.ReviewInput{
		Target:  target,
		OrderID: orderID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (g *Gateway) listReviews(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reviews, err := g.deps.Services.Reviews.List(c.Request.Context(), models.Target{Kind: targetKind(c.Param("kind")), ID: id})
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}
