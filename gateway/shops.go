package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type shopRequest struct {
	Name        string             `json:"name" binding:"required"`
	Wilaya      string             `json:"wilaya"`
	City        string             `json:"city"`
	Logo        string             `json:"logo"`
	Banner      string             `json:"banner"`
	SocialMedia models.SocialMedia `json:"social_media"`
}

type employeeRequest struct {
	UserID      string   `json:"user_id" binding:"required"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (g *Gateway) listShops(c *gin.Context) {
	shops, err := g.deps.Services.Shops.List(c.Request.Context(), models.ShopFilter{
		Wilaya: c.Query("wilaya"),
		City:   c.Query("city"),
		Search: c.Query("search"),
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shops)
}

func (g *Gateway) getShop(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	shop, err := g.deps.Services.Shops.Get(c.Request.Context(), id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

func (g *Gateway) createShop(c *gin.Context) {
	var req shopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	shop, err := g.deps.Services.Shops.Create(c.Request.Context(), currentUser(c), service.CreateShopInput{
		Name:        req.Name,
		Wilaya:      req.Wilaya,
		City:        req.City,
		Logo:        req.Logo,
		Banner:      req.Banner,
		SocialMedia: req.SocialMedia,
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shop)
}

func (g *Gateway) updateShopSocial(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var links models.SocialMedia
	if err := c.ShouldBindJSON(&links); err != nil {
		badRequest(c, err.Error())
		return
	}
	shop, err := g.deps.Services.Shops.UpdateSocialMedia(c.Request.Context(), currentUser(c), id, links)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

// uploadShopImages takes multipart "logo" and/or "banner" files.
func (g *Gateway) uploadShopImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	// ownership is checked before anything is stored
	shop, err := g.deps.Services.Shops.Get(c.Request.Context(), id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if !shop.IsOwner(currentUser(c).ID) {
		g.respondError(c, service.Forbidden("only the shop owner can do this"))
		return
	}

	logo, ok := g.saveUpload(c, "logo")
	if !ok {
		return
	}
	banner, ok := g.saveUpload(c, "banner")
	if !ok {
		return
	}
	shop, err = g.deps.Services.Shops.UpdateImages(c.Request.Context(), currentUser(c), id, logo, banner)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

func (g *Gateway) followShop(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := g.deps.Services.Shops.Follow(c.Request.Context(), currentUser(c), id); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "shop followed"})
}

func (g *Gateway) unfollowShop(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := g.deps.Services.Shops.Unfollow(c.Request.Context(), currentUser(c), id); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "shop unfollowed"})
}

func (g *Gateway) addEmployee(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req employeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		badRequest(c, "invalid user_id")
		return
	}
	shop, err := g.deps.Services.Shops.AddEmployee(c.Request.Context(), currentUser(c), id, service.EmployeeInput{
		UserID:      userID,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

func (g *Gateway) removeEmployee(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	shop, err := g.deps.Services.Shops.RemoveEmployee(c.Request.Context(), currentUser(c), id, userID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

func (g *Gateway) shopAnalytics(c *gin.Context) {
	stats, err := g.deps.Services.Shops.Analytics(c.Request.Context(), currentUser(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
