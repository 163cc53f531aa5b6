package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lokmen200/soukstyle/pkg/models"
)

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

type roleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

func (g *Gateway) listCategories(c *gin.Context) {
	list, err := g.deps.Services.Categories.List(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (g *Gateway) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cat, err := g.deps.Services.Categories.Create(c.Request.Context(), currentUser(c), req.Name)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (g *Gateway) adminListShops(c *gin.Context) {
	shops, err := g.deps.Services.Admin.ListShops(c.Request.Context(), currentUser(c), models.ShopStatus(c.Query("status")))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shops)
}

func (g *Gateway) adminApproveShop(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	shop, err := g.deps.Services.Admin.ApproveShop(c.Request.Context(), currentUser(c), id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

func (g *Gateway) adminDeleteShop(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := g.deps.Services.Admin.DeleteShop(c.Request.Context(), currentUser(c), id); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "shop deleted"})
}

func (g *Gateway) adminListUsers(c *gin.Context) {
	users, err := g.deps.Services.Admin.ListUsers(c.Request.Context(), currentUser(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (g *Gateway) adminDeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := g.deps.Services.Admin.DeleteUser(c.Request.Context(), currentUser(c), id); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (g *Gateway) adminSetRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := g.deps.Services.Admin.SetRole(c.Request.Context(), currentUser(c), id, req.Role)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (g *Gateway) adminAnalytics(c *gin.Context) {
	stats, err := g.deps.Services.Admin.Analytics(c.Request.Context(), currentUser(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (g *Gateway) adminAuditLogs(c *gin.Context) {
	logs, err := g.deps.Services.Admin.AuditLogs(c.Request.Context(), currentUser(c), c.Param("entityId"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
