package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lokmen200/soukstyle/pkg/auth"
	"github.com/lokmen200/soukstyle/pkg/config"
	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/notify"
	"github.com/lokmen200/soukstyle/pkg/service"
	"github.com/lokmen200/soukstyle/pkg/storage"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP layer talks to.
type Deps struct {
	Services    *service.Services
	Tokens      *auth.TokenManager
	Limiter     RateLimiter
	Uploader    storage.Uploader
	Broadcaster notify.Broadcaster
}

type Gateway struct {
	config *config.Config
	deps   Deps
	logger *zap.Logger
	router *gin.Engine
	server *http.Server
}

func NewGateway(cfg *config.Config, deps Deps, logger *zap.Logger) *Gateway {
	if deps.Limiter == nil {
		deps.Limiter = NewLocalLimiter()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.MaxMultipartMemory = cfg.Uploads.MaxBytes
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(logger))
	router.Use(recoveryMiddleware(logger))

	g := &Gateway{
		config: cfg,
		deps:   deps,
		logger: logger,
		router: router,
	}
	g.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return g
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := g.router.Group("/api")
	api.Use(rateLimitMiddleware(g.deps.Limiter, g.config.RateLimit, g.logger))
	authed := authMiddleware(g.deps.Tokens, g.deps.Services.Users)

	users := api.Group("/users")
	{
		users.POST("/register", g.register)
		users.POST("/login", g.login)
		users.GET("/me", authed, g.me)
		users.PUT("/me", authed, g.updateMe)
		users.GET("/notifications", authed, g.listNotifications)
		users.PUT("/notifications/read-all", authed, g.markAllNotificationsRead)
		users.PUT("/notifications/:id/read", authed, g.markNotificationRead)
	}

	products := api.Group("/products")
	{
		products.GET("", g.listProducts)
		products.GET("/trending", g.trendingProducts)
		products.GET("/:id", g.getProduct)
		products.POST("", authed, g.createProduct)
		products.PUT("/:id", authed, g.updateProduct)
		products.DELETE("/:id", authed, g.deleteProduct)
		products.POST("/:id/review", authed, g.reviewTarget(models.TargetProduct))
	}

	shops := api.Group("/shops")
	{
		shops.GET("", g.listShops)
		shops.GET("/analytics", authed, g.shopAnalytics)
		shops.GET("/:id", g.getShop)
		shops.POST("", authed, g.createShop)
		shops.PUT("/:id/social", authed, g.updateShopSocial)
		shops.POST("/:id/images", authed, g.uploadShopImages)
		shops.POST("/:id/follow", authed, g.followShop)
		shops.POST("/:id/unfollow", authed, g.unfollowShop)
		shops.POST("/:id/employees", authed, g.addEmployee)
		shops.DELETE("/:id/employees/:userId", authed, g.removeEmployee)
		shops.POST("/:id/review", authed, g.reviewTarget(models.TargetShop))
	}

	orders := api.Group("/orders", authed)
	{
		orders.POST("", g.createOrder)
		orders.GET("/me", g.myOrders)
		orders.GET("/shop/:shopId", g.shopOrders)
		orders.GET("/stream", g.orderStream)
		orders.GET("/:id", g.getOrder)
		orders.PUT("/:id/status", g.updateOrderStatus)
		orders.PUT("/:id/confirm-delivery", g.confirmDelivery)
		orders.PUT("/:id/cancel", g.cancelOrder)
		orders.POST("/:id/rate-buyer", g.rateBuyer)
	}

	reviews := api.Group("/reviews")
	{
		reviews.POST("", authed, g.createReview)
		reviews.GET("/:kind/:id", g.listReviews)
	}

	coupons := api.Group("/coupons", authed)
	{
		coupons.POST("", g.createCoupon)
		coupons.GET("/shop", g.listCoupons)
		coupons.DELETE("/:id", g.deleteCoupon)
	}

	cart := api.Group("/cart", authed)
	{
		cart.GET("", g.getCart)
		cart.POST("", g.setCartItem)
		cart.DELETE("/:productId", g.removeCartItem)
		cart.DELETE("", g.clearCart)
	}

	categories := api.Group("/categories")
	{
		categories.GET("", g.listCategories)
		categories.POST("", authed, adminOnly(), g.createCategory)
	}

	admin := api.Group("/admin", authed, adminOnly())
	{
		admin.GET("/shops", g.adminListShops)
		admin.PUT("/shops/:id/approve", g.adminApproveShop)
		admin.DELETE("/shops/:id", g.adminDeleteShop)
		admin.GET("/users", g.adminListUsers)
		admin.DELETE("/users/:id", g.adminDeleteUser)
		admin.PUT("/users/:id/role", g.adminSetRole)
		admin.GET("/analytics", g.adminAnalytics)
		admin.GET("/audit/:entityId", g.adminAuditLogs)
	}

	if g.config.Uploads.CloudinaryURL == "" {
		g.router.Static(g.config.Uploads.URLPrefix, g.config.Uploads.Dir)
	}

	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler exposes the router, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (g *Gateway) Start() error {
	g.logger.Info("Gateway starting", zap.String("address", g.server.Addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}
