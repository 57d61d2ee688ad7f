package routes

import (
	"barorder/configs"
	"barorder/controllers"
	"barorder/middlewares"
	"barorder/repository"
	"barorder/services"
	"barorder/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *configs.Config, svc *services.OrderLifecycleService) {
	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	vendorRepo := repository.NewVendorRepository(db)

	authCtrl := controllers.NewAuthController(userRepo, cfg)
	orderCtrl := controllers.NewOrderController(svc, orderRepo)
	vendorCtrl := controllers.NewVendorOrderController(svc, orderRepo, vendorRepo)
	paymentCtrl := controllers.NewPaymentController(svc)
	adminCtrl := controllers.NewAdminController(orderRepo)
	feed := ws.NewOrderFeed(svc, vendorRepo, nil)

	// Auth (public)
	a := r.Group("/auth")
	{
		a.POST("/register", authCtrl.Register)
		a.POST("/login", authCtrl.Login)
	}

	// Orders (customer)
	u := r.Group("/", middlewares.AuthMiddleware(cfg.JWTSecret))
	{
		u.POST("/orders", orderCtrl.Create)
		u.GET("/orders/:id", orderCtrl.Detail)
		u.GET("/orders/:id/history", orderCtrl.History)
		u.POST("/orders/:id/cancel", orderCtrl.Cancel)
	}

	profile := r.Group("/profile", middlewares.AuthMiddleware(cfg.JWTSecret))
	{
		profile.GET("/orders", orderCtrl.ListForMe)
	}

	// Vendor dashboard (vendor/admin)
	vendor := r.Group("/vendor", middlewares.AuthMiddleware(cfg.JWTSecret, "vendor", "admin"))
	{
		vendor.GET("/vendors/:id/orders", vendorCtrl.List)
		vendor.PATCH("/orders/:id/status", vendorCtrl.Transition)
	}

	// Payment collaborator callback
	r.POST("/payments/webhook", paymentCtrl.Webhook)

	// Admin (admin only)
	admin := r.Group("/admin", middlewares.AuthMiddleware(cfg.JWTSecret, "admin"))
	{
		admin.GET("/orders", adminCtrl.ListOrders)
	}

	// Realtime feeds; token arrives via query for browser clients
	wsGroup := r.Group("/ws", middlewares.WSAuthMiddleware(cfg.JWTSecret))
	{
		wsGroup.GET("/orders/:id", feed.HandleOrder)
		wsGroup.GET("/vendors/:id", feed.HandleVendor)
		wsGroup.GET("/admin", feed.HandleAdmin)
	}
}
