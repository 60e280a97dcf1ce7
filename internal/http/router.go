package api

import (
	"log"
	stdhttp "net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	intconfig "buspass/internal/config"
	"buspass/internal/domain"
	"buspass/internal/gateway"
	h "buspass/internal/http/handlers"
	"buspass/internal/http/middleware"
	"buspass/internal/metrics"
)

func NewRouter(env intconfig.Env, gw gateway.Gateway, rdb *redis.Client) *gin.Engine {
	h.Init(env, gw)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     env.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept", "Origin", "Idempotency-Key"},
		AllowCredentials: true,
	}))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)

		auth := api.Group("/auth")
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)

		authed := api.Group("")
		authed.Use(middleware.Auth(env.JWTSecret))

		// Pass applications
		applications := authed.Group("/applications")
		applications.POST("", middleware.RequireRole(domain.RoleStudent), h.Apply)
		applications.GET("/mine", h.MyApplication)
		applications.GET("/pending", middleware.RequireRole(domain.RoleStaff), h.PendingApplications)
		applications.PUT("/:id/decide", middleware.RequireRole(domain.RoleStaff), h.DecideApplication)
		applications.GET("/:id/pass.pdf", h.GetPassPDF)

		// Payments
		payments := authed.Group("/payments")
		payments.POST("/order", h.CreatePaymentOrder)
		payments.POST("/verify", middleware.Idempotency(rdb), h.VerifyPayment)
		payments.POST("/failed", h.PaymentFailed)
		payments.GET("/:kind/:id", middleware.RequireRole(domain.RoleStaff), h.PaymentHistory)

		// One-day tickets
		tickets := authed.Group("/tickets")
		tickets.POST("", middleware.RequireRole(domain.RoleStudent), h.PurchaseTicket)
		tickets.PUT("/:id/use", middleware.RequireRole(domain.RoleDriver, domain.RoleStaff), h.UseTicket)
		tickets.GET("/:id/ticket.pdf", h.GetTicketPDF)

		// Attendance & occupancy
		attendance := authed.Group("/attendance")
		attendance.POST("/check-in", middleware.RequireRole(domain.RoleDriver, domain.RoleStaff), h.CheckIn)
		attendance.POST("/check-out", middleware.RequireRole(domain.RoleDriver, domain.RoleStaff), h.CheckOut)

		buses := authed.Group("/buses")
		buses.GET("/:id/occupancy", h.GetOccupancy)
		buses.PUT("/:id/occupancy", middleware.RequireRole(domain.RoleStaff), h.AdjustOccupancy)

		// Analytics (staff)
		analytics := authed.Group("/analytics")
		analytics.Use(middleware.RequireRole(domain.RoleStaff))
		analytics.GET("/today", h.GetTodaySummary)
		analytics.GET("/active", h.GetActiveStudents)
		analytics.GET("/report", h.GetDailyReport)
		analytics.GET("/report.xlsx", h.GetDailyReportXLSX)
	}

	return r
}
