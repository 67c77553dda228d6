package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nclexkeys/backend/internal/config"
	"nclexkeys/backend/internal/handler/middleware"
	"nclexkeys/backend/internal/model"
	jwtpkg "nclexkeys/backend/pkg/jwt"
)

type Handlers struct {
	Health           *HealthHandler
	Auth             *AuthHandler
	RegistrationCode *RegistrationCodeHandler
	Payment          *PaymentHandler
	Webhook          *WebhookHandler
	Notification     *NotificationHandler
	Admin            *AdminHandler
}

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	h Handlers,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	r.GET("/healthz", h.Health.Check)

	// Public auth routes
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/verify-email", h.Auth.VerifyEmail)
	}

	public := r.Group("/api/v1")
	{
		public.POST("/registration-codes/validate", h.RegistrationCode.Validate)
		public.GET("/payments/:reference", h.Payment.Get)
		public.POST("/webhooks/:gateway", h.Webhook.Receive)
		public.POST("/payments/initialize", middleware.OptionalJWTAuth(jwtManager), h.Payment.Initialize)
	}

	// Protected routes
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(jwtManager))
	{
		protected.POST("/auth/logout", h.Auth.Logout)
		protected.GET("/auth/me", h.Auth.Me)
		protected.POST("/auth/resend-verification", h.Auth.ResendVerification)

		protected.POST("/registration-codes/use", h.RegistrationCode.Use)

		protected.GET("/notifications", h.Notification.List)
		protected.GET("/notifications/unread-count", h.Notification.UnreadCount)
		protected.POST("/notifications/:id/read", h.Notification.MarkRead)
	}

	// Staff routes (JWT + role check). Writes are admin-only.
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.JWTAuth(jwtManager))
	admin.Use(middleware.RequireRoles(string(model.RoleAdmin), string(model.RoleInstructor)))
	adminOnly := middleware.RequireRoles(string(model.RoleAdmin))
	{
		admin.GET("/registration-codes", h.Admin.ListCodes)
		admin.GET("/registration-codes/:code", h.Admin.GetCode)
		admin.POST("/registration-codes", adminOnly, h.Admin.CreateCodes)
		admin.POST("/registration-codes/expire", adminOnly, h.Admin.ExpireCodes)
		admin.POST("/registration-codes/:code/send", adminOnly, h.Admin.SendCode)

		admin.GET("/payments/overview", adminOnly, h.Admin.PaymentsOverview)
	}

	return r
}
