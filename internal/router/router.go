package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "recontab/docs" // registers the OpenAPI spec
	"recontab/internal/domain"
	"recontab/internal/handler"
	"recontab/internal/middleware"
	"recontab/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	log *zap.Logger,
	allowedOrigins []string,
	authSvc service.AuthService,
	authH *handler.AuthHandler,
	clientH *handler.ClientHandler,
	reconH *handler.ReconciliationHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.RefreshToken)

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc), middleware.TenantGuard())

	clients := protected.Group("/clients")
	clients.POST("", middleware.RequireRole(domain.RoleAdmin), clientH.Create)
	clients.GET("", clientH.List)
	clients.GET("/:id", clientH.GetByID)

	recon := protected.Group("/reconciliations")
	recon.POST("", reconH.Run)
	recon.GET("", reconH.List)
	recon.GET("/:id", reconH.GetByID)
	recon.GET("/:id/report", reconH.Report)

	return r
}
