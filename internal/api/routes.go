package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"handrating-backend/internal/config"
	"handrating-backend/internal/core"
	"handrating-backend/internal/middleware"
)

// Dependencies are the services and clients the routes are built from.
type Dependencies struct {
	Config           *config.Config
	Logger           *zap.Logger
	TokenVerifier    middleware.TokenVerifier
	UserService      core.UserService
	BillingService   core.BillingService
	CritiqueService  core.CritiqueService
	DashboardService core.DashboardService
	FirestorePing    FirestorePinger
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (request id, logging, recovery, CORS) is applied in main.go before this is called.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	authMW := middleware.NewAuthMiddleware(deps.TokenVerifier, logger)

	authHandler := NewAuthHandler(deps.UserService, logger)
	userHandler := NewUserHandler(deps.UserService, logger)
	billingHandler := NewBillingHandler(deps.BillingService, logger)
	critiqueHandler := NewCritiqueHandler(deps.CritiqueService, logger)
	dashboardHandler := NewDashboardHandler(deps.DashboardService, logger)

	apiV1 := router.Group("/api/v1")
	{
		users := apiV1.Group("/users", authMW.VerifyToken())
		{
			users.POST("/initialize", authHandler.InitializeUserProfile)
			users.GET("/me", userHandler.GetCurrentUserProfile)
			users.PUT("/me/language", userHandler.UpdateLanguage)
			users.PUT("/me/onboarding", userHandler.SaveOnboarding)
			users.GET("/me/credits", userHandler.GetCredits)
		}

		apiV1.GET("/dashboard", authMW.VerifyToken(), dashboardHandler.GetDashboard)

		billing := apiV1.Group("/billing")
		{
			billing.POST("/create-checkout-session", authMW.VerifyToken(), billingHandler.CreateCheckoutSession)
			// Public: Stripe authenticates webhooks via signature, verified by the service.
			billing.POST("/webhooks/stripe", billingHandler.HandleStripeWebhook)
		}

		critiques := apiV1.Group("/critiques", authMW.VerifyToken())
		{
			critiques.POST("", middleware.UploadLimit(deps.Config.UploadMaxBytes()), critiqueHandler.GenerateCritique)
			critiques.GET("", critiqueHandler.ListCritiques)
			critiques.GET("/:critiqueId", critiqueHandler.GetCritique)
		}
	}

	if deps.Config.DebugEndpointsEnabled() {
		debugHandler := NewDebugHandler(deps.Config, billingHandler, deps.FirestorePing, logger)
		debug := router.Group("/debug")
		{
			debug.GET("/env-check", debugHandler.EnvCheck)
			debug.GET("/firestore", debugHandler.FirestorePing)
			debug.POST("/simulate-webhook", debugHandler.SimulateWebhook)
		}
		logger.Warn("debug endpoints enabled under /debug")
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Hand Rating backend is healthy."})
	})
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
