package routes

import (
	"net/http"

	"account-service/internal/config"
	"account-service/internal/delivery/http/handler"
	"account-service/internal/infrastructure/database/postgres"
	"account-service/internal/logger"
	"account-service/internal/mailer"
	"account-service/internal/middleware"
	"account-service/internal/usecase/account"
	"account-service/internal/usecase/oauth"

	"github.com/gin-gonic/gin"
)

// Services holds the wired use-case layer so main can run startup tasks
// against the same instances the handlers use.
type Services struct {
	Account *account.Service
	OAuth   *oauth.Service
}

func SetupRoutes(cfg *config.Config, db *postgres.DB) (*gin.Engine, *Services) {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware order: recovery, request ID, logging, security headers,
	// CORS, request size limit, general rate limit.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst))

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "Database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
		})
	})

	userRepository := postgres.NewUserRepository(db)
	profileRepository := postgres.NewProfileRepository(db)
	tokenRepository := postgres.NewTokenRepository(db)
	oauthRepository := postgres.NewOAuthRepository(db)

	tokenService := account.NewTokenService(tokenRepository, cfg.Security.TokenTTL())
	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP)
	accountService := account.NewService(
		userRepository, profileRepository, oauthRepository, tokenService, smtpMailer, cfg,
	)
	oauthService := oauth.NewService(userRepository, oauthRepository, cfg)

	accountHandler := handler.NewAccountHandler(accountService)
	profileHandler := handler.NewProfileHandler(accountService)
	oauthHandler := handler.NewOAuthHandler(oauthService, accountService)

	v1 := router.Group("/api/v1")
	{
		// Credential endpoints get a tighter limiter on top of the
		// general one.
		public := v1.Group("")
		public.Use(middleware.RateLimitMiddleware(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst))
		{
			accountHandler.RegisterRoutes(public)
			oauthHandler.RegisterRoutes(public)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			profileHandler.RegisterSessionRoutes(protected)

			guarded := protected.Group("")
			guarded.Use(middleware.GuestReadOnlyMiddleware(cfg))
			{
				profileHandler.RegisterRoutes(guarded)
				oauthHandler.RegisterProtectedRoutes(guarded)
			}
		}
	}

	logger.Info("All routes initialized")

	return router, &Services{
		Account: accountService,
		OAuth:   oauthService,
	}
}
