package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/SATANA888791/mail-registry/internal/infra/config"
	infraredis "github.com/SATANA888791/mail-registry/internal/infra/redis"
	"github.com/SATANA888791/mail-registry/internal/transport/http/handlers"
	"github.com/SATANA888791/mail-registry/internal/transport/http/middleware"
	"github.com/SATANA888791/mail-registry/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth      *usecase.AuthService
	Numbering *usecase.NumberingService
	Letters   *usecase.LetterService
	Users     *usecase.UserAdminService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	HTTPMetrics *middleware.HTTPMetrics
	Services    ServiceSet
	Database    *pgxpool.Pool
	Cache       *infraredis.Client
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware())
	}

	requireAuth := middleware.RequireAuth(deps.Services.Auth)
	requireAdmin := middleware.RequireAdmin()

	healthHandler := handlers.NewHealthHandler(deps.Database, deps.Cache, deps.Logger)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Logger)

		authGroup := api.Group("/auth")
		loginHandlers := append(buildLoginMiddlewares(deps), authHandler.Login)
		authGroup.POST("/login", loginHandlers...)
		authGroup.GET("/me", requireAuth, authHandler.Me)

		numberingHandler := handlers.NewNumberingHandler(deps.Services.Numbering, deps.Logger)
		numbersGroup := api.Group("/numbers")
		numbersGroup.Use(requireAuth)
		numbersGroup.GET("/dashboard", numberingHandler.Dashboard)

		lettersHandler := handlers.NewLettersHandler(deps.Services.Letters, deps.Logger)
		lettersGroup := api.Group("/letters")
		lettersGroup.Use(requireAuth)
		lettersGroup.POST("/outgoing", lettersHandler.RegisterOutgoing)
		lettersGroup.POST("/incoming", lettersHandler.RegisterIncoming)
		lettersGroup.GET("/:domain", lettersHandler.List)
		lettersGroup.GET("/:domain/:id", lettersHandler.Get)
		lettersGroup.DELETE("/:domain/:id", lettersHandler.Delete)
		lettersGroup.POST("/:domain/:id/attachments", lettersHandler.Attach)

		adminGroup := api.Group("/admin")
		adminGroup.Use(requireAuth, requireAdmin)

		adminGroup.POST("/numbering/:domain/reset", numberingHandler.Reset)
		adminGroup.POST("/numbering/:domain/release", numberingHandler.Release)

		usersHandler := handlers.NewAdminUsersHandler(deps.Services.Users, deps.Logger)
		adminGroup.GET("/users", usersHandler.List)
		adminGroup.POST("/users", usersHandler.Create)
		adminGroup.PUT("/users/:id", usersHandler.Update)
		adminGroup.DELETE("/users/:id", usersHandler.Delete)
		adminGroup.POST("/users/:id/block", usersHandler.Block)
		adminGroup.POST("/users/:id/unblock", usersHandler.Unblock)
		adminGroup.GET("/activity", usersHandler.Activity)
		adminGroup.GET("/login-attempts", usersHandler.LoginAttempts)
	}

	return r
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.LoginMaxAttempts
	window := deps.Config.RateLimit.WindowDuration
	if limit <= 0 || window <= 0 {
		return nil
	}

	rule := middleware.RateLimitRule{
		Name:       "login",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
