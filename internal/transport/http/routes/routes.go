package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/infra/config"
	"github.com/SwagatoSarowar/Natours/internal/infra/telemetry"
	"github.com/SwagatoSarowar/Natours/internal/transport/http/handlers"
	"github.com/SwagatoSarowar/Natours/internal/transport/http/middleware"
	"github.com/SwagatoSarowar/Natours/internal/usecase"
)

const defaultRateLimitWindow = 15 * time.Minute

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth      *usecase.AuthService
	Passwords *usecase.PasswordService
	Resets    *usecase.PasswordResetService
	Users     *usecase.UserService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	AuthMetrics *telemetry.AuthMetrics
	HTTPMetrics *middleware.HTTPMetrics
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Database DatabaseChecker
	Cache    CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing())
	r.Use(middleware.AccessLog(deps.Logger))
	r.Use(middleware.CORS(cfg.App.CORSOrigins))
	r.Use(deps.HTTPMetrics.Handler())

	r.NoRoute(func(c *gin.Context) {
		middleware.AbortWithError(c, domain.NotFound("Can't find "+c.Request.URL.Path+" on this server"))
	})

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("postgres", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	health := handlers.NewHealthHandler(deps.Logger, healthOptions...)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	cookie := handlers.CookieOptions{Enabled: cfg.JWT.CookieEnabled, Secure: cfg.JWT.CookieSecure}
	protect := middleware.RequireAuth(deps.Services.Auth, middleware.AuthOptions{
		AllowCookie: cfg.JWT.CookieEnabled,
		Recorder:    deps.AuthMetrics,
	})

	authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.AuthMetrics, cookie, deps.Logger)
	passwordHandler := handlers.NewPasswordHandler(deps.Services.Passwords, deps.Services.Resets, deps.AuthMetrics, cookie, deps.Logger)
	userHandler := handlers.NewUserHandler(deps.Services.Users, deps.Logger)

	users := r.Group("/api/v1/users")
	{
		users.POST("/signup", withLimit(deps, "signup", cfg.RateLimit.SignupMaxAttempts, authHandler.Signup)...)
		users.POST("/signin", withLimit(deps, "signin", cfg.RateLimit.SigninMaxAttempts, authHandler.Signin)...)
		users.POST("/forget-password", withLimit(deps, "forget_password", cfg.RateLimit.PasswordResetMaxAttempts, passwordHandler.ForgetPassword)...)
		users.PATCH("/reset-password/:token", withLimit(deps, "reset_password", cfg.RateLimit.PasswordResetMaxAttempts, passwordHandler.ResetPassword)...)

		users.PATCH("/update-password", protect, passwordHandler.UpdatePassword)
		users.GET("/me", protect, userHandler.Me)
		users.PATCH("/update-current-user", protect, userHandler.UpdateCurrentUser)
		users.DELETE("/delete-current-user", protect, userHandler.DeleteCurrentUser)

		users.GET("", protect, middleware.RestrictTo(deps.AuthMetrics, domain.RoleAdmin, domain.RoleLeadGuide), userHandler.List)
	}

	if cfg.App.DocsEnabled {
		handlers.RegisterSwagger(r)
	}

	return r
}

// withLimit prefixes handler with a per-IP sliding window when limiting is
// configured for the route.
func withLimit(deps Dependencies, name string, limit int, handler gin.HandlerFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return []gin.HandlerFunc{handler}
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = defaultRateLimitWindow
	}

	rule := middleware.RateLimitRule{
		Name:   name,
		Limit:  limit,
		Window: window,
		Key:    middleware.ByClientIP(),
	}
	return []gin.HandlerFunc{deps.RateLimiter.Limit(rule), handler}
}
