package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/primeestates/primeestates/internal/auth"
	"github.com/primeestates/primeestates/internal/cache"
	"github.com/primeestates/primeestates/internal/config"
	"github.com/primeestates/primeestates/internal/http/handlers"
	"github.com/primeestates/primeestates/internal/http/middlewares"
	"github.com/primeestates/primeestates/internal/mailer"
	"github.com/primeestates/primeestates/internal/observability"
	"github.com/primeestates/primeestates/internal/repo/postgres"
)

const maxBodyBytes = 1 << 20 // 1 MiB is plenty for auth payloads

// Deps carries everything the router wires together. Optional members may be
// nil: rdb (rate limiting falls back to per-process buckets) and reg/prom
// (metrics middleware and /metrics are skipped).
type Deps struct {
	Cfg  config.Config
	Log  *slog.Logger
	Pool *pgxpool.Pool
	Rdb  *redis.Client
	Prom *observability.Prom
	Reg  *prometheus.Registry
	Mail mailer.Mailer
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	if d.Cfg.TracingEnabled {
		r.Use(otelgin.Middleware("primeestates-api"))
	}

	// health
	ping := func(ctx context.Context) error {
		if d.Pool == nil {
			return nil
		}

		return d.Pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Reg, promhttp.HandlerOpts{})))
	}

	// wire up repositories and services
	usersRepo := postgres.NewUsersRepo(d.Pool, d.Prom)
	jwtManager := auth.NewManager(d.Cfg.JWTSecret, d.Cfg.SessionTTL())
	authService := auth.NewService(usersRepo, d.Mail, jwtManager, d.Cfg)

	authHandler := handlers.NewAuthHandler(authService, d.Cfg)
	usersHandler := handlers.NewUsersHandler(usersRepo, cache.New(10*time.Second))

	authMw := middlewares.NewAuthMiddleware(jwtManager, d.Cfg.CookieName)

	// Public endpoints that either send email or check credentials get a
	// per-IP limit; the rest of the auth surface stays open.
	limiter := middlewares.NewRateLimiter(d.Rdb, 10, time.Minute)
	limited := limiter.RateLimiterMiddleware(middlewares.KeyByIP)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", limited, authHandler.Register)
		authGroup.GET("/verify-email/:token", authHandler.VerifyEmail)
		authGroup.POST("/login", limited, authHandler.Login)
		authGroup.GET("/logout", authHandler.Logout)
		authGroup.POST("/resend-verification", limited, authHandler.ResendVerification)
		authGroup.POST("/forgot-password", limited, authHandler.ForgotPassword)
		authGroup.POST("/reset-password/:token", authHandler.ResetPassword)
		authGroup.GET("/me", authMw.RequireAuth(), authHandler.Me)
	}

	adminGroup := r.Group("/users", authMw.RequireAuth(), authMw.RequireRole("admin"))
	{
		adminGroup.GET("", usersHandler.ListUsers)
		adminGroup.GET("/:id", usersHandler.GetUserByID)
		adminGroup.PATCH("/:id/role", usersHandler.UpdateUserRole)
	}

	return r
}
