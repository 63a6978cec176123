package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/primeestates/primeestates/internal/config"
	"github.com/primeestates/primeestates/internal/db"
	httpx "github.com/primeestates/primeestates/internal/http"
	"github.com/primeestates/primeestates/internal/mailer"
	"github.com/primeestates/primeestates/internal/observability"
	"github.com/primeestates/primeestates/internal/redisclient"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	// tracing (optional)
	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracer(context.Background(), "primeestates-api", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	// database
	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	{
		ctx, cancel := config.WithTimeout(10 * time.Second)

		if err := db.EnsureSchema(ctx, pool); err != nil {
			cancel()
			log.Error("schema migration failed", "err", err)
			os.Exit(1)
		}

		if err := db.EnsureAdminUser(ctx, pool, cfg); err != nil {
			cancel()
			log.Error("admin seed failed", "err", err)
			os.Exit(1)
		}

		cancel()
	}

	// redis (optional, backs the shared rate limiter)
	var rc *redisclient.Client

	if cfg.RedisAddr != "" {
		rc = redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		ctx, cancel := config.WithTimeout(2 * time.Second)
		err := rc.Ping(ctx)
		cancel()

		if err != nil {
			log.Warn("redis unreachable, rate limits fall back to per-process buckets", "err", err)
		}

		defer rc.Close()
	}

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	// outbound mail: SMTP when configured, log-only otherwise; always behind
	// the circuit breaker and the delivery counter.
	var mail mailer.Mailer

	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailFromName, log)
	} else {
		log.Warn("no EMAIL_HOST configured, emails go to the process log")
		mail = mailer.NewLogMailer()
	}

	mail = mailer.NewProtectedMailer(mail, mailer.ProtectedMailerConfig{
		Timeout:          8 * time.Second,
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	})
	mail = mailer.NewMetricsMailer(mail, func(result string) {
		prom.MailDeliveriesTotal.WithLabelValues(result).Inc()
	})

	deps := httpx.Deps{
		Cfg:  cfg,
		Log:  log,
		Pool: pool,
		Prom: prom,
		Reg:  reg,
		Mail: mail,
	}

	if rc != nil {
		deps.Rdb = rc.Raw()
	}

	router := httpx.NewRouter(deps)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
