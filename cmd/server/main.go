package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"muralhub/internal/api"
	"muralhub/internal/api/handlers"
	"muralhub/internal/api/middleware"
	"muralhub/internal/engine/claims"
	"muralhub/internal/engine/notify"
	"muralhub/internal/engine/organizations"
	"muralhub/internal/pkg/logger"
	"muralhub/internal/pkg/validator"
	"muralhub/internal/platform/audit"
	"muralhub/internal/platform/auth"
	"muralhub/internal/platform/config"
	"muralhub/internal/platform/database"
	"muralhub/internal/platform/repositories"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Repositories
	orgRepo := repositories.NewOrganizationRepository(db)
	userRepo := repositories.NewUserRepository(db)
	auditLog := audit.NewLogger(db)

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)
	dispatcher := notify.NewDispatcher(cfg.Support)
	if !dispatcher.Enabled() {
		log.Warn().Msg("support webhook not configured; blocked claims will not be forwarded")
	}
	claimsSvc := claims.NewService(orgRepo, userRepo, validator.NewDomainSet(cfg.Claims.GenericEmailDomains...), cfg.Claims.SupportContactURL, claims.NewMetrics(registry))
	orgSvc := organizations.NewService(orgRepo, userRepo, claimsSvc, auditLog, dispatcher, cfg.Claims.FallbackAdminEmail)

	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	defer limiter.Stop()

	router := api.NewRouter(&api.Dependencies{
		AuthHandler:    handlers.NewAuthHandler(orgSvc, userRepo, orgRepo, tokenSvc),
		ClaimsHandler:  handlers.NewClaimsHandler(claimsSvc),
		OrgHandler:     handlers.NewOrgHandler(orgSvc),
		UserHandler:    handlers.NewUserHandler(orgSvc),
		AuditHandler:   handlers.NewAuditHandler(orgSvc, auditLog),
		HealthHandler:  handlers.NewHealthHandler(db),
		MetricsHandler: handlers.NewMetricsHandler(registry),
		AuthMiddleware: middleware.NewAuthMiddleware(tokenSvc),
		RateLimiter:    limiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
