package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/propertylease/internal/domain"
	"github.com/yourorg/propertylease/internal/featureflags"
	"github.com/yourorg/propertylease/internal/gateway"
	"github.com/yourorg/propertylease/internal/handler"
	"github.com/yourorg/propertylease/internal/infrastructure/logger"
	"github.com/yourorg/propertylease/internal/infrastructure/redis"
	"github.com/yourorg/propertylease/internal/observability/metrics"
	"github.com/yourorg/propertylease/internal/observability/tracing"
	"github.com/yourorg/propertylease/internal/repository"
	"github.com/yourorg/propertylease/internal/security"
	"github.com/yourorg/propertylease/internal/security/audit"
	"github.com/yourorg/propertylease/internal/security/auth"
	"github.com/yourorg/propertylease/internal/security/middleware"
	"github.com/yourorg/propertylease/internal/security/ratelimit"
	"github.com/yourorg/propertylease/internal/service"
	"github.com/yourorg/propertylease/internal/worker"
	"github.com/yourorg/propertylease/pkg/cache"
	"github.com/yourorg/propertylease/pkg/config"
	"github.com/yourorg/propertylease/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting PropertyLease server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, "propertylease", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	store := repository.NewPostgresStore(pool.GetDB(), log)
	stripeGateway := gateway.NewStripeGateway(cfg.StripeSecretKey, log)

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "propertylease")
	authz := security.NewAuthorizationService(log)
	resolver := security.NewOwnershipResolver(store, log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)
	roomCodeCache := cache.New()

	authService := service.NewAuthService(store, tokenManager, log)
	unitService := service.NewUnitService(store, resolver, roomCodeCache, nil, log)
	onboardingService := service.NewOnboardingService(store, tokenManager, log)
	paymentService := service.NewPaymentService(store, stripeGateway, resolver, authz, redisClient, nil, log)

	authHandler := handler.NewAuthHandler(authService, log)
	onboardingHandler := handler.NewOnboardingHandler(onboardingService, unitService, log)
	unitHandler := handler.NewUnitHandler(unitService, log)
	paymentHandler := handler.NewPaymentHandler(paymentService, log)
	healthHandler := handler.NewHealthHandler(pool.GetDB(), redisClient, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)

	mux.HandleFunc("POST /api/tenants/register", onboardingHandler.Register)
	mux.HandleFunc("POST /api/tenants/validate-room-code", onboardingHandler.ValidateRoomCode)

	mux.HandleFunc("POST /api/buildings", unitHandler.CreateBuilding)
	mux.HandleFunc("GET /api/buildings", unitHandler.ListBuildings)
	mux.HandleFunc("GET /api/buildings/{id}/units", unitHandler.ListUnits)
	mux.HandleFunc("POST /api/units", unitHandler.CreateUnit)
	mux.HandleFunc("POST /api/units/{id}/room-code", unitHandler.RegenerateRoomCode)
	mux.HandleFunc("POST /api/units/{id}/release", unitHandler.ReleaseLease)

	mux.HandleFunc("POST /api/payments", paymentHandler.Submit)
	mux.HandleFunc("GET /api/payments", paymentHandler.ListMine)
	mux.HandleFunc("POST /api/payments/manual", paymentHandler.RecordManual)
	mux.HandleFunc("GET /api/payments/{id}", paymentHandler.Get)
	mux.HandleFunc("POST /api/payments/{id}/refund", paymentHandler.Refund)
	mux.HandleFunc("GET /api/owner/payments", paymentHandler.ListOwner)

	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain: request ID -> JWT -> audit -> rate limit -> content type -> CORS
	// -> mux. JWT sits outermost of the three so audit entries carry the user
	// id and the rate limiter buckets per authenticated user instead of per
	// client address.
	rootHandler := withRequestID(
		middleware.JWTMiddleware(tokenManager, log)(
			middleware.AuditMiddleware(auditLogger)(
				middleware.RateLimitMiddleware(rateLimiter, log)(
					middleware.ValidateJSONContentType(log)(handlerWithCORS),
				),
			),
		),
		log,
	)
	rootHandler = metrics.HTTPMetricsMiddleware(rootHandler)
	rootHandler = otelhttp.NewHandler(rootHandler, "propertylease.http")

	reconcileWorker := worker.NewReconcileWorker(
		store,
		paymentService,
		log,
		time.Duration(cfg.ReconcileIntervalMinutes)*time.Minute,
		time.Duration(cfg.PendingReconcileAfterMinutes)*time.Minute,
	)
	go reconcileWorker.Start(ctx)

	if featureflags.Enabled("late_fees") {
		lateFeeWorker := worker.NewLateFeeWorker(
			store,
			paymentService,
			log,
			time.Duration(cfg.LateFeeSweepMinutes)*time.Minute,
			domain.Cents(cfg.LateFeeCents),
		)
		go lateFeeWorker.Start(ctx)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // stop workers
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
