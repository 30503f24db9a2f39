package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cardion-health/precert/internal/decision"
	"github.com/cardion-health/precert/internal/export"
	"github.com/cardion-health/precert/internal/patient"
	"github.com/cardion-health/precert/internal/qualification"
	"github.com/cardion-health/precert/internal/review"
	"github.com/cardion-health/precert/internal/rules"
	"github.com/cardion-health/precert/internal/shared/auth"
	"github.com/cardion-health/precert/internal/shared/config"
	"github.com/cardion-health/precert/internal/shared/database"
	"github.com/cardion-health/precert/internal/shared/events"
	"github.com/cardion-health/precert/internal/shared/logger"
	"github.com/cardion-health/precert/internal/shared/metrics"
	secmiddleware "github.com/cardion-health/precert/internal/shared/middleware"
	"github.com/cardion-health/precert/internal/survey"
	"github.com/cardion-health/precert/internal/training"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *database.DB
	Bus    *events.Bus
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	app := &App{Config: cfg, Log: log}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	app.DB = db
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	// Event bus is optional; without it the API runs but publishes no
	// change notifications.
	if cfg.EventStore.Enabled {
		bus, err := events.NewBus(ctx, cfg.EventStore)
		if err != nil {
			log.Warn("event store not available, running without change notifications", zap.Error(err))
		} else {
			app.Bus = bus
			defer bus.Close()
			log.Info("event bus initialized",
				zap.String("host", cfg.EventStore.Host), zap.Int("port", cfg.EventStore.Port))
		}
	}

	// Repositories
	patientRepo := patient.NewRepository(db.Pool)
	ruleRepo := rules.NewRepository(db.Pool)
	reviewRepo := review.NewRepository(db, ruleRepo)
	surveyRepo := survey.NewRepository(db)
	trainingRepo := training.NewRepository(db)

	if err := ruleRepo.SeedDefaults(ctx); err != nil {
		log.Warn("seeding default rules failed", zap.Error(err))
	}

	// Decision engine
	llmClient := decision.NewClient(cfg.LLM)
	engine := decision.NewEngine(patientRepo, ruleRepo, surveyRepo, llmClient, app.Bus, log)

	// SMS
	var sender survey.Sender
	if cfg.SMS.Enabled {
		sender = survey.NewHTTPSender(cfg.SMS, log)
		log.Info("sms sending enabled", zap.String("from", cfg.SMS.FromNumber))
	} else {
		sender = survey.NewMockSender()
		log.Info("sms sending disabled, outbound messages are captured in memory")
	}
	surveyService := survey.NewService(surveyRepo, patientRepo, sender, app.Bus, log)

	// Retention purge job
	purger := patient.NewPurger(patientRepo, cfg.Retention.PatientTTL, cfg.Retention.PurgeInterval, log)
	go purger.Start(ctx)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(secmiddleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.MaxBodySize(5 << 20))
	r.Use(metrics.Middleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// Provider webhook: authenticated by signature, not JWT, and rate
	// limited per source IP.
	webhookLimiter := secmiddleware.NewIPRateLimiter(10, 20)
	webhook := survey.NewWebhookHandler(surveyService, cfg.SMS, log)
	r.With(webhookLimiter.Middleware).Post("/webhooks/sms", webhook.Inbound)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Server.Env == "production" {
			r.Use(auth.Middleware(cfg.Auth))
		}

		patientHandler := patient.NewHandler(patientRepo, engine, app.Bus)
		r.Mount("/patients", patientHandler.Routes())

		qualHandler := qualification.NewHandler(patientRepo, app.Bus)
		r.Mount("/qualification", qualHandler.Routes())

		ruleHandler := rules.NewHandler(ruleRepo)
		r.Mount("/rules", ruleHandler.Routes())

		reviewHandler := review.NewHandler(reviewRepo, patientRepo, engine, app.Bus)
		r.Mount("/reviews", reviewHandler.Routes())

		surveyHandler := survey.NewHandler(surveyService, surveyRepo)
		r.Mount("/surveys", surveyHandler.Routes())

		exportHandler := export.NewHandler(patientRepo, reviewRepo)
		r.Mount("/export", exportHandler.Routes())

		trainingHandler := training.NewHandler(trainingRepo, reviewRepo)
		r.Mount("/training-examples", trainingHandler.Routes())
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
		close(done)
	}()

	log.Info("server starting",
		zap.String("env", cfg.Server.Env),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("patient_ttl", cfg.Retention.PatientTTL))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}

	<-done
	log.Info("server stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if err := app.DB.Health(r.Context()); err != nil {
			checks["database"] = "not ready: " + err.Error()
		} else {
			checks["database"] = "ready"
		}

		if app.Bus != nil {
			if err := app.Bus.Health(); err != nil {
				checks["eventstore"] = "not ready: " + err.Error()
			} else {
				checks["eventstore"] = "ready"
			}
		} else {
			checks["eventstore"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}
