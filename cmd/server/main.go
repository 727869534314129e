package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindcare-api/internal/config"
	"mindcare-api/internal/database"
	"mindcare-api/internal/handlers"
	"mindcare-api/internal/jobs"
	"mindcare-api/internal/logging"
	"mindcare-api/internal/metrics"
	"mindcare-api/internal/ratelimit"
	"mindcare-api/internal/repository"
	"mindcare-api/internal/services"
	"mindcare-api/internal/utils"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	started := time.Now()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	log.WithFields(logrus.Fields{
		"env":      cfg.AppEnv,
		"timezone": cfg.Timezone.String(),
	}).Info("Starting MindCare API")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var store repository.Store
	if cfg.DBDriver == "memory" {
		log.Warn("Using in-memory store; data is lost on restart")
		store = repository.NewMemoryStore()
	} else {
		db, err := database.NewDatabase(ctx, cfg, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize database")
		}
		defer db.Close()
		store = repository.NewPostgresRepository(db.DB)
	}

	apiLimiter, loginLimiter := newLimiters(cfg, log)

	m := metrics.New()
	jwtUtil := utils.NewJWTUtil(cfg.JWTSecret, cfg.JWTExpiration)
	emailService := services.NewEmailService(cfg, services.NewMailer(cfg, log))
	authService := services.NewAuthService(store, jwtUtil, emailService, m, log, cfg.BcryptCost)
	moodService := services.NewMoodService(store, m, log, cfg.Timezone)

	scheduler, err := jobs.NewScheduler(store, m, log, cfg.Timezone)
	if err != nil {
		log.WithError(err).Fatal("Failed to schedule maintenance jobs")
	}
	scheduler.Start()

	router := handlers.NewRouter(handlers.Deps{
		Config:       cfg,
		Store:        store,
		Auth:         authService,
		Mood:         moodService,
		Metrics:      m,
		APILimiter:   apiLimiter,
		LoginLimiter: loginLimiter,
		Log:          log,
		Location:     cfg.Timezone,
		Started:      started,
	})

	// CORS configuration
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.AppPort).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
	scheduler.Stop(shutdownCtx)
}

// newLimiters shares limiter state through Redis when REDIS_URL is set,
// otherwise keeps it in process memory.
func newLimiters(cfg *config.Config, log logrus.FieldLogger) (ratelimit.Limiter, ratelimit.Limiter) {
	if cfg.RedisURL != "" {
		client, err := ratelimit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("Invalid REDIS_URL")
		}
		log.Info("Using Redis rate limiter")
		return ratelimit.NewRedisLimiter(client, "ratelimit:api", cfg.RateLimitMax, cfg.RateLimitWindow),
			ratelimit.NewRedisLimiter(client, "ratelimit:login", cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow)
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
		ratelimit.NewMemoryLimiter(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow)
}
