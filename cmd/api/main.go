package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/doctorconsole/internal/adapters/audio"
	"github.com/zatekoja/doctorconsole/internal/adapters/cache"
	"github.com/zatekoja/doctorconsole/internal/adapters/database"
	"github.com/zatekoja/doctorconsole/internal/adapters/drafts"
	"github.com/zatekoja/doctorconsole/internal/adapters/events"
	"github.com/zatekoja/doctorconsole/internal/api/handlers"
	"github.com/zatekoja/doctorconsole/internal/api/routes"
	"github.com/zatekoja/doctorconsole/internal/application/services"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
	"github.com/zatekoja/doctorconsole/internal/domain/repositories"
	"github.com/zatekoja/doctorconsole/internal/infrastructure/clients/clinicapi"
	"github.com/zatekoja/doctorconsole/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/doctorconsole/internal/infrastructure/clients/redis"
	"github.com/zatekoja/doctorconsole/internal/infrastructure/observability"
	"github.com/zatekoja/doctorconsole/pkg/config"
)

const redisKeyPrefix = "console:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// The transcription gateway is always the clinic API; queue and
	// consultation storage follow the backend mode.
	clinicClient := clinicapi.NewClient(cfg.Clinic.APIBaseURL, clinicapi.WithToken(cfg.Clinic.APIToken))
	var backend providers.ClinicBackend = clinicClient

	if cfg.Clinic.BackendMode == config.BackendModeDatabase {
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()

		clinicAdapter := database.NewClinicAdapter(pgClient)
		if err := clinicAdapter.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate clinic schema")
		}
		backend = clinicAdapter
	}
	log.Info().Str("mode", cfg.Clinic.BackendMode).Msg("Clinic backend configured")

	var eventBus providers.EventBus
	var cacheProvider providers.CacheProvider
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis client")
		}
		defer redisClient.Close()

		cacheProvider = cache.NewRedisAdapter(redisClient, redisKeyPrefix)
		eventBus = events.NewRedisEventBus(redisClient)
		log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis event bus initialized")
	} else {
		eventBus = events.NewMemoryEventBus()
	}

	var draftRepo repositories.DraftRepository
	switch cfg.Drafts.Store {
	case "redis":
		draftRepo = drafts.NewCacheRepository(cacheProvider, cfg.Drafts.TTL)
	default:
		draftRepo = drafts.NewMemoryRepository()
	}

	var device providers.AudioDevice
	switch cfg.Audio.Device {
	case "ffmpeg":
		ffmpeg := audio.NewFFmpegDevice(&cfg.Audio)
		if err := ffmpeg.CheckFFmpeg(); err != nil {
			log.Warn().Err(err).Msg("ffmpeg unavailable, recordings will fail to start")
		}
		device = ffmpeg
	default:
		device = audio.NewBufferDevice("", audio.DefaultMaxBytes)
	}

	queueController := services.NewQueueController(backend, backend, eventBus, metrics)
	recordingService := services.NewRecordingService(services.NewRecordingSlot(), device, clinicClient, eventBus, metrics)
	consultationService := services.NewConsultationService(draftRepo, backend, eventBus, metrics)
	workflow := services.NewConsultationWorkflow(recordingService, consultationService)

	router := routes.NewRouter(
		handlers.NewQueueHandler(queueController),
		handlers.NewRecordingHandler(recordingService, workflow),
		handlers.NewConsultationHandler(consultationService),
		handlers.NewSSEHandler(eventBus, recordingService),
		metrics,
		cfg.Server.AllowedOrigins,
	)

	// No write timeout: event streams stay open and uploads may be slow
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	// Free the capture device if a recording is still open
	if _, err := recordingService.Discard(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Recording left open at shutdown")
	}

	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
