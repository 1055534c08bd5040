package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/vidigest/backend/internal/api"
	"github.com/vidigest/backend/internal/cache"
	"github.com/vidigest/backend/internal/config"
	"github.com/vidigest/backend/internal/db"
	"github.com/vidigest/backend/internal/health"
	"github.com/vidigest/backend/internal/logger"
	"github.com/vidigest/backend/internal/metrics"
	"github.com/vidigest/backend/internal/middleware"
	"github.com/vidigest/backend/internal/pipeline"
	"github.com/vidigest/backend/internal/queue"
	"github.com/vidigest/backend/internal/storage"
	"github.com/vidigest/backend/internal/summarizer"
	"github.com/vidigest/backend/internal/transcriber"
	"github.com/vidigest/backend/internal/validators"
	"github.com/vidigest/backend/internal/websocket"
	"github.com/vidigest/backend/internal/ytdlp"
)

func main() {
	cfg := config.Load()
	appLog := logger.Default().WithComponent("server")

	database, err := db.New(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	videoRepo := db.NewVideoRepository(database)

	// Redis caches video metadata between runs. The server works without it.
	var metaCache *cache.Cache
	if c, err := cache.New(cfg.RedisAddr); err != nil {
		log.Printf("Redis unavailable, metadata caching disabled: %v", err)
	} else {
		metaCache = c
		defer metaCache.Close()
	}

	// Object storage archives audio and transcripts. Also optional.
	var streamStore *storage.Client
	var archiver storage.Archiver
	if s, err := storage.New(&storage.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	}); err != nil {
		log.Printf("Object storage unavailable, artifact archival disabled: %v", err)
	} else {
		streamStore = s
		if a, err := storage.NewArchiveStorage(cfg); err != nil {
			log.Printf("Archive storage init failed, artifact archival disabled: %v", err)
		} else {
			archiver = a
		}
	}

	downloader, err := ytdlp.New(&ytdlp.Config{
		AudioDir:  cfg.AudioDir,
		YtdlpPath: cfg.YtdlpPath,
	})
	if err != nil {
		log.Fatalf("Failed to initialize downloader: %v", err)
	}

	trans, err := transcriber.New(&transcriber.Config{
		WhisperPath: cfg.WhisperPath,
		ModelPath:   cfg.WhisperModelPath,
		FfmpegPath:  cfg.FfmpegPath,
		FfprobePath: cfg.FfprobePath,
		WorkDir:     cfg.AudioDir,
		Threads:     cfg.WhisperThreads,
	})
	if err != nil {
		log.Fatalf("Failed to initialize transcriber: %v", err)
	}

	summarizerClient, err := summarizer.NewClient(&summarizer.Config{
		BaseURL:    cfg.OpenAIBaseURL,
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.OpenAIModel,
		PromptPath: cfg.PromptPath,
	})
	if err != nil {
		log.Fatalf("Failed to initialize summarizer: %v", err)
	}

	stages, err := pipeline.New(pipeline.Options{
		Downloader:  downloader,
		Transcriber: trans,
		Summarizer:  summarizerClient,
		Repo:        videoRepo,
		Cache:       metaCache,
		Archiver:    archiver,
		Timeouts: pipeline.Timeouts{
			Download:   cfg.DownloadTimeout,
			Transcribe: cfg.TranscribeTimeout,
			Summarize:  cfg.SummarizeTimeout,
		},
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	m := metrics.Default()

	hub := websocket.NewHub()
	hub.SetMetrics(m)
	go hub.Run()
	broadcaster := websocket.NewBroadcaster(hub)
	wsHandler := websocket.NewHandler(hub)

	videoQueue := queue.New()
	processor := queue.NewProcessor(videoQueue, stages, cfg.WorkerCount, broadcaster.ItemUpdate)

	registry := validators.DefaultRegistry()

	queueHandlers := api.NewQueueHandlers(videoQueue, processor, stages, registry, broadcaster, m)
	videoHandlers := api.NewVideoHandlers(videoRepo, stages, registry, streamStore)
	validatorHandlers := validators.NewHandlers(registry)

	checkerCfg := &health.CheckerConfig{
		DB:      database.DB,
		Version: "1.0.0",
	}
	if metaCache != nil {
		checkerCfg.Redis = metaCache.Client()
	}
	if streamStore != nil {
		checkerCfg.StorageCheck = streamStore.Ping
	}
	healthHandler := health.NewHandler(health.NewChecker(checkerCfg))

	router := api.NewRouter(queueHandlers, videoHandlers, validatorHandlers, wsHandler, healthHandler, m)

	handler := middleware.Chain(router,
		middleware.RequestID,
		middleware.Recoverer(appLog),
		middleware.Logging(appLog),
		middleware.Timing,
		middleware.CORS([]string{"*"}),
		metrics.MetricsMiddleware(m),
		middleware.Gzip,
		middleware.ETag,
	)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // long-running downloads and WebSocket connections
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting server on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	// Ask an in-flight run to wind down before closing the listener.
	processor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
