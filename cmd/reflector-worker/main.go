// Reflector worker: runs the diarization DAG engine against queued
// runs, serves the thin HTTP surface (health check, recording-ready
// webhook, WebSocket fan-out), and listens for cross-pod Postgres
// NOTIFY traffic.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/monadical-sas/reflector/internal/audio"
	"github.com/monadical-sas/reflector/internal/blobstore"
	reflectorconfig "github.com/monadical-sas/reflector/internal/config"
	"github.com/monadical-sas/reflector/internal/coordinator"
	"github.com/monadical-sas/reflector/internal/dag"
	"github.com/monadical-sas/reflector/internal/database"
	"github.com/monadical-sas/reflector/internal/events"
	"github.com/monadical-sas/reflector/internal/external/asr"
	"github.com/monadical-sas/reflector/internal/external/llm"
	"github.com/monadical-sas/reflector/internal/httpapi"
	"github.com/monadical-sas/reflector/internal/retention"
	"github.com/monadical-sas/reflector/internal/store"
	"github.com/monadical-sas/reflector/internal/workflow/diarization"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("could not load %s: %v (continuing with existing environment)", envPath, err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := reflectorconfig.Load(filepath.Join(*configDir, "reflector.yaml"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logger.Error("close database client", "error", err)
		}
	}()
	logger.Info("connected to database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	coord := coordinator.New(redisClient, coordinator.WithPrefix(cfg.Redis.Prefix))

	blobs, err := blobstore.New(ctx, blobstore.Config{
		Region:     cfg.Blobstore.Region,
		Bucket:     cfg.Blobstore.Bucket,
		Endpoint:   cfg.Blobstore.Endpoint,
		AccessKey:  cfg.Blobstore.AccessKey,
		SecretKey:  cfg.Blobstore.SecretKey,
		PresignTTL: cfg.Blobstore.PresignTTL,
	}, logger)
	if err != nil {
		log.Fatalf("connect to blob store: %v", err)
	}

	transcriber := asr.NewHTTPTranscriber(cfg.External.ASR.BaseURL, cfg.External.ASR.APIKey, cfg.External.ASR.Model)
	generator, err := llm.NewGRPCGenerator(cfg.External.LLM.Addr)
	if err != nil {
		log.Fatalf("connect to LLM backend: %v", err)
	}
	defer generator.Close()

	notifier := events.NewPGNotifier()
	transcripts := store.New(dbClient.Client, notifier, logger)
	recordings := store.NewRecordingStore(dbClient.Client)

	var notifiers diarization.Notifiers
	if cfg.Notifiers.Zulip.BaseURL != "" {
		notifiers.Zulip = diarization.NewZulipNotifier(cfg.Notifiers.Zulip.BaseURL, cfg.Notifiers.Zulip.Email, cfg.Notifiers.Zulip.APIKey, cfg.Notifiers.Zulip.Stream)
	}
	if cfg.Notifiers.Webhook.URL != "" {
		notifiers.Webhook = diarization.NewWebhookNotifier(cfg.Notifiers.Webhook.URL)
	}

	diarizationServices := &diarization.Services{
		Transcripts: transcripts,
		Recordings:  recordings,
		Coord:       coord,
		Blobs:       blobs,
		Codec:       audio.PassthroughCodec{},
		Transcriber: transcriber,
		Generator:   generator,
		Notifiers:   notifiers,
		Log:         logger,
	}

	registry := dag.NewRegistry()
	diarization.Register(registry, diarizationServices)

	rateLimits := make(map[string]dag.RateLimit, len(cfg.Engine.RateLimits))
	for name, rl := range cfg.Engine.RateLimits {
		rateLimits[name] = dag.RateLimit{RPS: rl.RPS, Burst: rl.Burst}
	}

	sink := diarization.NewSink(transcripts, logger)
	engine := dag.NewEngine(dbClient.Client, dag.EngineConfig{
		PodID:      cfg.Engine.PodID,
		Registry:   registry,
		Pools:      dag.NewPoolSet(cfg.Engine.Pools, cfg.Engine.DefaultPoolSize),
		RateLimits: dag.NewRateLimiter(rateLimits),
		Sink:       sink,
	})
	diarizationServices.Log.Info("registered diarization workflow", "workflow", diarization.WorkflowName)

	runner := dag.NewRunner(engine, []*dag.Graph{diarization.Graph()}, cfg.Engine.PollInterval, cfg.Engine.PollJitter)
	go runner.Run(ctx)

	var retentionSvc *retention.Service
	if cfg.Retention.Enabled {
		retentionSvc = retention.NewService(dbClient.Client, transcripts, blobs, cfg.Retention.Days, cfg.Retention.Interval, logger)
		retentionSvc.Start(ctx)
	}

	catchup := events.NewEventCatchup(dbClient.Client)
	connManager := events.NewConnectionManager(catchup, cfg.WebSocket.WriteTimeout)
	listenDSN := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host, dbConfig.Port, dbConfig.User, dbConfig.Password, dbConfig.Database, dbConfig.SSLMode,
	)
	listener := events.NewNotifyListener(listenDSN, connManager)
	connManager.SetListener(listener)
	if err := listener.Start(ctx); err != nil {
		log.Fatalf("start notify listener: %v", err)
	}

	server := &httpapi.Server{
		Engine:      engine,
		Diarization: diarizationServices,
		ConnManager: connManager,
		Log:         logger,
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	go func() {
		logger.Info("http server listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	runner.Stop()
	if retentionSvc != nil {
		retentionSvc.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	listener.Stop(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}
}
