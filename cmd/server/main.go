package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowenci/interview-coach/internal/analysis"
	"github.com/flowenci/interview-coach/internal/api"
	"github.com/flowenci/interview-coach/internal/auth"
	"github.com/flowenci/interview-coach/internal/config"
	"github.com/flowenci/interview-coach/internal/events"
	"github.com/flowenci/interview-coach/internal/grpcserver"
	"github.com/flowenci/interview-coach/internal/interviewer"
	"github.com/flowenci/interview-coach/internal/llm"
	"github.com/flowenci/interview-coach/internal/observability"
	"github.com/flowenci/interview-coach/internal/practice"
	"github.com/flowenci/interview-coach/internal/queue"
	"github.com/flowenci/interview-coach/internal/resilience"
	"github.com/flowenci/interview-coach/internal/roleplay"
	"github.com/flowenci/interview-coach/internal/storage"
	"github.com/flowenci/interview-coach/internal/store"
	"github.com/flowenci/interview-coach/internal/stt"
	"github.com/flowenci/interview-coach/internal/tts"
)

const (
	shutdownTimeout     = 30 * time.Second
	healthProbeInterval = 15 * time.Second
	abandonTimeout      = 5 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("stt_provider", cfg.STTProvider).
		Str("tts_provider", cfg.TTSProvider).
		Str("queue_backend", cfg.QueueBackend).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Interview coach starting")

	// Cancelled first on shutdown; closes live interview connections
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	reconnect := &resilience.ReconnectConfig{
		MaxAttempts: cfg.ReconnectMaxAttempts,
		Backoff:     time.Duration(cfg.ReconnectBackoff) * time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
	}

	var ds *store.Store
	err = resilience.Reconnect(baseCtx, "postgres", func() error {
		var err error
		ds, err = store.New(baseCtx, cfg.DatabaseURL)
		return err
	}, reconnect)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer ds.Close()
	if err := ds.Migrate(baseCtx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to apply schema")
	}

	openaiAPI := llm.NewOpenAI(cfg)
	chat := llm.NewOpenAIClient(openaiAPI, cfg)

	var transcriber stt.Transcriber
	switch cfg.STTProvider {
	case "deepgram":
		transcriber = stt.NewDeepgramClient(cfg)
	default:
		transcriber = stt.NewWhisperClient(openaiAPI, cfg)
	}

	var speech tts.Synthesizer
	switch cfg.TTSProvider {
	case "cartesia":
		speech = tts.NewCartesiaClient(cfg)
	case "none":
		speech = tts.Noop{}
	default:
		speech = tts.NewOpenAISpeech(openaiAPI, cfg)
	}

	personas, err := interviewer.LoadPersonas(cfg.PersonasFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load personas")
	}
	generator := interviewer.NewGenerator(chat, personas, logger)
	pipeline := analysis.NewPipeline(transcriber, chat, logger)

	publisher := events.New(&events.Config{
		Brokers:       cfg.KafkaBrokers,
		TopicAnalysis: cfg.KafkaTopicAnalysis,
		TopicSessions: cfg.KafkaTopicSessions,
		Enabled:       cfg.KafkaEnabled,
	})

	uploads, err := storage.NewLocalStorage(cfg.UploadDir, cfg.MaxUploadBytes())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to prepare upload directory")
	}
	cleanup := storage.NewScheduler(
		cfg.UploadDir,
		time.Duration(cfg.CleanupIntervalMinutes)*time.Minute,
		time.Duration(cfg.UploadRetentionHours)*time.Hour,
		logger,
	)
	cleanup.Start()

	// Analysis jobs
	runner := practice.NewRunner(ds, pipeline, uploads, publisher, logger)
	pool := queue.NewPool(cfg.AnalysisWorkers, cfg.AnalysisQueueSize, runner.Handle, logger)
	pool.OnPanic(runner.MarkFailed)
	pool.Start()

	checks := []observability.DependencyCheck{
		{Name: "database", Check: ds.Ping},
		{Name: "llm", Check: chat.Healthy},
	}

	var enqueuer queue.Enqueuer = pool
	var broker *queue.AMQPBroker
	if cfg.QueueBackend == "rabbitmq" {
		broker, err = queue.NewAMQPBroker(baseCtx, cfg.RabbitMQURL, cfg.RabbitMQQueue, reconnect, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		enqueuer = broker
		checks = append(checks, observability.DependencyCheck{Name: "rabbitmq", Check: broker.Healthy})
		go func() {
			if err := broker.Consume(baseCtx, pool); err != nil {
				logger.Error().Err(err).Msg("Analysis job consumer stopped")
			}
		}()
	}

	// Roleplay sessions
	markAbandoned := func(s *roleplay.Session) {
		if s.DBSessionID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), abandonTimeout)
		defer cancel()
		err := ds.FinishInterviewSession(ctx, s.DBSessionID, store.SessionFinish{
			History: s.History,
			Status:  store.SessionAbandoned,
		})
		if err != nil {
			logger.Error().Err(err).Str("db_session_id", s.DBSessionID).Msg("Failed to mark session abandoned")
		}
	}
	registry := roleplay.NewRegistry(cfg.SessionIdleTTL(), logger)
	registry.OnEvict(markAbandoned)
	registry.StartJanitor(cfg.SessionSweepInterval())
	interviews := roleplay.NewHandler(registry, generator, speech, ds, publisher, logger)

	srv := api.NewServer(baseCtx, api.Deps{
		Store:     ds,
		Tokens:    auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL()),
		Uploads:   uploads,
		Queue:     enqueuer,
		Registry:  registry,
		Roleplay:  interviews,
		Evaluator: generator,
		Checks:    checks,
		Metrics:   cfg.MetricsEnabled,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	grpcHealth := grpcserver.New(checks, healthProbeInterval, logger)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCHealthPort))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to bind gRPC health port")
	}
	go func() {
		logger.Info().Str("port", cfg.GRPCHealthPort).Msg("gRPC health listening")
		if err := grpcHealth.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("gRPC health server stopped")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	grpcHealth.Stop()
	cancelBase()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Live connections persist their own sessions; what remains never connected
	interviews.Wait()
	registry.Stop()
	pending := registry.Drain()
	for _, s := range pending {
		if !s.Attached() {
			markAbandoned(s)
		}
	}
	logger.Info().Int("sessions", len(pending)).Msg("Roleplay registry drained")

	pool.Stop()
	if broker != nil {
		if err := broker.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}
	cleanup.Stop()
	if err := publisher.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close event publisher")
	}

	logger.Info().Msg("Server exited gracefully")
}
