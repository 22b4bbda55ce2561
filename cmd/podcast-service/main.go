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
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/castforge/podcast-be/internal/api/handler"
	"github.com/castforge/podcast-be/internal/api/ratelimit"
	"github.com/castforge/podcast-be/internal/api/router"
	"github.com/castforge/podcast-be/internal/config"
	"github.com/castforge/podcast-be/internal/jobstore"
	"github.com/castforge/podcast-be/internal/notify"
	"github.com/castforge/podcast-be/internal/queue"
	"github.com/castforge/podcast-be/internal/stages/assemble"
	"github.com/castforge/podcast-be/internal/stages/episodes"
	"github.com/castforge/podcast-be/internal/stages/publish"
	"github.com/castforge/podcast-be/internal/stages/scriptgen"
	"github.com/castforge/podcast-be/internal/stages/speech"
	"github.com/castforge/podcast-be/internal/worker"
	"github.com/castforge/podcast-be/shared/logger"
	"github.com/castforge/podcast-be/shared/postgresql"
	"github.com/castforge/podcast-be/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("PODCAST_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/podcast-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting podcast service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client for the episode catalog
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize AWS clients for synthesis and publication
	pollyClient, err := initPolly(&cfg.Speech)
	if err != nil {
		return fmt.Errorf("failed to initialize polly client: %w", err)
	}

	uploader, err := initS3Uploader(&cfg.Publish)
	if err != nil {
		return fmt.Errorf("failed to initialize s3 uploader: %w", err)
	}

	// Initialize RabbitMQ client when broker notifications are enabled
	var rabbitClient *rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		appLogger.Info("RabbitMQ connection established")
	}

	// Job store, wake queue and pipeline stages
	store := jobstore.New()
	wake := queue.New(cfg.Store.WakeQueueSize)

	pipeline := worker.Stages{
		Script: scriptgen.NewClient(&scriptgen.Config{
			BaseURL: cfg.ScriptGen.BaseURL,
			APIKey:  cfg.ScriptGen.APIKey,
			Model:   cfg.ScriptGen.Model,
			Timeout: cfg.ScriptGen.Timeout,
			Turns: scriptgen.TurnCounts{
				Short:    cfg.ScriptGen.Turns.Short,
				Standard: cfg.ScriptGen.Turns.Standard,
				Long:     cfg.ScriptGen.Turns.Long,
			},
		}),
		Speech: speech.NewSynthesizer(pollyClient, &speech.Config{
			Voices:         cfg.Speech.Voices,
			FallbackVoices: cfg.Speech.FallbackVoices,
		}),
		Assembler: assemble.NewFFmpeg(),
		Publisher: publish.NewS3Publisher(uploader, &publish.Config{
			Bucket:        cfg.Publish.Bucket,
			Region:        cfg.Publish.Region,
			PublicBaseURL: cfg.Publish.PublicBaseURL,
		}),
		Episodes: episodes.NewStore(dbClient),
	}

	// Terminal-event notifier: webhook always, broker when enabled
	sinks := []notify.Sink{
		notify.NewWebhookSink(cfg.Webhook.URL, cfg.Webhook.Secret, cfg.Webhook.Timeout),
	}
	if rabbitClient != nil {
		sinks = append(sinks, notify.NewBrokerSink(rabbitClient))
	}
	dispatcher := notify.NewDispatcher(appLogger, notify.DefaultDispatchTimeout, sinks...)

	// Scheduler: the single worker that drives queued jobs
	scheduler := worker.NewScheduler(&worker.Config{
		Logger:         appLogger,
		Store:          store,
		Queue:          wake,
		Stages:         pipeline,
		Notifier:       dispatcher,
		RescanInterval: cfg.Worker.RescanInterval,
	})
	scheduler.Start(context.Background())

	// Retention sweeper: evicts old job records from memory
	sweeper := jobstore.NewSweeper(store, cfg.Store.Retention.MaxAge, cfg.Store.Retention.SweepInterval, appLogger)
	sweeper.Start(context.Background())

	// Submission rate limiter; zero requests_per_minute disables it
	var redisClient *redis.Client
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.RequestsPerMinute > 0 {
		if cfg.Redis.Enabled {
			redisClient = initRedis(&cfg.Redis, appLogger.Logger)
		}
		limiter = ratelimit.New(cfg.RateLimit.RequestsPerMinute, redisClient)
	}

	// Initialize router
	r := initRouter(cfg.App.Environment, appLogger.Logger, store, wake, dbClient, limiter)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Podcast service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests first, then drain the pipeline: the
	// scheduler finishes its in-flight job, the dispatcher flushes
	// pending notifications, and only then does infrastructure close.
	shutdownErr := srv.Shutdown(ctx)
	if shutdownErr != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", shutdownErr),
		)
	}

	scheduler.Stop()
	sweeper.Stop()
	dispatcher.Close()

	if rabbitClient != nil {
		rabbitClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}
	dbClient.Close()

	appLogger.Info("Server shutdown complete")
	return shutdownErr
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initPolly initializes the Polly client used for speech synthesis
func initPolly(cfg *config.SpeechConfig) (*polly.Polly, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
	})
	if err != nil {
		return nil, err
	}

	return polly.New(sess), nil
}

// initS3Uploader initializes the S3 upload manager used for publication.
// A custom endpoint switches to path-style addressing so MinIO and
// localstack work out of the box.
func initS3Uploader(cfg *config.PublishConfig) (*s3manager.Uploader, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}

	return s3manager.NewUploader(sess), nil
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initRedis initializes the Redis client backing the rate limiter. An
// unreachable Redis is logged, not fatal: the limiter falls back to
// process-local counters per request.
func initRedis(cfg *config.RedisConfig, logger *slog.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, rate limiting falls back to local counters",
			slog.String("addr", cfg.Addr),
			slog.Any("error", err),
		)
	} else {
		logger.Info("Redis connection established",
			slog.String("addr", cfg.Addr),
		)
	}

	return client
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, logger *slog.Logger, store *jobstore.Store, wake *queue.Queue, db *postgresql.Client, limiter *ratelimit.Limiter) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger: logger,
		Store:  store,
		Queue:  wake,
		DB:     db,
	}

	return router.SetupRouter(handlerDeps, limiter)
}
