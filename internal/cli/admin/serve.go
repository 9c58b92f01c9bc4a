package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/shelf-works/shelf/internal/api/handlers"
	"github.com/shelf-works/shelf/internal/api/middleware"
	"github.com/shelf-works/shelf/internal/chat"
	"github.com/shelf-works/shelf/internal/config"
	"github.com/shelf-works/shelf/internal/events"
	"github.com/shelf-works/shelf/internal/identity"
	"github.com/shelf-works/shelf/internal/jobs"
	"github.com/shelf-works/shelf/internal/processor"
	"github.com/shelf-works/shelf/internal/repository"
	"github.com/shelf-works/shelf/internal/server"
	"github.com/shelf-works/shelf/internal/service"
	"github.com/shelf-works/shelf/internal/storage"
	"github.com/shelf-works/shelf/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the shelf API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	fileRepo := repository.NewFileRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	chatRepo := repository.NewChatRepository(pool)

	var storageClient service.StorageClientInterface = &noOpStorage{}
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		storageClient = &s3StorageAdapter{client: s3Client}
	} else {
		log.Println("no S3 configured, uploads will be rejected")
	}

	bus := events.NewBus()

	processingSvc := service.NewProcessingService(fileRepo, chunkRepo, bus)

	var dispatcher service.ProcessorDispatcher
	if cfg.HasProcessor() {
		dispatcher = processor.NewWebhookDispatcher(cfg.ProcessorURL, cfg.ProcessorToken, cfg.CallbackURL())
		log.Printf("using external processor at %s", cfg.ProcessorURL)
	} else {
		dispatcher = processor.NewLocalDispatcher(storageClient, processingSvc)
		log.Println("no processor configured, extracting documents in-process")
	}

	var responder service.Responder
	if cfg.HasOpenAI() {
		responder, err = chat.NewOpenAIResponder(cfg.OpenAIAPIKey)
		if err != nil {
			return fmt.Errorf("failed to create chat responder: %w", err)
		}
	} else {
		responder = chat.NewCannedResponder()
		log.Println("no OpenAI API key configured, chat uses canned responses")
	}

	var resolver middleware.TokenResolver
	if cfg.AuthUserInfoURL != "" {
		resolver = identity.NewClient(cfg.AuthUserInfoURL)
	} else {
		if cfg.DevAuthToken == "" {
			log.Println("warning: no auth configured, all requests will be rejected")
		}
		resolver = &identity.StaticResolver{Token: cfg.DevAuthToken, UserID: cfg.DevAuthUserID}
	}

	fileSvc := service.NewFileService(fileRepo, chunkRepo, storageClient, bus)
	uploadSvc := service.NewUploadService(fileRepo, storageClient, dispatcher, bus)
	chunkSvc := service.NewChunkService(fileRepo, chunkRepo, bus)
	chatSvc := service.NewChatService(chatRepo, fileRepo, chunkRepo, responder)

	sweeper := jobs.NewStaleSweeper(fileRepo, bus, cfg.ProcessingDeadline)
	worker := jobs.NewWorker(sweeper, time.Minute)
	go worker.Start(ctx)

	routerCfg := server.RouterConfig{
		TokenResolver:   resolver,
		FileHandler:     handlers.NewFileHandler(fileSvc, uploadSvc),
		ChunkHandler:    handlers.NewChunkHandler(chunkSvc),
		CallbackHandler: handlers.NewCallbackHandler(processingSvc),
		ChatHandler:     handlers.NewChatHandler(chatSvc),
		EventsHandler:   handlers.NewEventsHandler(fileSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type s3StorageAdapter struct {
	client *storage.S3Client
}

func (a *s3StorageAdapter) PutObject(ctx context.Context, key string, contentType string, data []byte) error {
	return a.client.PutObject(ctx, key, contentType, data)
}

func (a *s3StorageAdapter) GetObject(ctx context.Context, key string) ([]byte, error) {
	return a.client.GetObject(ctx, key)
}

func (a *s3StorageAdapter) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return a.client.GenerateDownloadURL(ctx, key)
}

func (a *s3StorageAdapter) DeleteObject(ctx context.Context, key string) error {
	return a.client.DeleteObject(ctx, key)
}

type noOpStorage struct{}

func (s *noOpStorage) PutObject(ctx context.Context, key string, contentType string, data []byte) error {
	return fmt.Errorf("storage not configured: SHELF_S3_ENDPOINT required")
}

func (s *noOpStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("storage not configured: SHELF_S3_ENDPOINT required")
}

func (s *noOpStorage) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return "", fmt.Errorf("storage not configured: SHELF_S3_ENDPOINT required")
}

func (s *noOpStorage) DeleteObject(ctx context.Context, key string) error {
	return fmt.Errorf("storage not configured: SHELF_S3_ENDPOINT required")
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
