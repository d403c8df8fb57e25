package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/cache"
	"lending-service/internal/handler"
	"lending-service/internal/metrics"
	"lending-service/internal/models"
	"lending-service/internal/notify"
	"lending-service/internal/repository"
	mongorepo "lending-service/internal/repository/mongo"
	"lending-service/internal/repository/postgres"
	"lending-service/internal/service"
	"lending-service/pkg/upload"
)

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	// Load configuration
	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.Log.Level)
	}

	policy, err := models.ParseInterestPolicy(cfg.Lending.InterestPolicy)
	if err != nil {
		log.Fatalf("Invalid lending configuration: %v", err)
	}

	ctx := context.Background()

	// Initialize repositories
	repos, err := initRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer repos.Close(context.Background())

	// Optional infrastructure; the service runs without each of these
	var idempotency service.IdempotencyStore
	if cfg.Redis.Addr != "" {
		idem, err := cache.NewIdempotency(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.IdempotencyTTL)
		if err != nil {
			log.Warnf("Redis unavailable, Idempotency-Key is ignored: %v", err)
		} else {
			defer idem.Close()
			idempotency = idem
		}
	}

	var files service.FileStore
	uploader, err := upload.New(ctx, upload.Config{
		Endpoint:  cfg.Upload.Endpoint,
		Region:    cfg.Upload.Region,
		Bucket:    cfg.Upload.Bucket,
		AccessKey: cfg.Upload.AccessKey,
		SecretKey: cfg.Upload.SecretKey,
		PublicURL: cfg.Upload.PublicURL,
	})
	if err != nil {
		log.Warnf("Object storage unavailable, uploads disabled: %v", err)
	} else if uploader != nil {
		files = uploader
	}

	var channels []notify.Notifier
	if w := notify.NewWhatsApp(cfg.Twilio, log); w != nil {
		channels = append(channels, w)
	}
	if e := notify.NewEmail(cfg.Email, log); e != nil {
		channels = append(channels, e)
	}

	m := metrics.New()

	// Initialize services
	services := service.NewService(service.Dependencies{
		Repos:       repos,
		Logger:      log,
		Config:      cfg,
		Policy:      policy,
		Notifier:    notify.New(channels...),
		Files:       files,
		Idempotency: idempotency,
		Metrics:     m,
	})

	if err := services.Auth.SeedAdmin(ctx); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	// Initialize handlers
	deps := handler.Dependencies{
		Services: services,
		Logger:   log,
		Config:   cfg,
		Metrics:  m,
	}
	router := handler.NewRouter(handler.NewHandler(deps), deps)

	// Configure and start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	}

	go func() {
		log.Infof("Starting server on port %d (storage %s, interest policy %s)", cfg.Server.Port, cfg.Storage.Driver, policy)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
		return
	}

	log.Info("Server gracefully stopped")
}

func initRepository(ctx context.Context, cfg *configs.Config) (*repository.Repository, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := initDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresRepository(db), nil
	case "mongo":
		client, err := mongorepo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Timeout)
		if err != nil {
			return nil, err
		}
		if err := mongorepo.EnsureIndexes(ctx, client.Database(cfg.Mongo.Database)); err != nil {
			client.Disconnect(context.Background())
			return nil, err
		}
		return repository.NewMongoRepository(client, cfg.Mongo.Database), nil
	case "memory":
		return repository.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
}

func initDB(ctx context.Context, cfg *configs.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err = postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
