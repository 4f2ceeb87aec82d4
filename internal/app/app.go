package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	jwtauth "github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/auth/jwt"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/geocoding/google"
	natspub "github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/messaging/nats"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/repository/cache"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/repository/memory"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/repository/mongodb"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/rest"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/storage/gcs"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/storage/local"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/storage/s3"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/mailer"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/tracer"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.mongodb.org/mongo-driver/mongo"
)

type App struct {
	cfg    *config.Config
	log    *logger.Logger
	server *http.Server

	metricsServer  *http.Server
	shutdownTracer func(context.Context) error

	// optional resources, nil when not configured
	mongoClient  *mongo.Client
	listingCache *cache.ListingCache
	publisher    *natspub.Publisher
	gcsStorage   *gcs.Storage
	localStorage *local.Storage
}

func New(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*App, error) {
	a := &App{cfg: cfg, log: appLogger}

	shutdownTracer, err := tracer.InitTracer(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	a.shutdownTracer = shutdownTracer

	m := metrics.New(cfg.ServiceName)
	a.metricsServer = metrics.NewServer(cfg.Metrics.Port, appLogger, m)

	store, err := a.openStore(ctx)
	if err != nil {
		a.closeResources(ctx)
		return nil, err
	}

	artifactStore, err := a.openArtifactStore(ctx)
	if err != nil {
		a.closeResources(ctx)
		return nil, err
	}

	geocoder, err := google.NewGeocoder(cfg.Geocoding.APIKey, cfg.Geocoding.BaseURL)
	if err != nil {
		a.closeResources(ctx)
		return nil, fmt.Errorf("failed to initialize geocoder: %w", err)
	}

	authenticator := jwtauth.NewAuthenticator(cfg.JWT.Secret, cfg.JWT.TTL)
	lifecycle := usecase.NewArtifactLifecycle(artifactStore, appLogger, m, cfg.Artifacts.CleanupTimeout)
	relations := usecase.NewRelationshipManager(store, appLogger)
	listingUC := usecase.NewListingUsecase(store, relations, lifecycle, geocoder, m, appLogger, cfg.Store.OpTimeout)
	accountUC := usecase.NewAccountUsecase(store, lifecycle, authenticator, m, appLogger, cfg.Store.OpTimeout)

	if cfg.Redis.Addr != "" {
		listingCache, err := cache.NewListingCache(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.TTL)
		if err != nil {
			appLogger.Warn("Redis unavailable, listing cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			a.listingCache = listingCache
			listingUC.WithCache(listingCache)
			appLogger.Info("Listing cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	if cfg.NATS.URL != "" {
		publisher, err := natspub.NewPublisher(cfg.NATS.URL, appLogger)
		if err != nil {
			appLogger.Warn("NATS unavailable, events disabled", "url", cfg.NATS.URL, "error", err)
		} else {
			a.publisher = publisher
			listingUC.WithEvents(publisher)
			accountUC.WithEvents(publisher)
		}
	}

	if cfg.SMTP.Host != "" {
		listingUC.WithNotifier(mailer.NewSMTPMailer(cfg.SMTP))
		appLogger.Info("Owner notifications enabled", "smtp_host", cfg.SMTP.Host)
	}

	handler := rest.NewHandler(listingUC, accountUC, cfg.HTTP.MaxUploadBytes, appLogger)
	var router http.Handler = rest.NewRouter(handler, authenticator, m, appLogger, cfg.ServiceName)
	if a.localStorage != nil {
		root := chi.NewRouter()
		root.Handle(a.localStorage.Prefix()+"*", a.localStorage.FileServer())
		root.Handle("/*", router)
		router = root
	}
	a.server = &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) (domain.Store, error) {
	switch a.cfg.Store.Driver {
	case "memory":
		a.log.Warn("Using in-memory document store, data is lost on restart")
		return memory.NewStore(), nil
	default:
		client, err := mongodb.Connect(a.cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		a.mongoClient = client

		store := mongodb.NewStore(client, a.cfg.Mongo.Database, a.log)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure MongoDB indexes: %w", err)
		}
		a.log.Info("MongoDB store ready", "database", a.cfg.Mongo.Database)
		return store, nil
	}
}

func (a *App) openArtifactStore(ctx context.Context) (domain.ArtifactStore, error) {
	cfg := a.cfg.Artifacts
	switch cfg.Driver {
	case "s3":
		st, err := s3.NewS3Storage(ctx, cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Bucket, cfg.S3.UseSSL, a.log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		return st, nil
	case "gcs":
		client, err := gcs.NewClient(ctx, cfg.GCS.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
		}
		a.gcsStorage = gcs.NewStorage(client, cfg.GCS.Bucket, cfg.GCS.PublicBaseURL)
		return a.gcsStorage, nil
	default:
		st, err := local.NewStorage(afero.NewOsFs(), cfg.Local.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		a.localStorage = st
		return st, nil
	}
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts everything down.
func (a *App) Run() error {
	if a.metricsServer != nil {
		go func() {
			a.log.Info("Metrics server listening", "addr", a.metricsServer.Addr)
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("Metrics server failed", "error", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("HTTP server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		a.log.Info("Received shutdown signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		a.log.Error("HTTP server failed", "error", err)
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("Error during HTTP server graceful shutdown", "error", err)
	} else {
		a.log.Info("HTTP server stopped")
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.log.Error("Error stopping metrics server", "error", err)
		}
	}
	a.closeResources(shutdownCtx)

	a.log.Info("Application shut down")
	return runErr
}

func (a *App) closeResources(ctx context.Context) {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.listingCache != nil {
		if err := a.listingCache.Close(); err != nil {
			a.log.Error("Error closing Redis client", "error", err)
		}
	}
	if a.gcsStorage != nil {
		if err := a.gcsStorage.Close(); err != nil {
			a.log.Error("Error closing GCS client", "error", err)
		}
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.log.Error("Error disconnecting from MongoDB", "error", err)
		} else {
			a.log.Info("MongoDB connection closed")
		}
	}
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(ctx); err != nil {
			a.log.Error("Error shutting down tracer", "error", err)
		}
	}
}
