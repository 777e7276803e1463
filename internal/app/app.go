// Package app wires the pipeline together and manages its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/gopost/gopost/internal/api"
	"github.com/gopost/gopost/internal/compose"
	"github.com/gopost/gopost/internal/config"
	"github.com/gopost/gopost/internal/database"
	"github.com/gopost/gopost/internal/dedup"
	"github.com/gopost/gopost/internal/discovery"
	"github.com/gopost/gopost/internal/domain"
	"github.com/gopost/gopost/internal/logger"
	"github.com/gopost/gopost/internal/metrics"
	"github.com/gopost/gopost/internal/monitor"
	"github.com/gopost/gopost/internal/redis"
	"github.com/gopost/gopost/internal/scheduler"
	"github.com/gopost/gopost/internal/scrape"
	"github.com/gopost/gopost/internal/search"
	"github.com/gopost/gopost/internal/twitter"
)

// DefaultShutdownTimeout bounds graceful HTTP shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// App holds the wired pipeline.
type App struct {
	config *config.Config
	logger logger.Logger

	db          *sqlx.DB
	redisClient *goredis.Client

	posts    *database.PostRepository
	topics   *database.TopicRepository
	settings *database.SettingRepository

	monitorService  *monitor.Service
	dispatchService *scheduler.Service
	monitorWorker   *monitor.Worker
	dispatchWorker  *scheduler.Worker

	version string
}

// Options configures App construction.
type Options struct {
	ConfigPath string
	Version    string
}

// New loads configuration and wires every component.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "gopost"),
		logger.String("version", opts.Version),
	)

	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.InitSchema(context.Background(), db); err != nil {
		db.Close()
		_ = appLogger.Sync()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	// Redis is optional. Without it the dedup tracker falls back to the
	// SQL ledger alone.
	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("redis unavailable, dedup cache disabled", logger.Error(err))
			redisClient = nil
		}
	}

	posts := database.NewPostRepository(db)
	topics := database.NewTopicRepository(db)
	settings := database.NewSettingRepository(db)
	ledger := database.NewLedgerRepository(db)

	var cacheClient goredis.UniversalClient
	if redisClient != nil {
		cacheClient = redisClient
	}
	tracker := dedup.NewTracker(ledger, cacheClient, cfg.Redis.CacheTTL, appLogger)

	twitterClient, err := twitter.NewClient(twitter.Config{
		APIBaseURL:    cfg.Twitter.APIBaseURL,
		UploadBaseURL: cfg.Twitter.UploadBaseURL,
		BearerToken:   cfg.Twitter.BearerToken,
		RateLimitRPS:  cfg.Twitter.RateLimitRPS,
		Timeout:       cfg.Twitter.Timeout,
	}, appLogger)
	if err != nil {
		db.Close()
		_ = appLogger.Sync()
		return nil, fmt.Errorf("create twitter client: %w", err)
	}

	searchClient := search.NewClient(cfg.Search.BaseURL, cfg.Search.Timeout, appLogger)
	enricher := scrape.NewEnricher(0, appLogger)
	composer := compose.NewComposer(compose.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.OpenAI.Timeout,
	}, appLogger)
	publisher := twitter.NewPublisher(twitterClient, twitter.PublisherConfig{}, appLogger)

	m := metrics.New(prometheus.DefaultRegisterer)

	discoverer := discovery.NewService(searchClient, twitterClient, enricher, appLogger)
	monitorService := monitor.NewService(
		topics, posts, tracker, discoverer, enricher, searchClient, composer, m, appLogger)
	dispatchService := scheduler.NewService(
		posts, settings, publisher, cfg.Scheduler.MonthlyLimit, m, appLogger)

	app := &App{
		config:          cfg,
		logger:          appLogger,
		db:              db,
		redisClient:     redisClient,
		posts:           posts,
		topics:          topics,
		settings:        settings,
		monitorService:  monitorService,
		dispatchService: dispatchService,
		monitorWorker:   monitor.NewWorker(monitorService, cfg.Monitor.Interval, appLogger),
		dispatchWorker:  scheduler.NewWorker(dispatchService, cfg.Scheduler.Interval, appLogger),
		version:         opts.Version,
	}

	if err := app.seedTopics(context.Background()); err != nil {
		app.Close()
		return nil, fmt.Errorf("seed topics: %w", err)
	}
	return app, nil
}

// seedTopics inserts the topics declared in the config file. Existing
// query+kind pairs are left untouched so restarts are idempotent.
func (a *App) seedTopics(ctx context.Context) error {
	for _, seed := range a.config.Topics {
		exists, err := a.topics.ExistsByQuery(ctx, seed.Query, domain.SourceKind(seed.SourceKind))
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		topic, err := domain.NewMonitoredTopic(seed.Query, domain.SourceKind(seed.SourceKind), seed.IntervalMinutes)
		if err != nil {
			return err
		}
		if err := a.topics.Create(ctx, topic); err != nil {
			return err
		}
		a.logger.Info("seeded topic",
			logger.String("topic_id", topic.ID),
			logger.String("query", topic.Query))
	}
	return nil
}

// RunWorker starts the monitoring and dispatch workers and blocks until a
// shutdown signal or context cancellation.
func (a *App) RunWorker(ctx context.Context) error {
	a.monitorWorker.Start(ctx)
	a.dispatchWorker.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutting down gracefully", logger.String("signal", sig.String()))
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down")
	}

	a.dispatchWorker.Stop()
	a.monitorWorker.Stop()
	return nil
}

// RunAPI serves the control API and blocks until a shutdown signal, a server
// error, or context cancellation.
func (a *App) RunAPI(ctx context.Context) error {
	router := api.NewRouter(
		a.posts, a.topics, a.settings,
		a.db, a.redisClient,
		a.monitorService, a.dispatchService,
		a.config.Debug, a.logger,
	)

	server := &http.Server{
		Addr:         a.config.Server.Address,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("API server listening", logger.String("address", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutting down gracefully", logger.String("signal", sig.String()))
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", logger.Error(err))
	}
	return nil
}

// Close releases held resources.
func (a *App) Close() error {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis client", logger.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", logger.Error(err))
		}
	}
	return a.logger.Sync()
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}
