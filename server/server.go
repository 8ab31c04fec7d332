package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listenboard/cache"
	"listenboard/config"
	"listenboard/dashboard"
	"listenboard/db"
	"listenboard/feed"
	"listenboard/hub"
	"listenboard/logger"
	"listenboard/model"
	"listenboard/render"
	"listenboard/repository"
	"listenboard/storage"

	"github.com/gorilla/mux"
)

// NewRouter builds the HTTP handler with CORS and request logging around
// every route, including preflight requests that match no route.
func NewRouter(handler *DashboardHandler) http.Handler {
	router := mux.NewRouter()
	RegisterDashboardRoutes(router, handler)
	return corsMiddleware(loggingMiddleware(router))
}

// feedBackend is the configured feed source plus whatever it needs released
// on shutdown.
type feedBackend struct {
	source   feed.Source
	notifier feed.Notifier // optional
	close    func()
}

func openFeedBackend(cfg *config.Config) (*feedBackend, error) {
	switch cfg.FeedSource {
	case "file":
		b := &feedBackend{source: feed.NewFileSource(cfg.FeedPath), close: func() {}}
		if cfg.FeedWatch {
			b.notifier = feed.NewFileWatcher(cfg.FeedPath)
		}
		return b, nil

	case "http":
		if cfg.FeedURL == "" {
			return nil, fmt.Errorf("FEED_URL is required for the http feed source")
		}
		client := &http.Client{Timeout: cfg.PollInterval}
		return &feedBackend{source: feed.NewHTTPSource(client, cfg.FeedURL), close: func() {}}, nil

	case "redis":
		if err := cache.ConnectRedis(cfg); err != nil {
			return nil, err
		}
		src := feed.NewRedisSource(cache.NewFeedCache(cache.RedisClient, cfg.RedisFeedKey))
		return &feedBackend{source: src, notifier: src, close: func() { _ = cache.CloseRedis() }}, nil

	case "minio":
		if !cfg.MinioConfigured() {
			return nil, fmt.Errorf("MINIO_ENDPOINT is required for the minio feed source")
		}
		if err := storage.InitMinio(cfg); err != nil {
			return nil, err
		}
		object := storage.NewFeedObject(storage.GetMinioClient(), cfg.MinioBucket, cfg.MinioFeedObject)
		src := feed.NewMinioSource(object, cfg.MinioBucket+"/"+cfg.MinioFeedObject)
		return &feedBackend{source: src, close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown FEED_SOURCE %q (want file, http, redis or minio)", cfg.FeedSource)
	}
}

// openHistory 连接 MySQL 并迁移归档表
func openHistory(cfg *config.Config) (repository.HistoryRepository, error) {
	if err := db.ConnectGormDB(cfg); err != nil {
		return nil, err
	}
	if err := db.AutoMigrateModels(&model.PlayRecord{}); err != nil {
		_ = db.CloseGormDB()
		return nil, err
	}
	return repository.NewGormHistoryRepository(db.GormDB), nil
}

// Start wires the feed source, controller and hub, then serves HTTP until
// SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	backend, err := openFeedBackend(cfg)
	if err != nil {
		return fmt.Errorf("open feed source: %w", err)
	}
	defer backend.close()

	var (
		history  repository.HistoryRepository
		archiver dashboard.Archiver
	)
	if cfg.HistoryEnabled {
		history, err = openHistory(cfg)
		if err != nil {
			return fmt.Errorf("open play history: %w", err)
		}
		defer db.CloseGormDB()
		archiver = history
	}

	renderer, err := render.New()
	if err != nil {
		return err
	}

	h := hub.NewHub()
	go h.Run()
	defer h.Stop()

	controller, err := dashboard.NewController(dashboard.Options{
		Source:       backend.source,
		Renderer:     renderer,
		Publisher:    h,
		Archiver:     archiver,
		PollInterval: cfg.PollInterval,
		TickInterval: cfg.TickInterval,
		Location:     cfg.Location(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var triggers []<-chan struct{}
	if backend.notifier != nil {
		triggers = append(triggers, backend.notifier.Updates(ctx))
	}
	controllerDone := make(chan error, 1)
	go func() {
		controllerDone <- controller.Run(ctx, triggers...)
	}()

	// 设置服务器超时
	server := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     NewRouter(NewDashboardHandler(ctx, controller, renderer, h, history, cfg.Title)),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("dashboard server starting",
			logger.String("addr", cfg.ListenAddr),
			logger.String("source", backend.source.Describe()),
			logger.Bool("history", history != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
		logger.Info("shutting down server")
	case err := <-serveErr:
		cancel()
		return fmt.Errorf("http server: %w", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// 优雅关闭服务器
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	<-controllerDone

	logger.Info("server stopped")
	return nil
}
