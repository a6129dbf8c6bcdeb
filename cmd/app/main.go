package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skin-detect/internal/config"
	httpHandler "skin-detect/internal/handler/http"
	"skin-detect/internal/handler/ml"
	"skin-detect/internal/handler/static"
	"skin-detect/internal/service"
	"skin-detect/web"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inference := ml.NewInferenceClient(cfg.InferenceURL(), &http.Client{})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := inference.Ping(pingCtx); err != nil {
		logger.Warn("inference service not available", "err", err)
	}
	cancel()

	detector := service.NewDetectorService(inference, logger)
	sessions := service.NewSessionStore(cfg.SessionTTL, func(id string) *service.Session {
		return service.NewSession(id, detector, cfg.PreviewSize, logger)
	}, logger)
	go sessions.Run(ctx, time.Minute)

	assets, err := assetFS(cfg.AssetDir)
	if err != nil {
		logger.Error("load asset bundle", "err", err)
		os.Exit(1)
	}

	handler := httpHandler.NewHandler(sessions, cfg.MaxUploadBytes(), string(cfg.Mode), logger)
	router := httpHandler.NewRouter(handler, static.New(assets, cfg.EntryDocument, logger))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}()

	logger.Info("server starting",
		"addr", "http://localhost"+cfg.Addr(),
		"mode", cfg.Mode,
		"inference_url", cfg.InferenceURL(),
		"assets", assetSource(cfg.AssetDir),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// assetFS prefers an on-disk build directory and falls back to the bundle
// compiled into the binary.
func assetFS(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	return web.DistFS()
}

func assetSource(dir string) string {
	if dir != "" {
		return dir
	}
	return "embedded"
}
