package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Julian1897/smart-data-qa/internal/config"
	"github.com/Julian1897/smart-data-qa/internal/handler"
	"github.com/Julian1897/smart-data-qa/internal/service/conversation"
	"github.com/Julian1897/smart-data-qa/internal/service/engine"
	"github.com/Julian1897/smart-data-qa/internal/service/modelcfg"
	"github.com/Julian1897/smart-data-qa/internal/service/resolver"
	"github.com/Julian1897/smart-data-qa/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Core stores: execution engine, conversations, session registry.
	engineStore := engine.NewStore()
	convStore := conversation.NewStore()
	registry := session.NewRegistry(convStore, engineStore, cfg.Session.IdleTimeout)

	// Translator configuration; bootstraps from OPENAI_* when present.
	models := modelcfg.NewManager(cfg.Model.Timeout)
	if cfg.Model.APIKey != "" {
		models.Bootstrap(ctx, modelcfg.Config{
			APIKey:    cfg.Model.APIKey,
			APIBase:   cfg.Model.APIBase,
			ModelName: cfg.Model.ModelName,
		})
	}
	if models.GetStatus().Configured {
		log.Println("translator initialized from environment")
	} else {
		log.Println("未配置翻译模型，查询将使用确定性回退分析")
	}

	resolverSvc := resolver.NewService(registry, convStore, models, engineStore)

	router := handler.NewRouter(handler.Deps{
		Registry:      registry,
		Conversations: convStore,
		Models:        models,
		Resolver:      resolverSvc,
		UploadMax:     cfg.Upload.MaxBytes,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.Server, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("smart-data-qa backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
