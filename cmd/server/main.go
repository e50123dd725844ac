package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labelsense/labelsense/internal/api"
	"github.com/labelsense/labelsense/internal/config"
	"github.com/labelsense/labelsense/internal/core"
	"github.com/labelsense/labelsense/internal/store"
)

// defaultPorts are tried in order when PORT is unset or busy.
var defaultPorts = []string{"3000", "3002", "4000"}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	dbStore, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err), zap.String("dbPath", cfg.DatabasePath))
	}
	defer dbStore.Close()

	llmService := core.NewLLMService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, logger)
	chatService := core.NewChatService(dbStore, llmService, cfg.UseExternalLLM, logger)

	uploadService, err := core.NewUploadService(dbStore, cfg.UploadDir, logger)
	if err != nil {
		logger.Fatal("failed to initialize upload storage", zap.Error(err))
	}

	apiHandler := api.NewAPIHandler(chatService, uploadService, cfg.UseExternalLLM, cfg.LLMConfigured(), logger)
	router := api.NewRouter(apiHandler)

	ln, port, err := listenOnFirstFree(cfg.Port, logger)
	if err != nil {
		logger.Fatal("failed to bind to any candidate port", zap.Error(err))
	}

	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", port))
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}

// listenOnFirstFree walks the ordered candidate list (configured port first,
// then the defaults) and binds to the first one not already in use. Any
// other bind error aborts the walk.
func listenOnFirstFree(configuredPort string, logger *zap.Logger) (net.Listener, string, error) {
	candidates := defaultPorts
	if configuredPort != "" {
		candidates = append([]string{configuredPort}, candidates...)
	}

	for _, port := range candidates {
		ln, err := net.Listen("tcp", ":"+port)
		if err == nil {
			return ln, port, nil
		}
		if errors.Is(err, syscall.EADDRINUSE) {
			logger.Warn("port in use, trying next", zap.String("port", port))
			continue
		}
		return nil, "", err
	}
	return nil, "", errors.New("all candidate ports are in use")
}
