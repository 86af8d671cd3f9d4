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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sulu/sulu-sub013/config"
	"github.com/sulu/sulu-sub013/internal/bootstrap"
)

func main() {
	// Create context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize config provider
	cfgProvider := config.NewEnvProvider("")
	if cfgProvider.GetEnvironment() == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := bootstrap.New(ctx, cfgProvider)
	if err != nil {
		log.Fatal("Failed to initialize services:", err)
	}
	defer app.Close(context.Background())

	server := &http.Server{
		Addr:              app.Config.HTTPAddr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.Logger.Warn("error shutting down server", zap.Error(err))
		}
	}()

	// Start server
	app.Logger.Info("listening", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.Logger.Fatal("failed to start server", zap.Error(err))
	}
}
