// Command relay is a single-room chat relay for the terminal client.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mama165/sdk-go/logs"

	"github.com/xiaot623/relaychat/internal/config"
	"github.com/xiaot623/relaychat/relay/internal/hub"
	internalhttp "github.com/xiaot623/relaychat/relay/internal/http"
	"github.com/xiaot623/relaychat/relay/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadRelay()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	log.Info("Starting relay", "ws_port", cfg.WSPort, "http_port", cfg.HTTPPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize hub
	roomHub := hub.NewHub(log, cfg.SendBuffer)
	go roomHub.Run(ctx.Done())

	// WebSocket server
	wsServer := ws.NewServer(cfg, roomHub, log)
	wsEcho := echo.New()
	wsEcho.HideBanner = true
	wsEcho.HidePort = true
	wsEcho.Use(middleware.Logger())
	wsEcho.Use(middleware.Recover())
	wsEcho.GET("/ws", wsServer.HandleWebSocket)

	// Internal HTTP server
	httpServer := internalhttp.NewServer(roomHub)

	errChan := make(chan error, 2)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.WSPort)
		if err := wsEcho.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("WebSocket server: %w", err)
		}
	}()
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down relay...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := wsEcho.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shutdown WebSocket server gracefully", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shutdown HTTP server gracefully", "error", err)
	}

	log.Info("Relay stopped")
	return nil
}
