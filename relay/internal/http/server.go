// Package http provides the relay's internal HTTP server.
package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/relaychat/relay/internal/hub"
)

// Server is the internal HTTP server for the relay.
type Server struct {
	echo *echo.Echo
	hub  *hub.Hub
}

// NewServer creates a new internal HTTP server.
func NewServer(h *hub.Hub) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		echo: e,
		hub:  h,
	}

	// Register routes
	e.GET("/health", s.handleHealth)
	e.GET("/users", s.handleUsers)

	return s
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Members     int    `json:"members"`
}

// UsersResponse is the body of GET /users.
type UsersResponse struct {
	Users []string `json:"users"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		Connections: s.hub.GetConnectionCount(),
		Members:     len(s.hub.Members()),
	})
}

func (s *Server) handleUsers(c echo.Context) error {
	return c.JSON(http.StatusOK, UsersResponse{Users: s.hub.Members()})
}
