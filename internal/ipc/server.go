package ipc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"go.uber.org/multierr"

	"github.com/matjam/smoothframes/internal/middleware"
)

// SocketPath is where the daemon listens.
func SocketPath() string {
	sockDir := os.Getenv("XDG_RUNTIME_DIR")
	if sockDir == "" {
		sockDir = os.TempDir()
	}
	return filepath.Join(sockDir, "smoothframes.sock")
}

// Server serves the control API on a unix socket.
type Server struct {
	e    *echo.Echo
	path string
}

// Listen binds the socket, replacing a stale one left by a previous run.
func Listen(manager ManagerInterface) (*Server, error) {
	sockPath := SocketPath()
	if _, err := os.Stat(sockPath); err == nil {
		_ = os.Remove(sockPath)
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Listener = listener

	e.Use(middleware.CharmLog())

	RegisterRoutes(e, manager)

	return &Server{e: e, path: sockPath}, nil
}

// Serve blocks until Shutdown is called.
func (s *Server) Serve() error {
	log.Info("socket server listening", "socket", s.path)
	if err := s.e.StartServer(s.e.Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server and removes the socket.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.e.Shutdown(ctx)
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = multierr.Append(err, rmErr)
	}
	return err
}
