package ipc

import (
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/matjam/smoothframes"
	"github.com/spf13/viper"
)

func status(m ManagerInterface) StatusResponse {
	return StatusResponse{
		Status:  "ok",
		Message: "smoothframes is running",
		Version: strings.Trim(smoothframes.Version, "\n\r "),
		PID:     os.Getpid(),
		Socket:  SocketPath(),
		Config:  viper.ConfigFileUsed(),
		Show:    m.Status(),
	}
}

// enqueue hands cmd to the slideshow and reports the outcome.
func enqueue(c echo.Context, m ManagerInterface, cmd Command) error {
	if err := m.EnqueueCommand(cmd); err != nil {
		return c.JSON(http.StatusServiceUnavailable, Response{Status: "error", Message: err.Error()})
	}
	return c.JSON(http.StatusOK, Response{Status: "ok", Message: string(cmd.Type) + " queued"})
}

// GET /status
func statusHandler(m ManagerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSONPretty(http.StatusOK, status(m), "  ")
	}
}

// POST /stop, /next, /pause, /resume and /reload
func simpleHandler(m ManagerInterface, t CommandType) echo.HandlerFunc {
	return func(c echo.Context) error {
		return enqueue(c, m, Command{Type: t})
	}
}

// POST /load
func loadHandler(m ManagerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		var images []string
		if err := c.Bind(&images); err != nil {
			return c.JSON(http.StatusBadRequest, Response{Status: "error", Message: "invalid JSON array of images"})
		}
		if len(images) == 0 {
			return c.JSON(http.StatusBadRequest, Response{Status: "error", Message: "no images given"})
		}
		return enqueue(c, m, Command{Type: CommandLoad, Args: images})
	}
}

// POST /command
func commandHandler(m ManagerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		var cmd Command
		if err := c.Bind(&cmd); err != nil {
			return c.JSON(http.StatusBadRequest, Response{Status: "error", Message: "invalid command"})
		}
		if !cmd.Type.Valid() {
			return c.JSON(http.StatusBadRequest, Response{Status: "error", Message: "unknown command " + string(cmd.Type)})
		}
		if cmd.Type == CommandStatus {
			return c.JSON(http.StatusOK, Response{Status: "ok", Data: status(m)})
		}
		return enqueue(c, m, cmd)
	}
}
