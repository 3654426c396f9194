package ipc

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, manager ManagerInterface) {
	e.GET("/status", statusHandler(manager))
	e.POST("/stop", simpleHandler(manager, CommandStop))
	e.POST("/next", simpleHandler(manager, CommandNext))
	e.POST("/pause", simpleHandler(manager, CommandPause))
	e.POST("/resume", simpleHandler(manager, CommandResume))
	e.POST("/reload", simpleHandler(manager, CommandReload))
	e.POST("/load", loadHandler(manager))
	e.POST("/command", commandHandler(manager))
}
