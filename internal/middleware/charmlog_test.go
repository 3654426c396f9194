package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestCharmLogPassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(CharmLog())
	e.GET("/ok", func(c echo.Context) error {
		return c.String(http.StatusOK, "fine")
	})
	e.GET("/broken", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "no")
	})
	e.GET("/plain", func(c echo.Context) error {
		return errors.New("boom")
	})

	for path, want := range map[string]int{
		"/ok":      http.StatusOK,
		"/broken":  http.StatusTeapot,
		"/plain":   http.StatusInternalServerError,
		"/missing": http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, want)
		}
	}
}
