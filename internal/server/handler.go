package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type handler struct {
	runner Runner
	secret string
	log    zerolog.Logger
}

// RegisterRoutes registers the trigger and health routes.
func (h *handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)

	e.GET("/api/cron", h.trigger, h.requireSecret)
	e.POST("/api/cron", h.trigger, h.requireSecret)
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// trigger runs one invocation. Completed evaluations answer 200 whatever the
// signal; data or indicator failures answer 500.
func (h *handler) trigger(c echo.Context) error {
	// The run finishes even if the caller disconnects mid-dispatch.
	ctx := context.WithoutCancel(c.Request().Context())
	report := h.runner.Run(ctx)

	status := http.StatusOK
	if report.Failed() {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, report)
}

func (h *handler) requireSecret(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.secret == "" {
			return next(c)
		}
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
			h.log.Warn().Str("remote", c.RealIP()).Msg("rejected trigger with bad secret")
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		return next(c)
	}
}
