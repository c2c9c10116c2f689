package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Dispatch feeds a decoded {action, ...fields} request into the action
// dispatcher. The whole body doubles as the action payload; request
// structs ignore the action field. Always answers 200 – outcomes ride in
// the envelope, not in HTTP status codes.
func (h *Handler) Dispatch(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if req.Action == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing action")
	}

	resp := h.dispatcher.Handle(c.Request().Context(), req.Action, body)
	return c.JSON(http.StatusOK, resp)
}

// Health pings the database, and the redis cache when one is wired.
func (h *Handler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.db.PingContext(ctx); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database unreachable")
	}
	if h.rdb != nil {
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "redis unreachable")
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
