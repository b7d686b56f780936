package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"coinlecture/internal/service"
)

// StatsHandler serves the admin dashboard counters.
type StatsHandler struct {
	svc service.StatsService
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(svc service.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// GetStats godoc
// @Summary Dashboard counters
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Stats
// @Failure 403 {object} errors.ErrorResponse
// @Router /stats [get]
func (h *StatsHandler) GetStats(c echo.Context) error {
	st, err := h.svc.Get(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, st)
}
