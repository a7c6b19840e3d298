package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mariopotabile/checkout-appBRUNO/internal/http/middleware"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/stats"
	"github.com/mariopotabile/checkout-appBRUNO/internal/shared/apperr"
)

type StatsHandler struct {
	Logger *slog.Logger
	Stats  *stats.Service
}

func NewStatsHandler(logger *slog.Logger, svc *stats.Service) *StatsHandler {
	return &StatsHandler{Logger: logger, Stats: svc}
}

// GET /api/stats/daily/:date
// A day nobody sold anything on is a zeroed document, not a 404.
func (h *StatsHandler) Daily(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Data non valida, formato atteso YYYY-MM-DD.", nil))
		return
	}

	day, err := h.Stats.Day(c.Request.Context(), date)
	if errors.Is(err, stats.ErrNoSuchDay) {
		c.JSON(http.StatusOK, stats.Day{
			Date:     date,
			Accounts: map[string]stats.AccountBucket{},
		})
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, day)
}
