package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-engine/internal/pipeline"
	"github.com/andresuchdata/restock-engine/internal/replenishment"
	"github.com/andresuchdata/restock-engine/internal/service"
)

type ReplenishmentHandler struct {
	service *service.ReplenishmentService
}

func NewReplenishmentHandler(service *service.ReplenishmentService) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: service}
}

func (h *ReplenishmentHandler) Health(c *gin.Context) {
	st := h.service.Status(c.Request.Context()).Scheduler
	c.JSON(http.StatusOK, gin.H{
		"status":               "ok",
		"scheduler":            st.State,
		"consecutive_failures": st.ConsecutiveFailures,
	})
}

func (h *ReplenishmentHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Status(c.Request.Context()))
}

func (h *ReplenishmentHandler) GetCycleRun(c *gin.Context) {
	run, err := h.service.CycleRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *ReplenishmentHandler) RunCycle(c *gin.Context) {
	res, err := h.service.RunCycle(c.Request.Context())
	if err != nil {
		respondError(c, err, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReplenishmentHandler) GetLatestDecisions(c *gin.Context) {
	decisions, err := h.service.LatestDecisions(c.Request.Context(), parseLimit(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": decisions, "count": len(decisions)})
}

func (h *ReplenishmentHandler) GetLatestAlerts(c *gin.Context) {
	alerts, err := h.service.LatestAlerts(c.Request.Context(), parseLimit(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts, "count": len(alerts)})
}

func (h *ReplenishmentHandler) ExecuteCommand(c *gin.Context) {
	var cmd service.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	res, err := h.service.Execute(c.Request.Context(), cmd)
	if err != nil {
		var cycle *pipeline.CycleResult
		if res != nil {
			cycle = res.Cycle
		}
		respondError(c, err, cycle)
		return
	}
	c.JSON(http.StatusOK, res)
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}

// respondError maps service errors to HTTP statuses. A failed cycle's
// partial result is returned alongside the error.
func respondError(c *gin.Context, err error, cycle *pipeline.CycleResult) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidCommand):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrCycleInProgress):
		status = http.StatusConflict
	case errors.Is(err, pipeline.ErrStopped),
		errors.Is(err, replenishment.ErrCollaboratorUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	body := gin.H{"error": err.Error()}
	if cycle != nil {
		body["cycle"] = cycle
	}
	c.JSON(status, body)
}
