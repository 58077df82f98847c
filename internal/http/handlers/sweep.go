package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/cart-backend/internal/data/repos"
	"github.com/yungbote/cart-backend/internal/http/response"
	"github.com/yungbote/cart-backend/internal/jobs/sweep"
	"github.com/yungbote/cart-backend/internal/platform/dbctx"
)

const (
	defaultSweepListLimit = 20
	maxSweepListLimit     = 200
)

type SweepHandler struct {
	passer sweep.Passer
	runs   repos.SweepRunRepo
	now    func() time.Time
}

func NewSweepHandler(passer sweep.Passer, runs repos.SweepRunRepo, now func() time.Time) *SweepHandler {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &SweepHandler{passer: passer, runs: runs, now: now}
}

// GET /api/sweeps?limit=
func (h *SweepHandler) List(c *gin.Context) {
	limit := defaultSweepListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondError(c, http.StatusBadRequest, "request.invalid_limit", errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxSweepListLimit)
	}
	runs, err := h.runs.ListRecent(dbctx.Context{Ctx: c.Request.Context()}, limit)
	if err != nil {
		_ = c.Error(err)
		response.RespondError(c, http.StatusServiceUnavailable, "sweep.list_failed", errors.New("could not list sweep runs"))
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}

// POST /api/sweeps/run
func (h *SweepHandler) Run(c *gin.Context) {
	sum, err := h.passer.RunPass(c.Request.Context(), h.now(), sweep.TriggerManual)
	if err != nil {
		// Per-cart results are still meaningful when only the scan or record failed.
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"summary": sum,
			"error":   response.APIError{Message: "sweep pass incomplete", Code: "sweep.incomplete"},
		})
		return
	}
	response.RespondOK(c, gin.H{"summary": sum})
}
