package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/jailcrawler/internal/crawl"
	"github.com/your-org/jailcrawler/pkg/dto"
)

// RunController is the crawl runner as seen by the ops API.
type RunController interface {
	Run(ctx context.Context) (*dto.RunSummary, error)
	LastRun() *dto.RunSummary
	Running() bool
}

type RunHandler struct {
	base context.Context
	runs RunController
}

func NewRunHandler(base context.Context, runs RunController) *RunHandler {
	if base == nil {
		base = context.Background()
	}
	return &RunHandler{base: base, runs: runs}
}

// Last returns the summary of the most recent run.
func (h *RunHandler) Last(c *gin.Context) {
	last := h.runs.LastRun()
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has finished yet"})
		return
	}
	c.JSON(http.StatusOK, last)
}

// Trigger starts a run in the background.
func (h *RunHandler) Trigger(c *gin.Context) {
	if h.runs.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": crawl.ErrRunInProgress.Error()})
		return
	}

	go func() {
		if _, err := h.runs.Run(h.base); err != nil && !errors.Is(err, crawl.ErrRunInProgress) {
			slog.Error("triggered crawl run failed", "error", err)
		}
	}()
	c.JSON(http.StatusAccepted, dto.RunTriggerResponse{Status: "started"})
}
