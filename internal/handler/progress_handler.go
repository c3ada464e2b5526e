package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rainbow59216/snatcher/internal/service"
	appErrors "github.com/rainbow59216/snatcher/pkg/errors"
	"github.com/rainbow59216/snatcher/pkg/response"
)

// ProgressHandler exposes progress queries and the live event stream.
type ProgressHandler struct {
	progress *service.ProgressService
}

// NewProgressHandler constructs ProgressHandler.
func NewProgressHandler(progress *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// Report projects one booking's attempt logs into per-goal progress.
func (h *ProgressHandler) Report(c *gin.Context) {
	fuel := c.Query("fuel")
	username := c.Query("username")
	if fuel == "" || username == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "fuel and username are required"))
		return
	}

	report, err := h.progress.Report(c.Request.Context(), fuel, username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Stream serves live progress events over server-sent events, optionally
// filtered to one user.
func (h *ProgressHandler) Stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events, cancel := h.progress.Stream(c.Request.Context(), c.Query("username"))
	defer cancel()

	c.Status(http.StatusOK)
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("progress", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
