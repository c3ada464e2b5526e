package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rainbow59216/snatcher/internal/service"
	appErrors "github.com/rainbow59216/snatcher/pkg/errors"
	"github.com/rainbow59216/snatcher/pkg/response"
)

// WatcherHandler manages seat-vacancy watches.
type WatcherHandler struct {
	watcher *service.WatcherService
}

// NewWatcherHandler constructs WatcherHandler.
func NewWatcherHandler(watcher *service.WatcherService) *WatcherHandler {
	return &WatcherHandler{watcher: watcher}
}

// Create registers a vacancy watch.
func (h *WatcherHandler) Create(c *gin.Context) {
	var req service.SeatWatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.watcher.Watch(c.Request.Context(), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, req)
}

// Delete removes a watch by section id.
func (h *WatcherHandler) Delete(c *gin.Context) {
	if err := h.watcher.Unwatch(c.Request.Context(), c.Param("sectionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Pause raises the cooperative stop flag.
func (h *WatcherHandler) Pause(c *gin.Context) {
	if err := h.watcher.Pause(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"paused": true}, nil)
}

// Resume clears the stop flag.
func (h *WatcherHandler) Resume(c *gin.Context) {
	if err := h.watcher.Resume(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"paused": false}, nil)
}
