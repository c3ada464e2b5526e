package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rainbow59216/snatcher/internal/service"
	"github.com/rainbow59216/snatcher/pkg/response"
)

// RecordHandler exposes the attempt audit trail.
type RecordHandler struct {
	records *service.RecordService
}

// NewRecordHandler constructs RecordHandler.
func NewRecordHandler(records *service.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// Submitted lists a user's submitted records.
func (h *RecordHandler) Submitted(c *gin.Context) {
	page, size := pageParams(c)
	records, err := h.records.Submitted(c.Request.Context(), c.Query("username"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Failures lists a user's failure records.
func (h *RecordHandler) Failures(c *gin.Context) {
	page, size := pageParams(c)
	records, err := h.records.Failures(c.Request.Context(), c.Query("username"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}
