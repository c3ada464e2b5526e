package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rainbow59216/snatcher/internal/models"
	"github.com/rainbow59216/snatcher/internal/service"
	appErrors "github.com/rainbow59216/snatcher/pkg/errors"
	"github.com/rainbow59216/snatcher/pkg/response"
)

// BookingHandler exposes the booking endpoints.
type BookingHandler struct {
	bookings *service.BookingService
	metrics  *service.MetricsService
}

// NewBookingHandler constructs BookingHandler.
func NewBookingHandler(bookings *service.BookingService, metrics *service.MetricsService) *BookingHandler {
	return &BookingHandler{bookings: bookings, metrics: metrics}
}

// Create admits one booking. The work itself runs asynchronously; 202 means
// the token is claimed and the job is scheduled.
func (h *BookingHandler) Create(c *gin.Context) {
	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	receipt, err := h.bookings.Book(c.Request.Context(), &req)
	if err != nil {
		h.metrics.ObserveBooking("rejected")
		response.Error(c, err)
		return
	}
	h.metrics.ObserveBooking("admitted")
	response.Accepted(c, receipt)
}

// Window reports the open category and opening time.
func (h *BookingHandler) Window(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.bookings.Window(), nil)
}
