package entitlement

import (
	"errors"
	"net/http"

	"tutorslot/internal/auth"
	"tutorslot/internal/booking"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Summarize godoc
// @Summary      Get entitlement summary
// @Description  Active balance, next expiry and the active grants behind them.
// @Tags         entitlements
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Summary
// @Failure      401  {object}  gin.H
// @Failure      500  {object}  gin.H
// @Router       /entitlements [get]
func (h *Handler) Summarize(c *gin.Context) {
	accountID, ok := auth.GetAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not authenticated"})
		return
	}

	summary, err := h.service.Summarize(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load entitlements"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// BookingAccess godoc
// @Summary      Get booking access windows
// @Description  Whether the booking can currently be cancelled or joined, and the exact window bounds.
// @Tags         entitlements
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      string  true  "Booking ID"
// @Success      200        {object}  Access
// @Failure      400        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      500        {object}  gin.H
// @Router       /bookings/{bookingID}/access [get]
func (h *Handler) BookingAccess(c *gin.Context) {
	accountID, ok := auth.GetAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not authenticated"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	access, err := h.service.BookingAccess(c.Request.Context(), accountID, bookingID)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load booking access"})
		return
	}

	c.JSON(http.StatusOK, access)
}
