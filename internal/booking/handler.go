package booking

import (
	"errors"
	"net/http"

	"tutorslot/internal/auth"
	"tutorslot/internal/ledger"
	"tutorslot/internal/slot"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Confirm godoc
// @Summary      Book a session slot
// @Description  Debits one credit and confirms a booking for the slot, atomically.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        slotID  path      string  true  "Slot ID"
// @Success      201     {object}  ConfirmResponse
// @Failure      400     {object}  gin.H
// @Failure      402     {object}  gin.H
// @Failure      404     {object}  gin.H
// @Failure      409     {object}  gin.H
// @Failure      500     {object}  gin.H
// @Router       /slots/{slotID}/book [post]
func (h *Handler) Confirm(c *gin.Context) {
	accountID, ok := auth.GetAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not authenticated"})
		return
	}

	slotID, err := uuid.Parse(c.Param("slotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot ID"})
		return
	}

	booking, err := h.service.Confirm(c.Request.Context(), accountID, slotID, DefaultCreditsPerSession)
	if err != nil {
		switch {
		case errors.Is(err, slot.ErrSlotNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "slot not found"})
		case errors.Is(err, ErrSlotStarted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "session has already started"})
		case errors.Is(err, ErrSlotFull):
			c.JSON(http.StatusConflict, gin.H{"error": "slot is full"})
		case errors.Is(err, ErrAlreadyBooked):
			c.JSON(http.StatusConflict, gin.H{"error": "already booked for this slot"})
		case errors.Is(err, ledger.ErrInsufficientCredits):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credits"})
		case errors.Is(err, ledger.ErrConcurrentModification):
			c.JSON(http.StatusConflict, gin.H{"error": "concurrent modification, retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to book slot"})
		}
		return
	}

	c.JSON(http.StatusCreated, ConfirmResponse{
		Booking:        booking,
		CreditsDebited: booking.CreditsDebited,
	})
}

// Cancel godoc
// @Summary      Cancel a booking
// @Description  Cancels a confirmed booking up to 60 minutes before start and restores its credits.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      string  true  "Booking ID"
// @Success      200        {object}  CancelResponse
// @Failure      400        {object}  gin.H
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Failure      500        {object}  gin.H
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
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

	if err := h.service.Cancel(c.Request.Context(), accountID, bookingID); err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "can only cancel own bookings"})
		case errors.Is(err, ErrBookingNotCancellable):
			c.JSON(http.StatusConflict, gin.H{"error": "booking not cancellable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel booking"})
		}
		return
	}

	c.JSON(http.StatusOK, CancelResponse{Message: "Booking cancelled successfully"})
}

// MarkNoShow godoc
// @Summary      Mark a booking as no-show
// @Description  Invoked by the scheduling process after a missed session. Credits are not restored.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      string  true  "Booking ID"
// @Success      200        {object}  gin.H
// @Failure      400        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Failure      500        {object}  gin.H
// @Router       /admin/bookings/{bookingID}/no-show [post]
func (h *Handler) MarkNoShow(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	if err := h.service.MarkNoShow(c.Request.Context(), bookingID); err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		case errors.Is(err, ErrBookingNotConfirmed):
			c.JSON(http.StatusConflict, gin.H{"error": "booking is not confirmed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark no-show"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking marked as no-show"})
}

// RemindSlot godoc
// @Summary      Send session reminders for a slot
// @Description  Queues a reminder email to every account holding a confirmed booking on the slot.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        slotID  path      string  true  "Slot ID"
// @Success      200     {object}  gin.H
// @Failure      400     {object}  gin.H
// @Failure      500     {object}  gin.H
// @Router       /admin/slots/{slotID}/remind [post]
func (h *Handler) RemindSlot(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("slotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot ID"})
		return
	}

	queued, err := h.service.RemindSlot(c.Request.Context(), slotID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send reminders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminders_queued": queued})
}

// ListMine godoc
// @Summary      List my bookings
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Booking
// @Failure      500  {object}  gin.H
// @Router       /bookings [get]
func (h *Handler) ListMine(c *gin.Context) {
	accountID, ok := auth.GetAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not authenticated"})
		return
	}

	bookings, err := h.service.ListByAccount(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load bookings"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// ListBySlot godoc
// @Summary      List bookings for a slot
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        slotID  path      string  true  "Slot ID"
// @Success      200     {array}   BookingWithDetails
// @Failure      400     {object}  gin.H
// @Failure      500     {object}  gin.H
// @Router       /admin/slots/{slotID}/bookings [get]
func (h *Handler) ListBySlot(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("slotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot ID"})
		return
	}

	bookings, err := h.service.ListBySlot(c.Request.Context(), slotID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load bookings"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}
