package slot

import (
	"errors"
	"net/http"
	"time"

	"tutorslot/internal/clock"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	repo Repository
	clk  *clock.Clock
}

func NewHandler(repo Repository, clk *clock.Clock) *Handler {
	return &Handler{repo: repo, clk: clk}
}

// CreateSlot godoc
// @Summary      Create session slot
// @Description  Creates a fixed-capacity tutoring slot. Times are minutes since midnight in the business timezone.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateSlotRequest  true  "Slot definition"
// @Success      201      {object}  Slot
// @Failure      400      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /admin/slots [post]
func (h *Handler) CreateSlot(c *gin.Context) {
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.EndMin <= req.StartMin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_min must be after start_min"})
		return
	}

	if _, err := h.clk.SessionStart(req.DateKey, req.StartMin); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date_key must be YYYY-MM-DD"})
		return
	}

	s, err := h.repo.Create(c.Request.Context(), req.Subject, req.TutorName, req.DateKey, req.StartMin, req.EndMin, req.Capacity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create slot"})
		return
	}

	c.JSON(http.StatusCreated, s)
}

// ListSlots godoc
// @Summary      List upcoming slots
// @Description  Lists slots from today onward with per-slot availability.
// @Tags         slots
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   SlotWithAvailability
// @Failure      500  {object}  gin.H
// @Router       /slots [get]
func (h *Handler) ListSlots(c *gin.Context) {
	today := time.Now().In(h.clk.Location()).Format("2006-01-02")

	slots, err := h.repo.ListWithAvailability(c.Request.Context(), today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load slots"})
		return
	}

	c.JSON(http.StatusOK, slots)
}

// GetSlot godoc
// @Summary      Get a slot
// @Tags         slots
// @Security     BearerAuth
// @Produce      json
// @Param        slotID  path      string  true  "Slot ID"
// @Success      200     {object}  Slot
// @Failure      400     {object}  gin.H
// @Failure      404     {object}  gin.H
// @Router       /slots/{slotID} [get]
func (h *Handler) GetSlot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("slotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot ID"})
		return
	}

	s, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "slot not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load slot"})
		return
	}

	c.JSON(http.StatusOK, s)
}
