package slot

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a fixed-capacity tutoring session. DateKey plus the minute offsets
// define its wall-clock time in the business timezone; conversion to an
// absolute instant goes through the clock package.
type Slot struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Subject   string    `db:"subject" json:"subject"`
	TutorName string    `db:"tutor_name" json:"tutor_name"`
	DateKey   string    `db:"date_key" json:"date_key"`
	StartMin  int       `db:"start_min" json:"start_min"`
	EndMin    int       `db:"end_min" json:"end_min"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type SlotWithAvailability struct {
	Slot
	BookedCount int  `db:"booked_count" json:"booked_count"`
	Available   int  `json:"available"`
	IsFull      bool `json:"is_full"`
}

type CreateSlotRequest struct {
	Subject   string `json:"subject" binding:"required"`
	TutorName string `json:"tutor_name" binding:"required"`
	DateKey   string `json:"date_key" binding:"required"`
	StartMin  int    `json:"start_min" binding:"min=0,max=1439"`
	EndMin    int    `json:"end_min" binding:"required,max=1440"`
	Capacity  int    `json:"capacity" binding:"required,min=1"`
}
