package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Booking is a reservation against a fixed-capacity slot. The wall-clock
// fields are copied from the slot at confirmation time, and CreditsDebited
// records the debit taken then, so later policy changes never alter what a
// cancellation restores.
type Booking struct {
	ID             uuid.UUID `db:"id" json:"id"`
	SlotID         uuid.UUID `db:"slot_id" json:"slot_id"`
	AccountID      uuid.UUID `db:"account_id" json:"account_id"`
	DateKey        string    `db:"date_key" json:"date_key"`
	StartMin       int       `db:"start_min" json:"start_min"`
	EndMin         int       `db:"end_min" json:"end_min"`
	Status         Status    `db:"status" json:"status"`
	CreditsDebited int       `db:"credits_debited" json:"credits_debited"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type BookingWithDetails struct {
	Booking
	Subject      string `db:"subject" json:"subject"`
	TutorName    string `db:"tutor_name" json:"tutor_name"`
	AccountName  string `db:"account_name" json:"account_name"`
	AccountEmail string `db:"account_email" json:"account_email"`
}

type ConfirmResponse struct {
	Booking        *Booking `json:"booking"`
	CreditsDebited int      `json:"credits_debited"`
}

type CancelResponse struct {
	Message string `json:"message" example:"Booking cancelled successfully"`
}
