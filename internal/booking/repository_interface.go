package booking

import (
	"context"
	"time"

	"tutorslot/internal/slot"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateConfirmed debits the account and records the confirmed booking
	// as one atomic unit. The slot row is locked while capacity is checked.
	CreateConfirmed(ctx context.Context, accountID uuid.UUID, s *slot.Slot, credits int, now time.Time) (*Booking, error)

	// CancelAndRestore flips a confirmed booking to cancelled and restores
	// its debited credits in the same transaction. The status check and the
	// write are a single conditional update, so concurrent cancels cannot
	// both restore.
	CancelAndRestore(ctx context.Context, id, accountID uuid.UUID, credits int, now time.Time) error

	MarkNoShow(ctx context.Context, id uuid.UUID) error

	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Booking, error)
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]BookingWithDetails, error)
	CountConfirmedForSlot(ctx context.Context, slotID uuid.UUID) (int, error)
	HasConfirmedForSlot(ctx context.Context, accountID, slotID uuid.UUID) (bool, error)
}
