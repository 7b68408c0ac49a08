package slot

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, subject, tutorName, dateKey string, startMin, endMin, capacity int) (*Slot, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	ListFrom(ctx context.Context, fromDateKey string) ([]Slot, error)
	ListWithAvailability(ctx context.Context, fromDateKey string) ([]SlotWithAvailability, error)
}
