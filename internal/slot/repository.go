package slot

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrSlotNotFound = errors.New("slot not found")

const slotColumns = `id, subject, tutor_name, date_key, start_min, end_min, capacity, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, subject, tutorName, dateKey string, startMin, endMin, capacity int) (*Slot, error) {
	var s Slot
	err := r.db.GetContext(ctx, &s, `
		INSERT INTO slots (subject, tutor_name, date_key, start_min, end_min, capacity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+slotColumns,
		subject, tutorName, dateKey, startMin, endMin, capacity,
	)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	var s Slot
	err := r.db.GetContext(ctx, &s,
		`SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *repository) ListFrom(ctx context.Context, fromDateKey string) ([]Slot, error) {
	var slots []Slot
	err := r.db.SelectContext(ctx, &slots, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE date_key >= $1
		ORDER BY date_key ASC, start_min ASC
	`, fromDateKey)
	if err != nil {
		return nil, err
	}

	return slots, nil
}

func (r *repository) ListWithAvailability(ctx context.Context, fromDateKey string) ([]SlotWithAvailability, error) {
	var slots []SlotWithAvailability
	err := r.db.SelectContext(ctx, &slots, `
		SELECT
			s.id,
			s.subject,
			s.tutor_name,
			s.date_key,
			s.start_min,
			s.end_min,
			s.capacity,
			s.created_at,
			COUNT(b.id) FILTER (WHERE b.status = 'confirmed') AS booked_count
		FROM slots s
		LEFT JOIN bookings b ON b.slot_id = s.id
		WHERE s.date_key >= $1
		GROUP BY s.id
		ORDER BY s.date_key ASC, s.start_min ASC
	`, fromDateKey)
	if err != nil {
		return nil, err
	}

	for i := range slots {
		slots[i].Available = slots[i].Capacity - slots[i].BookedCount
		slots[i].IsFull = slots[i].Available <= 0
	}

	return slots, nil
}
