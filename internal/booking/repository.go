package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tutorslot/internal/ledger"
	"tutorslot/internal/slot"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const bookingColumns = `id, slot_id, account_id, date_key, start_min, end_min, status, credits_debited, created_at`

type repository struct {
	db     *sqlx.DB
	ledger ledger.Repository
}

func NewRepository(db *sqlx.DB, ledgerRepo ledger.Repository) Repository {
	return &repository{db: db, ledger: ledgerRepo}
}

func (r *repository) CreateConfirmed(ctx context.Context, accountID uuid.UUID, s *slot.Slot, credits int, now time.Time) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock the slot row so concurrent confirms serialize on the capacity
	// check instead of both passing it.
	var capacity int
	err = tx.GetContext(ctx, &capacity, `SELECT capacity FROM slots WHERE id = $1 FOR UPDATE`, s.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, slot.ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}

	var confirmed int
	err = tx.GetContext(ctx, &confirmed,
		`SELECT COUNT(*) FROM bookings WHERE slot_id = $1 AND status = 'confirmed'`, s.ID)
	if err != nil {
		return nil, err
	}
	if confirmed >= capacity {
		return nil, ErrSlotFull
	}

	var already bool
	err = tx.GetContext(ctx, &already, `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE account_id = $1 AND slot_id = $2 AND status = 'confirmed'
		)
	`, accountID, s.ID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, ErrAlreadyBooked
	}

	// The debit shares this transaction: a booking never exists without its
	// debit and a debit never lands without its booking.
	if err := r.ledger.ConsumeTx(ctx, tx, accountID, credits, now); err != nil {
		return nil, err
	}

	var b Booking
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO bookings (slot_id, account_id, date_key, start_min, end_min, status, credits_debited)
		VALUES ($1, $2, $3, $4, $5, 'confirmed', $6)
		RETURNING `+bookingColumns,
		s.ID, accountID, s.DateKey, s.StartMin, s.EndMin, credits,
	).StructScan(&b)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *repository) CancelAndRestore(ctx context.Context, id, accountID uuid.UUID, credits int, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'cancelled'
		WHERE id = $1 AND status = 'confirmed'
	`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// Already cancelled or marked no-show by a concurrent caller.
		return ErrBookingNotCancellable
	}

	if err := r.ledger.RestoreTx(ctx, tx, accountID, credits, now); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) MarkNoShow(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'no_show'
		WHERE id = $1 AND status = 'confirmed'
	`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrBookingNotConfirmed
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE account_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *repository) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]BookingWithDetails, error) {
	var bookings []BookingWithDetails
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT
			b.id,
			b.slot_id,
			b.account_id,
			b.date_key,
			b.start_min,
			b.end_min,
			b.status,
			b.credits_debited,
			b.created_at,
			s.subject,
			s.tutor_name,
			a.name AS account_name,
			a.email AS account_email
		FROM bookings b
		JOIN slots s ON b.slot_id = s.id
		JOIN accounts a ON b.account_id = a.id
		WHERE b.slot_id = $1
		ORDER BY b.created_at DESC
	`, slotID)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *repository) CountConfirmedForSlot(ctx context.Context, slotID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM bookings WHERE slot_id = $1 AND status = 'confirmed'`, slotID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *repository) HasConfirmedForSlot(ctx context.Context, accountID, slotID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE account_id = $1 AND slot_id = $2 AND status = 'confirmed'
		)
	`, accountID, slotID)
	if err != nil {
		return false, err
	}

	return exists, nil
}
