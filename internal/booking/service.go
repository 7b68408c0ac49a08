package booking

import (
	"context"
	"time"

	"tutorslot/internal/account"
	"tutorslot/internal/clock"
	"tutorslot/internal/logger"
	"tutorslot/internal/metrics"
	"tutorslot/internal/slot"

	"github.com/google/uuid"
)

// DefaultCreditsPerSession is the standard price of one booking in ledger
// units.
const DefaultCreditsPerSession = 1

// Notifier is the observer for booking outcomes. Reminder and notification
// state lives entirely behind it, never on the booking itself.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, to, name, subject string, start time.Time) error
	SendBookingCancellation(ctx context.Context, to, name, subject string, start time.Time) error
	SendReminder(ctx context.Context, to, name, subject string, start time.Time) error
}

type Service interface {
	Confirm(ctx context.Context, accountID, slotID uuid.UUID, creditsRequired int) (*Booking, error)
	Cancel(ctx context.Context, accountID, bookingID uuid.UUID) error
	MarkNoShow(ctx context.Context, bookingID uuid.UUID) error
	RemindSlot(ctx context.Context, slotID uuid.UUID) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Booking, error)
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]BookingWithDetails, error)
}

type service struct {
	repo        Repository
	slotRepo    slot.Repository
	accountRepo account.Repository
	clk         *clock.Clock
	notifier    Notifier
	now         func() time.Time
}

func NewService(
	repo Repository,
	slotRepo slot.Repository,
	accountRepo account.Repository,
	clk *clock.Clock,
	notifier Notifier,
) Service {
	return &service{
		repo:        repo,
		slotRepo:    slotRepo,
		accountRepo: accountRepo,
		clk:         clk,
		notifier:    notifier,
		now:         time.Now,
	}
}

func (s *service) Confirm(ctx context.Context, accountID, slotID uuid.UUID, creditsRequired int) (*Booking, error) {
	sl, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	start, err := s.clk.SessionStart(sl.DateKey, sl.StartMin)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.After(start) {
		return nil, ErrSlotStarted
	}

	// Cheap prechecks. The repository re-verifies both under the slot row
	// lock, so these only fail fast without taking it.
	booked, err := s.repo.HasConfirmedForSlot(ctx, accountID, slotID)
	if err != nil {
		return nil, err
	}
	if booked {
		return nil, ErrAlreadyBooked
	}

	confirmed, err := s.repo.CountConfirmedForSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if confirmed >= sl.Capacity {
		return nil, ErrSlotFull
	}

	booking, err := s.repo.CreateConfirmed(ctx, accountID, sl, creditsRequired, now)
	if err != nil {
		return nil, err
	}

	metrics.RecordBooking(string(StatusConfirmed))
	logger.Info("booking confirmed",
		"booking_id", booking.ID.String(),
		"account_id", accountID.String(),
		"slot_id", slotID.String(),
		"credits_debited", creditsRequired,
	)

	if acct, err := s.accountRepo.FindByID(ctx, accountID); err == nil {
		s.notifier.SendBookingConfirmation(ctx, acct.Email, acct.Name, sl.Subject, start)
	}

	return booking, nil
}

func (s *service) Cancel(ctx context.Context, accountID, bookingID uuid.UUID) error {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.AccountID != accountID {
		return ErrNotOwner
	}

	// A second cancel or a cancel after no-show is an error, not a silent
	// success.
	if booking.Status != StatusConfirmed {
		return ErrBookingNotCancellable
	}

	start, err := s.clk.SessionStart(booking.DateKey, booking.StartMin)
	if err != nil {
		return err
	}

	now := s.now()
	if !clock.CanCancel(now, start) {
		return ErrBookingNotCancellable
	}

	// The repository re-checks the status under the transaction, so a race
	// with a concurrent cancel resolves to exactly one restoration.
	if err := s.repo.CancelAndRestore(ctx, bookingID, accountID, booking.CreditsDebited, now); err != nil {
		return err
	}

	metrics.RecordBookingCancellation()
	metrics.RecordRestore(booking.CreditsDebited)
	logger.Info("booking cancelled",
		"booking_id", bookingID.String(),
		"account_id", accountID.String(),
		"credits_restored", booking.CreditsDebited,
	)

	if acct, err := s.accountRepo.FindByID(ctx, accountID); err == nil {
		if sl, err := s.slotRepo.GetByID(ctx, booking.SlotID); err == nil {
			s.notifier.SendBookingCancellation(ctx, acct.Email, acct.Name, sl.Subject, start)
		}
	}

	return nil
}

// MarkNoShow closes out a missed session. No credits come back: a no-show is
// not refundable.
func (s *service) MarkNoShow(ctx context.Context, bookingID uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, bookingID); err != nil {
		return err
	}

	if err := s.repo.MarkNoShow(ctx, bookingID); err != nil {
		return err
	}

	metrics.RecordBookingNoShow()
	logger.Info("booking marked no-show", "booking_id", bookingID.String())

	return nil
}

// RemindSlot queues a reminder email for every confirmed booking on the
// slot and reports how many went out. A recipient that cannot be queued is
// skipped rather than aborting the sweep.
func (s *service) RemindSlot(ctx context.Context, slotID uuid.UUID) (int, error) {
	bookings, err := s.repo.ListBySlot(ctx, slotID)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, b := range bookings {
		if b.Status != StatusConfirmed {
			continue
		}

		start, err := s.clk.SessionStart(b.DateKey, b.StartMin)
		if err != nil {
			return queued, err
		}

		if err := s.notifier.SendReminder(ctx, b.AccountEmail, b.AccountName, b.Subject, start); err != nil {
			logger.Error("failed to queue reminder",
				"booking_id", b.ID.String(),
				"error", err.Error(),
			)
			continue
		}
		queued++
	}

	logger.Info("slot reminders queued", "slot_id", slotID.String(), "count", queued)
	return queued, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Booking, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

func (s *service) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]BookingWithDetails, error) {
	return s.repo.ListBySlot(ctx, slotID)
}
