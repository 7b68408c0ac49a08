package entitlement

import (
	"context"
	"time"

	"tutorslot/internal/booking"
	"tutorslot/internal/clock"
	"tutorslot/internal/ledger"

	"github.com/google/uuid"
)

// Summary is the account's entitlement projection for the presentation
// layer: active balance plus the grants behind it, soonest-expiring first.
type Summary struct {
	Remaining    int                  `json:"remaining"`
	NextExpiry   *time.Time           `json:"next_expiry,omitempty"`
	ActiveGrants []ledger.CreditGrant `json:"active_grants"`
}

// Access is the window arithmetic for one booking, precomputed so the
// presentation layer never re-implements it.
type Access struct {
	BookingID        uuid.UUID `json:"booking_id"`
	Status           string    `json:"status"`
	CanCancel        bool      `json:"can_cancel"`
	CanJoin          bool      `json:"can_join"`
	LobbyOpen        bool      `json:"lobby_open"`
	CancellableUntil time.Time `json:"cancellable_until"`
	LobbyOpensAt     time.Time `json:"lobby_opens_at"`
	JoinableFrom     time.Time `json:"joinable_from"`
	JoinableUntil    time.Time `json:"joinable_until"`
}

// Service exposes read-only projections over ledger and lifecycle state.
// Nothing here mutates.
type Service struct {
	ledgerRepo  ledger.Repository
	bookingRepo booking.Repository
	clk         *clock.Clock
	now         func() time.Time
}

func NewService(ledgerRepo ledger.Repository, bookingRepo booking.Repository, clk *clock.Clock) *Service {
	return &Service{
		ledgerRepo:  ledgerRepo,
		bookingRepo: bookingRepo,
		clk:         clk,
		now:         time.Now,
	}
}

func (s *Service) Summarize(ctx context.Context, accountID uuid.UUID) (*Summary, error) {
	now := s.now()

	balance, err := s.ledgerRepo.ActiveBalance(ctx, accountID, now)
	if err != nil {
		return nil, err
	}

	grants, err := s.ledgerRepo.ListActiveGrants(ctx, accountID, now)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Remaining:    balance.Remaining,
		NextExpiry:   balance.NextExpiry,
		ActiveGrants: grants,
	}, nil
}

func (s *Service) BookingAccess(ctx context.Context, accountID, bookingID uuid.UUID) (*Access, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.AccountID != accountID {
		return nil, booking.ErrBookingNotFound
	}

	start, err := s.clk.SessionStart(b.DateKey, b.StartMin)
	if err != nil {
		return nil, err
	}
	end, err := s.clk.SessionEnd(b.DateKey, b.EndMin)
	if err != nil {
		return nil, err
	}

	now := s.now()
	joinFrom, joinUntil := clock.JoinWindow(start, end)
	confirmed := b.Status == booking.StatusConfirmed

	return &Access{
		BookingID:        b.ID,
		Status:           string(b.Status),
		CanCancel:        confirmed && clock.CanCancel(now, start),
		CanJoin:          confirmed && clock.CanJoin(now, start, end),
		LobbyOpen:        confirmed && clock.LobbyOpen(now, start),
		CancellableUntil: clock.CancellationDeadline(start),
		LobbyOpensAt:     clock.LobbyOpensAt(start),
		JoinableFrom:     joinFrom,
		JoinableUntil:    joinUntil,
	}, nil
}
