package booking

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tutorslot/internal/account"
	"tutorslot/internal/clock"
	"tutorslot/internal/logger"
	"tutorslot/internal/slot"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type MockBookingRepo struct{ mock.Mock }
type MockSlotRepo struct{ mock.Mock }
type MockAccountRepo struct{ mock.Mock }
type MockNotifier struct{ mock.Mock }

func (m *MockBookingRepo) CreateConfirmed(ctx context.Context, accountID uuid.UUID, s *slot.Slot, credits int, now time.Time) (*Booking, error) {
	args := m.Called(ctx, accountID, s, credits, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockBookingRepo) CancelAndRestore(ctx context.Context, id, accountID uuid.UUID, credits int, now time.Time) error {
	return m.Called(ctx, id, accountID, credits, now).Error(0)
}

func (m *MockBookingRepo) MarkNoShow(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockBookingRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Booking, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Booking), args.Error(1)
}

func (m *MockBookingRepo) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]BookingWithDetails, error) {
	args := m.Called(ctx, slotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BookingWithDetails), args.Error(1)
}

func (m *MockBookingRepo) CountConfirmedForSlot(ctx context.Context, slotID uuid.UUID) (int, error) {
	args := m.Called(ctx, slotID)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingRepo) HasConfirmedForSlot(ctx context.Context, accountID, slotID uuid.UUID) (bool, error) {
	args := m.Called(ctx, accountID, slotID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSlotRepo) Create(ctx context.Context, subject, tutorName, dateKey string, startMin, endMin, capacity int) (*slot.Slot, error) {
	args := m.Called(ctx, subject, tutorName, dateKey, startMin, endMin, capacity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*slot.Slot), args.Error(1)
}

func (m *MockSlotRepo) GetByID(ctx context.Context, id uuid.UUID) (*slot.Slot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*slot.Slot), args.Error(1)
}

func (m *MockSlotRepo) ListFrom(ctx context.Context, fromDateKey string) ([]slot.Slot, error) {
	args := m.Called(ctx, fromDateKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]slot.Slot), args.Error(1)
}

func (m *MockSlotRepo) ListWithAvailability(ctx context.Context, fromDateKey string) ([]slot.SlotWithAvailability, error) {
	args := m.Called(ctx, fromDateKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]slot.SlotWithAvailability), args.Error(1)
}

func (m *MockAccountRepo) Create(ctx context.Context, name, email, passwordHash, role string) (*account.Account, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotifier) SendBookingConfirmation(ctx context.Context, to, name, subject string, start time.Time) error {
	return m.Called(ctx, to, name, subject, start).Error(0)
}

func (m *MockNotifier) SendBookingCancellation(ctx context.Context, to, name, subject string, start time.Time) error {
	return m.Called(ctx, to, name, subject, start).Error(0)
}

func (m *MockNotifier) SendReminder(ctx context.Context, to, name, subject string, start time.Time) error {
	return m.Called(ctx, to, name, subject, start).Error(0)
}

type testEnv struct {
	repo        *MockBookingRepo
	slotRepo    *MockSlotRepo
	accountRepo *MockAccountRepo
	notifier    *MockNotifier
	svc         *service
	now         time.Time
}

// newTestEnv pins the clock to 10:00 UTC on 2026-03-05.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk, err := clock.New("UTC")
	if err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		repo:        new(MockBookingRepo),
		slotRepo:    new(MockSlotRepo),
		accountRepo: new(MockAccountRepo),
		notifier:    new(MockNotifier),
		now:         time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
	}

	env.svc = NewService(env.repo, env.slotRepo, env.accountRepo, clk, env.notifier).(*service)
	env.svc.now = func() time.Time { return env.now }

	return env
}

func slotStartingAt(id uuid.UUID, startMin int) *slot.Slot {
	return &slot.Slot{
		ID:        id,
		Subject:   "Algebra",
		TutorName: "Aigerim",
		DateKey:   "2026-03-05",
		StartMin:  startMin,
		EndMin:    startMin + 60,
		Capacity:  3,
	}
}

func TestConfirm_Success(t *testing.T) {
	env := newTestEnv(t)
	accountID := uuid.New()
	slotID := uuid.New()

	// Session at 12:00, two hours out.
	sl := slotStartingAt(slotID, 720)
	booked := &Booking{
		ID:             uuid.New(),
		SlotID:         slotID,
		AccountID:      accountID,
		DateKey:        sl.DateKey,
		StartMin:       sl.StartMin,
		EndMin:         sl.EndMin,
		Status:         StatusConfirmed,
		CreditsDebited: 1,
	}

	env.slotRepo.On("GetByID", mock.Anything, slotID).Return(sl, nil)
	env.repo.On("HasConfirmedForSlot", mock.Anything, accountID, slotID).Return(false, nil)
	env.repo.On("CountConfirmedForSlot", mock.Anything, slotID).Return(0, nil)
	env.repo.On("CreateConfirmed", mock.Anything, accountID, sl, 1, env.now).Return(booked, nil)
	env.accountRepo.On("FindByID", mock.Anything, accountID).
		Return(&account.Account{ID: accountID, Name: "Dana", Email: "dana@example.com"}, nil)
	env.notifier.On("SendBookingConfirmation", mock.Anything, "dana@example.com", "Dana", "Algebra", mock.Anything).Return(nil)

	b, err := env.svc.Confirm(context.Background(), accountID, slotID, 1)
	assert.NoError(t, err)
	assert.Equal(t, booked.ID, b.ID)
	env.repo.AssertExpectations(t)
	env.notifier.AssertExpectations(t)
}

func TestConfirm_SlotAlreadyStarted(t *testing.T) {
	env := newTestEnv(t)
	slotID := uuid.New()

	// Session started at 09:00, an hour ago.
	env.slotRepo.On("GetByID", mock.Anything, slotID).Return(slotStartingAt(slotID, 540), nil)

	_, err := env.svc.Confirm(context.Background(), uuid.New(), slotID, 1)
	assert.ErrorIs(t, err, ErrSlotStarted)
	env.repo.AssertNotCalled(t, "CreateConfirmed")
}

func TestConfirm_AlreadyBooked(t *testing.T) {
	env := newTestEnv(t)
	accountID := uuid.New()
	slotID := uuid.New()

	env.slotRepo.On("GetByID", mock.Anything, slotID).Return(slotStartingAt(slotID, 720), nil)
	env.repo.On("HasConfirmedForSlot", mock.Anything, accountID, slotID).Return(true, nil)

	_, err := env.svc.Confirm(context.Background(), accountID, slotID, 1)
	assert.ErrorIs(t, err, ErrAlreadyBooked)
	env.repo.AssertNotCalled(t, "CreateConfirmed")
}

func TestConfirm_SlotFull(t *testing.T) {
	env := newTestEnv(t)
	accountID := uuid.New()
	slotID := uuid.New()

	// Capacity 3, three confirmed bookings already.
	env.slotRepo.On("GetByID", mock.Anything, slotID).Return(slotStartingAt(slotID, 720), nil)
	env.repo.On("HasConfirmedForSlot", mock.Anything, accountID, slotID).Return(false, nil)
	env.repo.On("CountConfirmedForSlot", mock.Anything, slotID).Return(3, nil)

	_, err := env.svc.Confirm(context.Background(), accountID, slotID, 1)
	assert.ErrorIs(t, err, ErrSlotFull)
	env.repo.AssertNotCalled(t, "CreateConfirmed")
}

func TestCancel_WithinDeadline(t *testing.T) {
	env := newTestEnv(t)
	accountID := uuid.New()
	bookingID := uuid.New()
	slotID := uuid.New()

	booking := &Booking{
		ID:             bookingID,
		SlotID:         slotID,
		AccountID:      accountID,
		DateKey:        "2026-03-05",
		StartMin:       720,
		EndMin:         780,
		Status:         StatusConfirmed,
		CreditsDebited: 1,
	}

	env.repo.On("GetByID", mock.Anything, bookingID).Return(booking, nil)
	env.repo.On("CancelAndRestore", mock.Anything, bookingID, accountID, 1, env.now).Return(nil)
	env.accountRepo.On("FindByID", mock.Anything, accountID).
		Return(&account.Account{ID: accountID, Name: "Dana", Email: "dana@example.com"}, nil)
	env.slotRepo.On("GetByID", mock.Anything, slotID).Return(slotStartingAt(slotID, 720), nil)
	env.notifier.On("SendBookingCancellation", mock.Anything, "dana@example.com", "Dana", "Algebra", mock.Anything).Return(nil)

	err := env.svc.Cancel(context.Background(), accountID, bookingID)
	assert.NoError(t, err)
	env.repo.AssertExpectations(t)
}

func TestCancel_ExactlyAtDeadline(t *testing.T) {
	env := newTestEnv(t)
	accountID := uuid.New()
	bookingID := uuid.New()
	slotID := uuid.New()

	// Session at 11:00, exactly sixty minutes from now. The deadline is
	// inclusive.
	booking := &Booking{
		ID:             bookingID,
		SlotID:         slotID,
		AccountID:      accountID,
		DateKey:        "2026-03-05",
		StartMin:       660,
		EndMin:         720,
		Status:         StatusConfirmed,
		CreditsDebited: 1,
	}

	env.repo.On("GetByID", mock.Anything, bookingID).Return(booking, nil)
	env.repo.On("CancelAndRestore", mock.Anything, bookingID, accountID, 1, env.now).Return(nil)
	env.accountRepo.On("FindByID", mock.Anything, accountID).
		Return(&account.Account{ID: accountID, Name: "Dana", Email: "dana@example.com"}, nil)
	env.slotRepo.On("GetByID", mock.Anything, slotID).Return(slotStartingAt(slotID, 660), nil)
	env.notifier.On("SendBookingCancellation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := env.svc.Cancel(context.Background(), accountID, bookingID)
	assert.NoError(t, err)
}

func TestCancel_PastDeadline(t *testing.T) {
	env := newTestEnv(t)
	accountID := uuid.New()
	bookingID := uuid.New()

	// Session at 10:30, only thirty minutes out.
	booking := &Booking{
		ID:             bookingID,
		SlotID:         uuid.New(),
		AccountID:      accountID,
		DateKey:        "2026-03-05",
		StartMin:       630,
		EndMin:         690,
		Status:         StatusConfirmed,
		CreditsDebited: 1,
	}

	env.repo.On("GetByID", mock.Anything, bookingID).Return(booking, nil)

	err := env.svc.Cancel(context.Background(), accountID, bookingID)
	assert.ErrorIs(t, err, ErrBookingNotCancellable)
	env.repo.AssertNotCalled(t, "CancelAndRestore")
}

func TestCancel_NotOwner(t *testing.T) {
	env := newTestEnv(t)
	bookingID := uuid.New()

	booking := &Booking{
		ID:        bookingID,
		AccountID: uuid.New(),
		DateKey:   "2026-03-05",
		StartMin:  720,
		Status:    StatusConfirmed,
	}

	env.repo.On("GetByID", mock.Anything, bookingID).Return(booking, nil)

	err := env.svc.Cancel(context.Background(), uuid.New(), bookingID)
	assert.ErrorIs(t, err, ErrNotOwner)
	env.repo.AssertNotCalled(t, "CancelAndRestore")
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	env := newTestEnv(t)
	accountID := uuid.New()
	bookingID := uuid.New()

	booking := &Booking{
		ID:        bookingID,
		AccountID: accountID,
		DateKey:   "2026-03-05",
		StartMin:  720,
		Status:    StatusCancelled,
	}

	env.repo.On("GetByID", mock.Anything, bookingID).Return(booking, nil)

	err := env.svc.Cancel(context.Background(), accountID, bookingID)
	assert.ErrorIs(t, err, ErrBookingNotCancellable)
	env.repo.AssertNotCalled(t, "CancelAndRestore")
}

func TestMarkNoShow_NoRestore(t *testing.T) {
	env := newTestEnv(t)
	bookingID := uuid.New()

	booking := &Booking{
		ID:             bookingID,
		AccountID:      uuid.New(),
		DateKey:        "2026-03-05",
		StartMin:       540,
		Status:         StatusConfirmed,
		CreditsDebited: 1,
	}

	env.repo.On("GetByID", mock.Anything, bookingID).Return(booking, nil)
	env.repo.On("MarkNoShow", mock.Anything, bookingID).Return(nil)

	err := env.svc.MarkNoShow(context.Background(), bookingID)
	assert.NoError(t, err)
	env.repo.AssertNotCalled(t, "CancelAndRestore")
	env.repo.AssertExpectations(t)
}

func TestMarkNoShow_NotFound(t *testing.T) {
	env := newTestEnv(t)
	bookingID := uuid.New()

	env.repo.On("GetByID", mock.Anything, bookingID).Return(nil, ErrBookingNotFound)

	err := env.svc.MarkNoShow(context.Background(), bookingID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	env.repo.AssertNotCalled(t, "MarkNoShow")
}

func detailedBooking(slotID uuid.UUID, status Status, email, name string) BookingWithDetails {
	return BookingWithDetails{
		Booking: Booking{
			ID:        uuid.New(),
			SlotID:    slotID,
			AccountID: uuid.New(),
			DateKey:   "2026-03-05",
			StartMin:  720,
			EndMin:    780,
			Status:    status,
		},
		Subject:      "Algebra",
		TutorName:    "Aigerim",
		AccountName:  name,
		AccountEmail: email,
	}
}

func TestRemindSlot_OnlyConfirmedBookings(t *testing.T) {
	env := newTestEnv(t)
	slotID := uuid.New()

	env.repo.On("ListBySlot", mock.Anything, slotID).Return([]BookingWithDetails{
		detailedBooking(slotID, StatusConfirmed, "dana@example.com", "Dana"),
		detailedBooking(slotID, StatusCancelled, "erik@example.com", "Erik"),
		detailedBooking(slotID, StatusConfirmed, "aruzhan@example.com", "Aruzhan"),
	}, nil)
	env.notifier.On("SendReminder", mock.Anything, "dana@example.com", "Dana", "Algebra", mock.Anything).Return(nil)
	env.notifier.On("SendReminder", mock.Anything, "aruzhan@example.com", "Aruzhan", "Algebra", mock.Anything).Return(nil)

	queued, err := env.svc.RemindSlot(context.Background(), slotID)
	assert.NoError(t, err)
	assert.Equal(t, 2, queued)
	env.notifier.AssertExpectations(t)
	env.notifier.AssertNotCalled(t, "SendReminder", mock.Anything, "erik@example.com", mock.Anything, mock.Anything, mock.Anything)
}

func TestRemindSlot_QueueFailureSkipsRecipient(t *testing.T) {
	env := newTestEnv(t)
	slotID := uuid.New()

	env.repo.On("ListBySlot", mock.Anything, slotID).Return([]BookingWithDetails{
		detailedBooking(slotID, StatusConfirmed, "dana@example.com", "Dana"),
		detailedBooking(slotID, StatusConfirmed, "aruzhan@example.com", "Aruzhan"),
	}, nil)
	env.notifier.On("SendReminder", mock.Anything, "dana@example.com", "Dana", "Algebra", mock.Anything).
		Return(assert.AnError)
	env.notifier.On("SendReminder", mock.Anything, "aruzhan@example.com", "Aruzhan", "Algebra", mock.Anything).
		Return(nil)

	queued, err := env.svc.RemindSlot(context.Background(), slotID)
	assert.NoError(t, err)
	assert.Equal(t, 1, queued)
	env.notifier.AssertExpectations(t)
}
