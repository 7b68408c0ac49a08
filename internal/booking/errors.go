package booking

import "errors"

var (
	ErrBookingNotFound       = errors.New("booking not found")
	ErrBookingNotCancellable = errors.New("booking not cancellable")
	ErrBookingNotConfirmed   = errors.New("booking is not confirmed")
	ErrSlotFull              = errors.New("slot is full")
	ErrAlreadyBooked         = errors.New("account already has a booking for this slot")
	ErrSlotStarted           = errors.New("session has already started")
	ErrNotOwner              = errors.New("can only cancel own bookings")
)
