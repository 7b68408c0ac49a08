package clock

import (
	"errors"
	"fmt"
	"time"
)

const (
	// CancelCutoff is how long before the session start a cancellation is
	// still accepted. The deadline itself is inclusive.
	CancelCutoff = 60 * time.Minute

	// JoinGrace pads the join window on both sides of the session and is
	// also how early the lobby opens.
	JoinGrace = 10 * time.Minute

	dateKeyLayout = "2006-01-02"
)

var ErrBadDateKey = errors.New("invalid date key")

// Clock performs all session time arithmetic in the fixed business timezone.
// Display-timezone conversion is a presentation concern and never feeds back
// into these calculations.
type Clock struct {
	loc *time.Location
}

func New(tz string) (*Clock, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load business timezone %q: %w", tz, err)
	}
	return &Clock{loc: loc}, nil
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

// SessionStart resolves a business-timezone calendar date plus a
// minutes-since-midnight offset into an absolute instant.
func (c *Clock) SessionStart(dateKey string, startMin int) (time.Time, error) {
	return c.instantAt(dateKey, startMin)
}

func (c *Clock) SessionEnd(dateKey string, endMin int) (time.Time, error) {
	return c.instantAt(dateKey, endMin)
}

func (c *Clock) instantAt(dateKey string, minute int) (time.Time, error) {
	d, err := time.ParseInLocation(dateKeyLayout, dateKey, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDateKey, dateKey)
	}
	// time.Date normalizes the minute offset, which keeps the arithmetic
	// correct across DST transitions.
	return time.Date(d.Year(), d.Month(), d.Day(), 0, minute, 0, 0, c.loc), nil
}

// CancellationDeadline is the last instant at which a booking may still be
// cancelled.
func CancellationDeadline(start time.Time) time.Time {
	return start.Add(-CancelCutoff)
}

// CanCancel reports whether a cancellation at now is within the deadline.
// The deadline instant itself still allows cancellation.
func CanCancel(now, start time.Time) bool {
	return !now.After(CancellationDeadline(start))
}

// JoinWindow is the closed interval during which the session can be entered.
func JoinWindow(start, end time.Time) (time.Time, time.Time) {
	return start.Add(-JoinGrace), end.Add(JoinGrace)
}

// CanJoin reports whether now falls within the closed join window.
func CanJoin(now, start, end time.Time) bool {
	from, until := JoinWindow(start, end)
	return !now.Before(from) && !now.After(until)
}

// LobbyOpensAt is when the pre-join waiting state becomes available.
func LobbyOpensAt(start time.Time) time.Time {
	return start.Add(-JoinGrace)
}

// LobbyOpen reports whether the session is in the pre-join waiting state:
// the lobby has opened but the session has not started yet.
func LobbyOpen(now, start time.Time) bool {
	return !now.Before(LobbyOpensAt(start)) && now.Before(start)
}
