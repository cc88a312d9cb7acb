package lesson

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidSchedule = errors.New("lesson end time must be after start time")
	ErrInactive        = errors.New("lesson is not active")
	ErrPastLockOut     = errors.New("lesson is past its lock-out time")
)

type Lesson struct {
	id              uuid.UUID
	tenantID        uuid.UUID
	classOptionID   uuid.UUID
	name            string
	startsAt        time.Time
	endsAt          time.Time
	lockOutMinutes  int
	active          bool
	capacity        int
	waitlistEnabled bool
}

// NewLesson normalizes capacity conservatively: a missing or negative value
// is folded to zero so a misconfigured lesson can never be overbooked.
func NewLesson(
	id, tenantID, classOptionID uuid.UUID,
	name string,
	startsAt, endsAt time.Time,
	lockOutMinutes int,
	active bool,
	capacity int,
	waitlistEnabled bool,
) (*Lesson, error) {
	if !endsAt.After(startsAt) {
		return nil, ErrInvalidSchedule
	}
	if lockOutMinutes < 0 {
		lockOutMinutes = 0
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Lesson{
		id:              id,
		tenantID:        tenantID,
		classOptionID:   classOptionID,
		name:            name,
		startsAt:        startsAt,
		endsAt:          endsAt,
		lockOutMinutes:  lockOutMinutes,
		active:          active,
		capacity:        capacity,
		waitlistEnabled: waitlistEnabled,
	}, nil
}

func (l *Lesson) ID() uuid.UUID            { return l.id }
func (l *Lesson) TenantID() uuid.UUID      { return l.tenantID }
func (l *Lesson) ClassOptionID() uuid.UUID { return l.classOptionID }
func (l *Lesson) Name() string             { return l.name }
func (l *Lesson) StartsAt() time.Time      { return l.startsAt }
func (l *Lesson) EndsAt() time.Time        { return l.endsAt }
func (l *Lesson) LockOutMinutes() int      { return l.lockOutMinutes }
func (l *Lesson) Active() bool             { return l.active }
func (l *Lesson) Capacity() int            { return l.capacity }
func (l *Lesson) WaitlistEnabled() bool    { return l.waitlistEnabled }

// RemainingCapacity counts only confirmed bookings against capacity.
// Pending and waiting bookings do not consume a slot; confirmation does.
func (l *Lesson) RemainingCapacity(confirmedCount int) int {
	if confirmedCount < 0 {
		confirmedCount = 0
	}
	remaining := l.capacity - confirmedCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// BookingCutoff is the instant after which new bookings close.
func (l *Lesson) BookingCutoff() time.Time {
	return l.startsAt.Add(-time.Duration(l.lockOutMinutes) * time.Minute)
}

func (l *Lesson) BookableAt(now time.Time) bool {
	return l.active && now.Before(l.BookingCutoff())
}

// ValidateBookable reports why a lesson cannot accept bookings at now.
func (l *Lesson) ValidateBookable(now time.Time) error {
	if !l.active {
		return ErrInactive
	}
	if !now.Before(l.BookingCutoff()) {
		return ErrPastLockOut
	}
	return nil
}

// ActionFor computes the booking action shown to a viewer.
// viewerHoldsBooking is true when the viewer already has a confirmed or
// pending booking on this lesson.
func (l *Lesson) ActionFor(now time.Time, confirmedCount int, viewerHoldsBooking bool) Action {
	if viewerHoldsBooking {
		return ActionModify
	}
	if !l.BookableAt(now) {
		return ActionClosed
	}
	if l.RemainingCapacity(confirmedCount) > 0 {
		return ActionBook
	}
	if l.waitlistEnabled {
		return ActionJoinWaitlist
	}
	return ActionClosed
}
