package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrAlreadyConfirmed  = errors.New("booking is already confirmed")
	ErrAlreadyCancelled  = errors.New("booking is already cancelled")
	ErrNotWaiting        = errors.New("booking is not on the waitlist")
)

// Booking is one user's claim on one unit of lesson capacity.
type Booking struct {
	id        uuid.UUID
	tenantID  uuid.UUID
	userID    uuid.UUID
	lessonID  uuid.UUID
	status    Status
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates an initial booking. The initial status is pending, or
// waiting when created against a full lesson that permits waitlisting.
func NewBooking(tenantID, userID, lessonID uuid.UUID, initial Status, now time.Time) (*Booking, error) {
	if initial != StatusPending && initial != StatusWaiting {
		return nil, ErrInvalidTransition
	}
	return &Booking{
		id:        uuid.New(),
		tenantID:  tenantID,
		userID:    userID,
		lessonID:  lessonID,
		status:    initial,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func ReconstructBooking(
	id, tenantID, userID, lessonID uuid.UUID,
	status Status,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:        id,
		tenantID:  tenantID,
		userID:    userID,
		lessonID:  lessonID,
		status:    status,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (b *Booking) ID() uuid.UUID        { return b.id }
func (b *Booking) TenantID() uuid.UUID  { return b.tenantID }
func (b *Booking) UserID() uuid.UUID    { return b.userID }
func (b *Booking) LessonID() uuid.UUID  { return b.lessonID }
func (b *Booking) Status() Status       { return b.status }
func (b *Booking) CreatedAt() time.Time { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

func (b *Booking) IsConfirmed() bool { return b.status == StatusConfirmed }
func (b *Booking) IsCancelled() bool { return b.status == StatusCancelled }
func (b *Booking) IsWaiting() bool   { return b.status == StatusWaiting }

// HoldsSlot reports whether the booking currently counts toward capacity.
func (b *Booking) HoldsSlot() bool {
	return b.status.ConsumesCapacity()
}

// Confirm moves a pending booking to confirmed. Confirming an already
// confirmed booking is a no-op so retried settlement signals stay idempotent.
func (b *Booking) Confirm(now time.Time) error {
	switch b.status {
	case StatusConfirmed:
		return nil
	case StatusPending:
		b.status = StatusConfirmed
		b.updatedAt = now
		return nil
	case StatusCancelled:
		return ErrAlreadyCancelled
	default:
		return ErrInvalidTransition
	}
}

// PromoteFromWaitlist moves a waiting booking to confirmed.
func (b *Booking) PromoteFromWaitlist(now time.Time) error {
	if b.status != StatusWaiting {
		return ErrNotWaiting
	}
	b.status = StatusConfirmed
	b.updatedAt = now
	return nil
}

// Cancel is valid from pending, confirmed, and waiting. Cancelled is terminal.
func (b *Booking) Cancel(now time.Time) error {
	switch b.status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusPending, StatusConfirmed, StatusWaiting:
		b.status = StatusCancelled
		b.updatedAt = now
		return nil
	default:
		return ErrInvalidTransition
	}
}
