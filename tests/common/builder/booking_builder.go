//go:build unit || e2e

package builder

import (
	"time"

	dombooking "classbook/internal/domain/booking"
	"classbook/internal/usecase/queries"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
)

type BookingBuilder struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	UserID         uuid.UUID
	LessonID       uuid.UUID
	LessonName     string
	LessonStartsAt time.Time
	Status         dombooking.Status
	CreatedAt      time.Time
}

func NewBookingBuilder() *BookingBuilder {
	now := time.Now()
	return &BookingBuilder{
		ID:             uuid.New(),
		TenantID:       uuid.New(),
		UserID:         uuid.New(),
		LessonID:       uuid.New(),
		LessonName:     "Morning Yoga",
		LessonStartsAt: now.Add(48 * time.Hour),
		Status:         dombooking.StatusPending,
		CreatedAt:      now,
	}
}

func (b *BookingBuilder) With(mutate func(*BookingBuilder)) *BookingBuilder {
	mutate(b)
	return b
}

func (b *BookingBuilder) BuildDomain() *dombooking.Booking {
	return dombooking.ReconstructBooking(
		b.ID, b.TenantID, b.UserID, b.LessonID, b.Status, b.CreatedAt, b.CreatedAt,
	)
}

func (b *BookingBuilder) BuildSnapshot() *shared.BookingSnapshot {
	return &shared.BookingSnapshot{
		ID:        b.ID,
		TenantID:  b.TenantID,
		UserID:    b.UserID,
		LessonID:  b.LessonID,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
	}
}

func (b *BookingBuilder) BuildView() *queries.BookingView {
	return &queries.BookingView{
		ID:             b.ID,
		TenantID:       b.TenantID,
		UserID:         b.UserID,
		LessonID:       b.LessonID,
		LessonName:     b.LessonName,
		LessonStartsAt: b.LessonStartsAt,
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.CreatedAt,
	}
}
