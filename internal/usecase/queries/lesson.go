package queries

import (
	"context"
	"time"

	"classbook/internal/domain/lesson"
	"classbook/internal/pkg/clock"

	"github.com/google/uuid"
)

type LessonQueries interface {
	GetAvailability(ctx context.Context, lessonID uuid.UUID, viewer uuid.UUID) (*LessonView, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*LessonView, error)
}

type LessonReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*LessonView, error)
	FindByTenantBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*LessonView, error)
	ViewerHoldsBooking(ctx context.Context, lessonID, viewer uuid.UUID) (bool, error)
}

type lessonQueriesImpl struct {
	store LessonReadStore
	clock clock.Clock
}

func NewLessonQueries(store LessonReadStore, clock clock.Clock) LessonQueries {
	return &lessonQueriesImpl{store: store, clock: clock}
}

func (q *lessonQueriesImpl) GetAvailability(ctx context.Context, lessonID uuid.UUID, viewer uuid.UUID) (*LessonView, error) {
	view, err := q.store.FindByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	holds := false
	if viewer != uuid.Nil {
		holds, err = q.store.ViewerHoldsBooking(ctx, lessonID, viewer)
		if err != nil {
			return nil, err
		}
	}

	decorate(view, q.clock.Now(), holds)
	return view, nil
}

func (q *lessonQueriesImpl) ListByTenant(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*LessonView, error) {
	views, err := q.store.FindByTenantBetween(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	now := q.clock.Now()
	for _, v := range views {
		decorate(v, now, false)
	}
	return views, nil
}

// decorate fills the capacity-derived fields from the domain calculator.
func decorate(v *LessonView, now time.Time, viewerHoldsBooking bool) {
	l, err := lesson.NewLesson(
		v.ID, v.TenantID, v.ClassOptionID, v.Name,
		v.StartsAt, v.EndsAt, v.LockOutMinutes, v.Active, v.Capacity, v.WaitlistEnabled,
	)
	if err != nil {
		v.Remaining = 0
		v.Action = lesson.ActionClosed.String()
		return
	}
	v.Remaining = l.RemainingCapacity(v.ConfirmedCount)
	v.Action = l.ActionFor(now, v.ConfirmedCount, viewerHoldsBooking).String()
}
