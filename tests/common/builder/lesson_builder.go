//go:build unit || e2e

package builder

import (
	"time"

	domlesson "classbook/internal/domain/lesson"
	"classbook/internal/usecase/queries"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
)

type LessonBuilder struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	ClassOptionID   uuid.UUID
	Name            string
	StartsAt        time.Time
	EndsAt          time.Time
	LockOutMinutes  int
	Active          bool
	Capacity        int
	WaitlistEnabled bool
	ConfirmedCount  int
}

func NewLessonBuilder() *LessonBuilder {
	startsAt := time.Now().Add(48 * time.Hour).Truncate(time.Minute)
	return &LessonBuilder{
		ID:              uuid.New(),
		TenantID:        uuid.New(),
		ClassOptionID:   uuid.New(),
		Name:            "Morning Yoga",
		StartsAt:        startsAt,
		EndsAt:          startsAt.Add(time.Hour),
		LockOutMinutes:  60,
		Active:          true,
		Capacity:        10,
		WaitlistEnabled: true,
		ConfirmedCount:  0,
	}
}

func (b *LessonBuilder) With(mutate func(*LessonBuilder)) *LessonBuilder {
	mutate(b)
	return b
}

func (b *LessonBuilder) BuildDomain() (*domlesson.Lesson, error) {
	return domlesson.NewLesson(
		b.ID, b.TenantID, b.ClassOptionID, b.Name,
		b.StartsAt, b.EndsAt, b.LockOutMinutes,
		b.Active, b.Capacity, b.WaitlistEnabled,
	)
}

func (b *LessonBuilder) BuildSnapshot() *shared.LessonSnapshot {
	return &shared.LessonSnapshot{
		ID:              b.ID,
		TenantID:        b.TenantID,
		ClassOptionID:   b.ClassOptionID,
		Name:            b.Name,
		StartsAt:        b.StartsAt,
		EndsAt:          b.EndsAt,
		LockOutMinutes:  b.LockOutMinutes,
		Active:          b.Active,
		Capacity:        b.Capacity,
		WaitlistEnabled: b.WaitlistEnabled,
		ConfirmedCount:  b.ConfirmedCount,
	}
}

func (b *LessonBuilder) BuildView() *queries.LessonView {
	return &queries.LessonView{
		ID:              b.ID,
		TenantID:        b.TenantID,
		ClassOptionID:   b.ClassOptionID,
		Name:            b.Name,
		StartsAt:        b.StartsAt,
		EndsAt:          b.EndsAt,
		Active:          b.Active,
		Capacity:        b.Capacity,
		ConfirmedCount:  b.ConfirmedCount,
		WaitlistEnabled: b.WaitlistEnabled,
		LockOutMinutes:  b.LockOutMinutes,
	}
}
