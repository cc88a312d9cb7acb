package repository

import (
	"context"
	"errors"

	"classbook/internal/infra"
	"classbook/internal/infra/db"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type LessonRepository struct{}

func NewLessonRepository() *LessonRepository {
	return &LessonRepository{}
}

// The FOR UPDATE on the lesson row serializes capacity check-and-confirm per
// lesson: two concurrent confirmations for the last slot queue here, and the
// second re-reads a confirmed count that already includes the first.
const lockLessonSQL = `
SELECT l.id, l.tenant_id, l.class_option_id, l.name, l.starts_at, l.ends_at,
       l.lock_out_minutes, l.active, COALESCE(o.capacity, 0), o.waitlist_enabled,
       (SELECT count(*) FROM bookings b WHERE b.lesson_id = l.id AND b.status = 'confirmed')
FROM lessons l
JOIN class_options o ON o.id = l.class_option_id
WHERE l.id = $1
FOR UPDATE OF l`

func (r *LessonRepository) LockForUpdate(ctx context.Context, tx db.DBTX, id uuid.UUID) (*shared.LessonSnapshot, error) {
	var snap shared.LessonSnapshot
	err := tx.QueryRow(ctx, lockLessonSQL, id).Scan(
		&snap.ID, &snap.TenantID, &snap.ClassOptionID, &snap.Name, &snap.StartsAt, &snap.EndsAt,
		&snap.LockOutMinutes, &snap.Active, &snap.Capacity, &snap.WaitlistEnabled,
		&snap.ConfirmedCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("lesson not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to lock lesson", err)
	}
	return &snap, nil
}
