package readstore

import (
	"context"
	"errors"
	"time"

	"classbook/internal/infra"
	"classbook/internal/infra/db"
	"classbook/internal/usecase/queries"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type LessonReadStore struct {
	db db.DBTX
}

func NewLessonReadStore(dbtx db.DBTX) *LessonReadStore {
	return &LessonReadStore{db: dbtx}
}

const lessonViewSQL = `
SELECT l.id, l.tenant_id, l.class_option_id, l.name, l.starts_at, l.ends_at,
       l.active, COALESCE(o.capacity, 0), o.waitlist_enabled, l.lock_out_minutes,
       (SELECT count(*) FROM bookings b WHERE b.lesson_id = l.id AND b.status = 'confirmed')
FROM lessons l
JOIN class_options o ON o.id = l.class_option_id
WHERE l.id = $1`

const lessonViewsByTenantSQL = `
SELECT l.id, l.tenant_id, l.class_option_id, l.name, l.starts_at, l.ends_at,
       l.active, COALESCE(o.capacity, 0), o.waitlist_enabled, l.lock_out_minutes,
       (SELECT count(*) FROM bookings b WHERE b.lesson_id = l.id AND b.status = 'confirmed')
FROM lessons l
JOIN class_options o ON o.id = l.class_option_id
WHERE l.tenant_id = $1 AND l.starts_at >= $2 AND l.starts_at < $3
ORDER BY l.starts_at, l.id`

const viewerHoldsBookingSQL = `
SELECT EXISTS (
    SELECT 1 FROM bookings
    WHERE lesson_id = $1 AND user_id = $2 AND status IN ('pending', 'confirmed')
)`

func (r *LessonReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.LessonView, error) {
	var v queries.LessonView
	err := r.db.QueryRow(ctx, lessonViewSQL, id).Scan(
		&v.ID, &v.TenantID, &v.ClassOptionID, &v.Name, &v.StartsAt, &v.EndsAt,
		&v.Active, &v.Capacity, &v.WaitlistEnabled, &v.LockOutMinutes, &v.ConfirmedCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("lesson not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find lesson by ID", err)
	}
	return &v, nil
}

func (r *LessonReadStore) FindByTenantBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*queries.LessonView, error) {
	rows, err := r.db.Query(ctx, lessonViewsByTenantSQL, tenantID, from, to)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list lessons", err)
	}
	defer rows.Close()

	var result []*queries.LessonView
	for rows.Next() {
		var v queries.LessonView
		if err := rows.Scan(
			&v.ID, &v.TenantID, &v.ClassOptionID, &v.Name, &v.StartsAt, &v.EndsAt,
			&v.Active, &v.Capacity, &v.WaitlistEnabled, &v.LockOutMinutes, &v.ConfirmedCount,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan lesson row", err)
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate lesson rows", err)
	}
	return result, nil
}

func (r *LessonReadStore) ViewerHoldsBooking(ctx context.Context, lessonID, viewer uuid.UUID) (bool, error) {
	var holds bool
	if err := r.db.QueryRow(ctx, viewerHoldsBookingSQL, lessonID, viewer).Scan(&holds); err != nil {
		return false, infra.WrapRepoErr("failed to check viewer booking", err)
	}
	return holds, nil
}

// SnapshotByID serves command-side validation; it reuses the view query
// since the shapes coincide.
func (r *LessonReadStore) SnapshotByID(ctx context.Context, id uuid.UUID) (*shared.LessonSnapshot, error) {
	v, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &shared.LessonSnapshot{
		ID:              v.ID,
		TenantID:        v.TenantID,
		ClassOptionID:   v.ClassOptionID,
		Name:            v.Name,
		StartsAt:        v.StartsAt,
		EndsAt:          v.EndsAt,
		LockOutMinutes:  v.LockOutMinutes,
		Active:          v.Active,
		Capacity:        v.Capacity,
		WaitlistEnabled: v.WaitlistEnabled,
		ConfirmedCount:  v.ConfirmedCount,
	}, nil
}
