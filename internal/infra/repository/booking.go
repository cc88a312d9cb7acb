package repository

import (
	"context"
	"errors"
	"time"

	"classbook/internal/domain/booking"
	"classbook/internal/infra"
	"classbook/internal/infra/db"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BookingRepository struct{}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{}
}

const insertBookingSQL = `
INSERT INTO bookings (id, tenant_id, user_id, lesson_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

func (r *BookingRepository) Create(ctx context.Context, tx db.DBTX, b *booking.Booking) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx, insertBookingSQL,
		b.ID(), b.TenantID(), b.UserID(), b.LessonID(), b.Status().String(), b.CreatedAt(), b.UpdatedAt(),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to create booking", err)
	}
	return id, nil
}

const setBookingStatusSQL = `
UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1`

func (r *BookingRepository) SetStatus(ctx context.Context, tx db.DBTX, id uuid.UUID, status booking.Status) error {
	tag, err := tx.Exec(ctx, setBookingStatusSQL, id, status.String())
	if err != nil {
		return infra.WrapRepoErr("failed to update booking status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("booking not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	return nil
}

// SKIP LOCKED keeps concurrent promotions from blocking on the same
// candidate: each promoter claims the next unclaimed waiter.
const oldestWaitingSQL = `
SELECT id, tenant_id, user_id, lesson_id, status, created_at
FROM bookings
WHERE lesson_id = $1 AND status = 'waiting'
ORDER BY created_at, id
LIMIT 1
FOR UPDATE SKIP LOCKED`

func (r *BookingRepository) OldestWaiting(ctx context.Context, tx db.DBTX, lessonID uuid.UUID) (*shared.BookingSnapshot, error) {
	row := tx.QueryRow(ctx, oldestWaitingSQL, lessonID)
	snap, err := scanBookingSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("no waiting booking for lesson", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find oldest waiting booking", err)
	}
	return snap, nil
}

const cancelFutureConfirmedByPlanSQL = `
UPDATE bookings b
SET status = 'cancelled', updated_at = now()
FROM lessons l
JOIN class_option_plans p ON p.class_option_id = l.class_option_id
WHERE b.lesson_id = l.id
  AND b.user_id = $1
  AND p.plan_id = $2
  AND b.status = 'confirmed'
  AND l.starts_at > $3`

func (r *BookingRepository) CancelFutureConfirmedByPlan(ctx context.Context, tx db.DBTX, userID, planID uuid.UUID, after time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, cancelFutureConfirmedByPlanSQL, userID, planID, after)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to cancel future bookings for plan", err)
	}
	return tag.RowsAffected(), nil
}

func scanBookingSnapshot(row pgx.Row) (*shared.BookingSnapshot, error) {
	var snap shared.BookingSnapshot
	var status string
	err := row.Scan(&snap.ID, &snap.TenantID, &snap.UserID, &snap.LessonID, &status, &snap.CreatedAt)
	if err != nil {
		return nil, err
	}
	snap.Status = booking.Status(status)
	return &snap, nil
}
