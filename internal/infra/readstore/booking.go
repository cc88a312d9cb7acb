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

type BookingReadStore struct {
	db db.DBTX
}

func NewBookingReadStore(dbtx db.DBTX) *BookingReadStore {
	return &BookingReadStore{db: dbtx}
}

const bookingViewSQL = `
SELECT b.id, b.tenant_id, b.user_id, b.lesson_id, l.name, l.starts_at,
       b.status, b.created_at, b.updated_at
FROM bookings b
JOIN lessons l ON l.id = b.lesson_id
WHERE b.id = $1`

const bookingViewsByUserSQL = `
SELECT b.id, b.tenant_id, b.user_id, b.lesson_id, l.name, l.starts_at,
       b.status, b.created_at, b.updated_at
FROM bookings b
JOIN lessons l ON l.id = b.lesson_id
WHERE b.user_id = $1
ORDER BY b.created_at DESC, b.id`

const bookingViewsByIDsSQL = `
SELECT b.id, b.tenant_id, b.user_id, b.lesson_id, l.name, l.starts_at,
       b.status, b.created_at, b.updated_at
FROM bookings b
JOIN lessons l ON l.id = b.lesson_id
WHERE b.id = ANY($1)
ORDER BY b.created_at, b.id`

const bookingSnapshotSQL = `
SELECT id, tenant_id, user_id, lesson_id, status, created_at
FROM bookings
WHERE id = $1`

const ledgerByBookingSQL = `
SELECT id, booking_id, method, payment_intent_id, class_pass_id, created_at
FROM booking_transactions
WHERE booking_id = $1`

const countConfirmedForPlanSQL = `
SELECT count(*)
FROM bookings b
JOIN lessons l ON l.id = b.lesson_id
JOIN class_option_plans p ON p.class_option_id = l.class_option_id
WHERE b.user_id = $1 AND p.plan_id = $2 AND b.status = 'confirmed'
  AND b.created_at >= $3 AND b.created_at < $4`

func (r *BookingReadStore) FindViewByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	var v queries.BookingView
	err := r.db.QueryRow(ctx, bookingViewSQL, id).Scan(
		&v.ID, &v.TenantID, &v.UserID, &v.LessonID, &v.LessonName, &v.LessonStartsAt,
		&v.Status, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking by ID", err)
	}
	return &v, nil
}

func (r *BookingReadStore) FindViewsByUserID(ctx context.Context, userID uuid.UUID) ([]*queries.BookingView, error) {
	rows, err := r.db.Query(ctx, bookingViewsByUserSQL, userID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list bookings", err)
	}
	return scanBookingViews(rows)
}

func (r *BookingReadStore) FindViewsByIDs(ctx context.Context, ids []uuid.UUID) ([]*queries.BookingView, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, bookingViewsByIDsSQL, ids)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list bookings by ids", err)
	}
	return scanBookingViews(rows)
}

func scanBookingViews(rows pgx.Rows) ([]*queries.BookingView, error) {
	defer rows.Close()

	var result []*queries.BookingView
	for rows.Next() {
		var v queries.BookingView
		if err := rows.Scan(
			&v.ID, &v.TenantID, &v.UserID, &v.LessonID, &v.LessonName, &v.LessonStartsAt,
			&v.Status, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan booking row", err)
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate booking rows", err)
	}
	return result, nil
}

func (r *BookingReadStore) SnapshotByID(ctx context.Context, id uuid.UUID) (*shared.BookingSnapshot, error) {
	var snap shared.BookingSnapshot
	err := r.db.QueryRow(ctx, bookingSnapshotSQL, id).Scan(
		&snap.ID, &snap.TenantID, &snap.UserID, &snap.LessonID, &snap.Status, &snap.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking snapshot", err)
	}
	return &snap, nil
}

func (r *BookingReadStore) LedgerByBookingID(ctx context.Context, bookingID uuid.UUID) (*shared.LedgerSnapshot, error) {
	var snap shared.LedgerSnapshot
	err := r.db.QueryRow(ctx, ledgerByBookingSQL, bookingID).Scan(
		&snap.ID, &snap.BookingID, &snap.Method, &snap.PaymentIntentID, &snap.ClassPassID, &snap.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("booking transaction not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking transaction", err)
	}
	return &snap, nil
}

func (r *BookingReadStore) CountConfirmedForPlanInPeriod(ctx context.Context, userID, planID uuid.UUID, from, to time.Time) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, countConfirmedForPlanSQL, userID, planID, from, to).Scan(&count); err != nil {
		return 0, infra.WrapRepoErr("failed to count confirmed bookings", err)
	}
	return count, nil
}
