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

type ClassPassReadStore struct {
	db db.DBTX
}

func NewClassPassReadStore(dbtx db.DBTX) *ClassPassReadStore {
	return &ClassPassReadStore{db: dbtx}
}

const passViewsByUserSQL = `
SELECT id, tenant_id, user_id, quantity, original_quantity, expires_at,
       status, price_cents, purchased_at
FROM class_passes
WHERE tenant_id = $1 AND user_id = $2
ORDER BY purchased_at DESC, id`

// Usable passes sort first, soonest-expiring among them, so the credit
// closest to being lost is always spent before the others.
const passCandidateSQL = `
SELECT id, tenant_id, user_id, quantity, original_quantity, expires_at,
       status, price_cents, purchased_at
FROM class_passes
WHERE tenant_id = $1 AND user_id = $2
ORDER BY (status = 'active' AND quantity > 0 AND expires_at > $3) DESC,
         expires_at, id
LIMIT 1`

func (r *ClassPassReadStore) FindViewsByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]*queries.ClassPassView, error) {
	rows, err := r.db.Query(ctx, passViewsByUserSQL, tenantID, userID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list class passes", err)
	}
	defer rows.Close()

	var result []*queries.ClassPassView
	for rows.Next() {
		var v queries.ClassPassView
		if err := rows.Scan(
			&v.ID, &v.TenantID, &v.UserID, &v.Quantity, &v.OriginalQuantity,
			&v.ExpiresAt, &v.Status, &v.PriceCents, &v.PurchasedAt,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan class pass row", err)
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate class pass rows", err)
	}
	return result, nil
}

func (r *ClassPassReadStore) CandidateForUser(ctx context.Context, tenantID, userID uuid.UUID, at time.Time) (*shared.ClassPassSnapshot, error) {
	var snap shared.ClassPassSnapshot
	err := r.db.QueryRow(ctx, passCandidateSQL, tenantID, userID, at).Scan(
		&snap.ID, &snap.TenantID, &snap.UserID, &snap.Quantity, &snap.OriginalQuantity,
		&snap.ExpiresAt, &snap.Status, &snap.PriceCents, &snap.PurchasedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("class pass not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find class pass candidate", err)
	}
	return &snap, nil
}
