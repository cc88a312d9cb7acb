package repository

import (
	"context"

	"classbook/internal/infra"
	"classbook/internal/infra/db"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
)

type SubscriptionRepository struct{}

func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{}
}

// At most one row per external subscription id; webhook replays and
// out-of-order updates land on the same row.
const upsertSubscriptionSQL = `
INSERT INTO subscriptions (id, tenant_id, user_id, plan_id, status, external_id,
                           current_period_start, current_period_end, cancel_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
ON CONFLICT (external_id) DO UPDATE
SET status = EXCLUDED.status,
    plan_id = EXCLUDED.plan_id,
    current_period_start = EXCLUDED.current_period_start,
    current_period_end = EXCLUDED.current_period_end,
    cancel_at = EXCLUDED.cancel_at,
    updated_at = now()
RETURNING id`

func (r *SubscriptionRepository) UpsertByExternalID(ctx context.Context, tx db.DBTX, sub *shared.SubscriptionSnapshot) (uuid.UUID, error) {
	id := sub.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var result uuid.UUID
	err := tx.QueryRow(ctx, upsertSubscriptionSQL,
		id, sub.TenantID, sub.UserID, sub.PlanID, sub.Status, sub.ExternalID,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAt,
	).Scan(&result)
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to upsert subscription", err)
	}
	return result, nil
}
