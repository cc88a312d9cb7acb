package readstore

import (
	"context"
	"errors"

	"classbook/internal/infra"
	"classbook/internal/infra/db"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubscriptionReadStore struct {
	db db.DBTX
}

func NewSubscriptionReadStore(dbtx db.DBTX) *SubscriptionReadStore {
	return &SubscriptionReadStore{db: dbtx}
}

// Bookable statuses sort first so a member holding both a lapsed and an
// active subscription resolves to the active one.
const subscriptionForPlansSQL = `
SELECT id, tenant_id, user_id, plan_id, status, external_id,
       current_period_start, current_period_end, cancel_at
FROM subscriptions
WHERE user_id = $1 AND plan_id = ANY($2)
ORDER BY (status IN ('active', 'trialing')) DESC, current_period_end DESC
LIMIT 1`

func (r *SubscriptionReadStore) FindForPlans(ctx context.Context, userID uuid.UUID, planIDs []uuid.UUID) (*shared.SubscriptionSnapshot, error) {
	if len(planIDs) == 0 {
		return nil, infra.WrapRepoErr("subscription not found", pgx.ErrNoRows, infra.KindNotFound)
	}

	var snap shared.SubscriptionSnapshot
	err := r.db.QueryRow(ctx, subscriptionForPlansSQL, userID, planIDs).Scan(
		&snap.ID, &snap.TenantID, &snap.UserID, &snap.PlanID, &snap.Status, &snap.ExternalID,
		&snap.CurrentPeriodStart, &snap.CurrentPeriodEnd, &snap.CancelAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("subscription not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find subscription", err)
	}
	return &snap, nil
}
