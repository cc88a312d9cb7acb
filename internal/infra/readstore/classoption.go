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

type ClassOptionReadStore struct {
	db db.DBTX
}

func NewClassOptionReadStore(dbtx db.DBTX) *ClassOptionReadStore {
	return &ClassOptionReadStore{db: dbtx}
}

const classOptionSQL = `
SELECT id, tenant_id, name, COALESCE(capacity, 0), allow_class_passes, drop_in_price_id
FROM class_options
WHERE id = $1`

const classOptionPlansSQL = `
SELECT plan_id, COALESCE(session_limit, 0)
FROM class_option_plans
WHERE class_option_id = $1
ORDER BY plan_id`

func (r *ClassOptionReadStore) SnapshotByID(ctx context.Context, id uuid.UUID) (*shared.ClassOptionSnapshot, error) {
	var snap shared.ClassOptionSnapshot
	err := r.db.QueryRow(ctx, classOptionSQL, id).Scan(
		&snap.ID, &snap.TenantID, &snap.Name, &snap.Capacity,
		&snap.AllowClassPasses, &snap.DropInPriceID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("class option not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find class option", err)
	}

	rows, err := r.db.Query(ctx, classOptionPlansSQL, id)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list class option plans", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p shared.PlanSpec
		if err := rows.Scan(&p.PlanID, &p.SessionLimit); err != nil {
			return nil, infra.WrapRepoErr("failed to scan plan row", err)
		}
		snap.Plans = append(snap.Plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate plan rows", err)
	}
	return &snap, nil
}
