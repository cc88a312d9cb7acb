package repository

import (
	"context"
	"errors"

	"classbook/internal/infra"
	"classbook/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ClassPassRepository struct{}

func NewClassPassRepository() *ClassPassRepository {
	return &ClassPassRepository{}
}

// The quantity > 0 guard makes the decrement a single atomic conditional
// update: concurrent settlements against the same pass each consume exactly
// one credit, and the pass can never go negative. The status flips to used
// in the same statement the last credit is consumed.
const decrementPassSQL = `
UPDATE class_passes
SET quantity = quantity - 1,
    status = CASE WHEN quantity - 1 = 0 THEN 'used' ELSE status END,
    updated_at = now()
WHERE id = $1 AND quantity > 0
RETURNING quantity`

func (r *ClassPassRepository) Decrement(ctx context.Context, tx db.DBTX, id uuid.UUID) (int, bool, error) {
	var remaining int
	err := tx.QueryRow(ctx, decrementPassSQL, id).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Missing pass or already at zero: the caller decides whether
			// this is an anomaly; it is not a database failure.
			return 0, false, nil
		}
		return 0, false, infra.WrapRepoErr("failed to decrement class pass", err)
	}
	return remaining, true, nil
}
