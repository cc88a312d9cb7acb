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

type IdempotencyReadStore struct {
	db db.DBTX
}

func NewIdempotencyReadStore(dbtx db.DBTX) *IdempotencyReadStore {
	return &IdempotencyReadStore{db: dbtx}
}

const idempotencyByKeySQL = `
SELECT key, user_id, status, request_hash, COALESCE(result_booking_ids, '{}'), expires_at
FROM idempotency_keys
WHERE key = $1 AND user_id = $2`

func (r *IdempotencyReadStore) Get(ctx context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	var record shared.IdempotencyRecord
	err := r.db.QueryRow(ctx, idempotencyByKeySQL, key, userID).Scan(
		&record.Key, &record.UserID, &record.Status, &record.RequestHash,
		&record.ResultBookingIDs, &record.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("idempotency key not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find idempotency key", err)
	}
	return &record, nil
}
