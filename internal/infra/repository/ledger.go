package repository

import (
	"context"

	"classbook/internal/domain/payment"
	"classbook/internal/infra"
	"classbook/internal/infra/db"

	"github.com/google/uuid"
)

// LedgerRepository appends booking transactions. Rows are immutable after
// insert; there is no update path by design.
type LedgerRepository struct{}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

const insertLedgerSQL = `
INSERT INTO booking_transactions (id, booking_id, method, payment_intent_id, class_pass_id, created_at)
VALUES ($1, $2, $3, $4, $5, now())
RETURNING id`

func (r *LedgerRepository) Record(
	ctx context.Context,
	tx db.DBTX,
	bookingID uuid.UUID,
	method payment.LedgerMethod,
	paymentIntentID *string,
	classPassID *uuid.UUID,
) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx, insertLedgerSQL, uuid.New(), bookingID, string(method), paymentIntentID, classPassID).Scan(&id)
	if err != nil {
		// The unique constraint on booking_id surfaces duplicate ledger
		// attempts as DUPLICATE_KEY; callers treat that as already recorded.
		return uuid.Nil, infra.WrapRepoErr("failed to record booking transaction", err)
	}
	return id, nil
}
