package commands

import (
	"context"

	"github.com/google/uuid"
)

// PaymentGateway is the outbound port to the payment provider. Only the
// drop-in path talks to it; every other settlement path is internal.
type PaymentGateway interface {
	CreateDropInIntent(ctx context.Context, req DropInIntentRequest) (*DropInIntent, error)
}

type DropInIntentRequest struct {
	PriceID    string
	Quantity   int
	TenantID   uuid.UUID
	UserID     uuid.UUID
	BookingIDs []uuid.UUID
}

type DropInIntent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
}
