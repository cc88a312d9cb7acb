package response

import (
	"time"

	"classbook/internal/usecase/queries"

	"github.com/google/uuid"
)

type ClassPassResponse struct {
	ID               uuid.UUID `json:"id"`
	TenantID         uuid.UUID `json:"tenantId"`
	UserID           uuid.UUID `json:"userId"`
	Quantity         int       `json:"quantity"`
	OriginalQuantity int       `json:"originalQuantity"`
	ExpiresAt        time.Time `json:"expiresAt"`
	Status           string    `json:"status"`
	PriceCents       int64     `json:"priceCents"`
	PurchasedAt      time.Time `json:"purchasedAt"`
}

func FromClassPassView(rm *queries.ClassPassView) *ClassPassResponse {
	return &ClassPassResponse{
		ID:               rm.ID,
		TenantID:         rm.TenantID,
		UserID:           rm.UserID,
		Quantity:         rm.Quantity,
		OriginalQuantity: rm.OriginalQuantity,
		ExpiresAt:        rm.ExpiresAt,
		Status:           rm.Status,
		PriceCents:       rm.PriceCents,
		PurchasedAt:      rm.PurchasedAt,
	}
}
