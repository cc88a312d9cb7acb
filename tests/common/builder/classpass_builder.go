//go:build unit || e2e

package builder

import (
	"time"

	domclasspass "classbook/internal/domain/classpass"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
)

type ClassPassBuilder struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	UserID           uuid.UUID
	Quantity         int
	OriginalQuantity int
	ExpiresAt        time.Time
	Status           domclasspass.Status
	PriceCents       int64
	PurchasedAt      time.Time
}

func NewClassPassBuilder() *ClassPassBuilder {
	now := time.Now()
	return &ClassPassBuilder{
		ID:               uuid.New(),
		TenantID:         uuid.New(),
		UserID:           uuid.New(),
		Quantity:         5,
		OriginalQuantity: 10,
		ExpiresAt:        now.AddDate(0, 3, 0),
		Status:           domclasspass.StatusActive,
		PriceCents:       15000,
		PurchasedAt:      now.AddDate(0, -1, 0),
	}
}

func (b *ClassPassBuilder) With(mutate func(*ClassPassBuilder)) *ClassPassBuilder {
	mutate(b)
	return b
}

func (b *ClassPassBuilder) BuildDomain() (*domclasspass.ClassPass, error) {
	return domclasspass.ReconstructClassPass(
		b.ID, b.TenantID, b.UserID,
		b.Quantity, b.OriginalQuantity,
		b.ExpiresAt, b.Status,
		b.PriceCents, b.PurchasedAt,
	)
}

func (b *ClassPassBuilder) BuildSnapshot() *shared.ClassPassSnapshot {
	return &shared.ClassPassSnapshot{
		ID:               b.ID,
		TenantID:         b.TenantID,
		UserID:           b.UserID,
		Quantity:         b.Quantity,
		OriginalQuantity: b.OriginalQuantity,
		ExpiresAt:        b.ExpiresAt,
		Status:           string(b.Status),
		PriceCents:       b.PriceCents,
		PurchasedAt:      b.PurchasedAt,
	}
}
