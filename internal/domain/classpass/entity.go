package classpass

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity = errors.New("pass quantity must be within original quantity")
	ErrExhausted       = errors.New("pass has no remaining credits")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusUsed      Status = "used"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

// ClassPass is a prepaid bundle of session credits.
type ClassPass struct {
	id               uuid.UUID
	tenantID         uuid.UUID
	userID           uuid.UUID
	quantity         int
	originalQuantity int
	expiresAt        time.Time
	status           Status
	priceCents       int64
	purchasedAt      time.Time
}

func ReconstructClassPass(
	id, tenantID, userID uuid.UUID,
	quantity, originalQuantity int,
	expiresAt time.Time,
	status Status,
	priceCents int64,
	purchasedAt time.Time,
) (*ClassPass, error) {
	if quantity < 0 || originalQuantity < 0 || quantity > originalQuantity {
		return nil, ErrInvalidQuantity
	}
	return &ClassPass{
		id:               id,
		tenantID:         tenantID,
		userID:           userID,
		quantity:         quantity,
		originalQuantity: originalQuantity,
		expiresAt:        expiresAt,
		status:           status,
		priceCents:       priceCents,
		purchasedAt:      purchasedAt,
	}, nil
}

func (p *ClassPass) ID() uuid.UUID         { return p.id }
func (p *ClassPass) TenantID() uuid.UUID   { return p.tenantID }
func (p *ClassPass) UserID() uuid.UUID     { return p.userID }
func (p *ClassPass) Quantity() int         { return p.quantity }
func (p *ClassPass) OriginalQuantity() int { return p.originalQuantity }
func (p *ClassPass) ExpiresAt() time.Time  { return p.expiresAt }
func (p *ClassPass) Status() Status        { return p.status }
func (p *ClassPass) PriceCents() int64     { return p.priceCents }
func (p *ClassPass) PurchasedAt() time.Time { return p.purchasedAt }

// UsableAt requires an active status, remaining credits, and an expiration
// in the future. An expired or empty pass is unusable regardless of the
// stored status value.
func (p *ClassPass) UsableAt(now time.Time) bool {
	if p.status != StatusActive {
		return false
	}
	if p.quantity <= 0 {
		return false
	}
	return now.Before(p.expiresAt)
}

// Redeem consumes exactly one credit. The status flips to used the moment
// the last credit is consumed.
func (p *ClassPass) Redeem() error {
	if p.quantity <= 0 {
		return ErrExhausted
	}
	p.quantity--
	if p.quantity == 0 {
		p.status = StatusUsed
	}
	return nil
}
