package queries

import (
	"time"

	"github.com/google/uuid"
)

// Read models (DTO for read side)

type LessonView struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	ClassOptionID   uuid.UUID `json:"class_option_id"`
	Name            string    `json:"name"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	Active          bool      `json:"active"`
	Capacity        int       `json:"capacity"`
	ConfirmedCount  int       `json:"confirmed_count"`
	Remaining       int       `json:"remaining"`
	WaitlistEnabled bool      `json:"waitlist_enabled"`
	LockOutMinutes  int       `json:"lock_out_minutes"`
	// Action is the viewer-specific booking action (book / joinWaitlist /
	// closed / modify); empty when no viewer was supplied.
	Action string `json:"action,omitempty"`
}

type BookingView struct {
	ID             uuid.UUID `json:"id"`
	TenantID       uuid.UUID `json:"tenant_id"`
	UserID         uuid.UUID `json:"user_id"`
	LessonID       uuid.UUID `json:"lesson_id"`
	LessonName     string    `json:"lesson_name"`
	LessonStartsAt time.Time `json:"lesson_starts_at"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ClassPassView struct {
	ID               uuid.UUID `json:"id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	UserID           uuid.UUID `json:"user_id"`
	Quantity         int       `json:"quantity"`
	OriginalQuantity int       `json:"original_quantity"`
	ExpiresAt        time.Time `json:"expires_at"`
	Status           string    `json:"status"`
	PriceCents       int64     `json:"price_cents"`
	PurchasedAt      time.Time `json:"purchased_at"`
}
