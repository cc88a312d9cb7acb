package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Status mirrors the billing provider's subscription lifecycle. The mirrored
// row is written by webhook handlers and read here; the provider is the
// source of truth.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusTrialing   Status = "trialing"
	StatusActive     Status = "active"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusPaused     Status = "paused"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusIncomplete, StatusTrialing, StatusActive, StatusPastDue, StatusCanceled, StatusPaused:
		return true
	}
	return false
}

// Bookable reports whether bookings against this subscription's plan may be
// confirmed.
func (s Status) Bookable() bool {
	return s == StatusActive || s == StatusTrialing
}

type Subscription struct {
	id                 uuid.UUID
	tenantID           uuid.UUID
	userID             uuid.UUID
	planID             uuid.UUID
	status             Status
	externalID         string
	currentPeriodStart time.Time
	currentPeriodEnd   time.Time
	cancelAt           *time.Time
}

func ReconstructSubscription(
	id, tenantID, userID, planID uuid.UUID,
	status Status,
	externalID string,
	currentPeriodStart, currentPeriodEnd time.Time,
	cancelAt *time.Time,
) *Subscription {
	return &Subscription{
		id:                 id,
		tenantID:           tenantID,
		userID:             userID,
		planID:             planID,
		status:             status,
		externalID:         externalID,
		currentPeriodStart: currentPeriodStart,
		currentPeriodEnd:   currentPeriodEnd,
		cancelAt:           cancelAt,
	}
}

func (s *Subscription) ID() uuid.UUID                 { return s.id }
func (s *Subscription) TenantID() uuid.UUID           { return s.tenantID }
func (s *Subscription) UserID() uuid.UUID             { return s.userID }
func (s *Subscription) PlanID() uuid.UUID             { return s.planID }
func (s *Subscription) Status() Status                { return s.status }
func (s *Subscription) ExternalID() string            { return s.externalID }
func (s *Subscription) CurrentPeriodStart() time.Time { return s.currentPeriodStart }
func (s *Subscription) CurrentPeriodEnd() time.Time   { return s.currentPeriodEnd }
func (s *Subscription) CancelAt() *time.Time          { return s.cancelAt }

func (s *Subscription) Bookable() bool {
	return s.status.Bookable()
}
