package commands

import (
	"context"
	"log/slog"
	"time"

	"classbook/internal/domain/subscription"
	"classbook/internal/pkg/clock"
	"classbook/internal/pkg/errs"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
)

var ErrUnknownSubscriptionStatus = errs.New("unknown subscription status")

// SubscriptionEvent is the provider-agnostic shape of an upstream
// subscription lifecycle notification.
type SubscriptionEvent struct {
	ExternalID         string
	TenantID           uuid.UUID
	UserID             uuid.UUID
	PlanID             uuid.UUID
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAt           *time.Time
}

type ApplySubscriptionResult struct {
	SubscriptionID    uuid.UUID
	Status            subscription.Status
	CancelledBookings int64
}

type SubscriptionCommands interface {
	// ApplySubscriptionEvent mirrors the upstream subscription state locally.
	// Events are idempotent upserts keyed by the provider's subscription id,
	// so redelivered webhooks converge on the same row.
	ApplySubscriptionEvent(ctx context.Context, event SubscriptionEvent) (*ApplySubscriptionResult, error)
}

type subscriptionUseCaseImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewSubscriptionUseCase(uow shared.UnitOfWork, clock clock.Clock) SubscriptionCommands {
	return &subscriptionUseCaseImpl{uow: uow, clock: clock}
}

func (u *subscriptionUseCaseImpl) ApplySubscriptionEvent(
	ctx context.Context,
	event SubscriptionEvent,
) (*ApplySubscriptionResult, error) {
	status := subscription.Status(event.Status)
	if !status.IsValid() {
		return nil, errs.Wrap(ErrUnknownSubscriptionStatus, event.Status)
	}

	result := &ApplySubscriptionResult{Status: status}

	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		id, err := tx.Subscriptions().UpsertByExternalID(ctx, tx.DB(), &shared.SubscriptionSnapshot{
			TenantID:           event.TenantID,
			UserID:             event.UserID,
			PlanID:             event.PlanID,
			Status:             string(status),
			ExternalID:         event.ExternalID,
			CurrentPeriodStart: event.CurrentPeriodStart,
			CurrentPeriodEnd:   event.CurrentPeriodEnd,
			CancelAt:           event.CancelAt,
		})
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		result.SubscriptionID = id

		// A cancelled subscription releases the member's future seats so
		// waitlisted users can take them. Past lessons keep their history.
		if status == subscription.StatusCanceled {
			cancelled, err := tx.Bookings().CancelFutureConfirmedByPlan(
				ctx, tx.DB(), event.UserID, event.PlanID, u.clock.Now(),
			)
			if err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			result.CancelledBookings = cancelled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.CancelledBookings > 0 {
		slog.Info("cancelled future bookings for ended subscription",
			"subscription_external_id", event.ExternalID,
			"user_id", event.UserID.String(),
			"count", result.CancelledBookings)
	}
	return result, nil
}
