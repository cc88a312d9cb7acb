package commands

import (
	"context"
	"time"

	"classbook/internal/domain/classpass"
	"classbook/internal/domain/payment"
	"classbook/internal/domain/subscription"
	"classbook/internal/infra"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
)

// PaymentMethodResolver determines which settlement path applies for a user
// booking a class option. Checks are pure reads in priority order: class
// pass, then subscription, then drop-in. A class option with no payment
// methods configured admits the booking for free.
type PaymentMethodResolver interface {
	Resolve(ctx context.Context, reads shared.CommandReads, tenantID, userID uuid.UUID, option *shared.ClassOptionSnapshot, quantity int, now time.Time) (payment.Eligibility, error)
}

type paymentMethodResolver struct{}

func NewPaymentMethodResolver() PaymentMethodResolver {
	return &paymentMethodResolver{}
}

func (r *paymentMethodResolver) Resolve(
	ctx context.Context,
	reads shared.CommandReads,
	tenantID, userID uuid.UUID,
	option *shared.ClassOptionSnapshot,
	quantity int,
	now time.Time,
) (payment.Eligibility, error) {
	if quantity < 1 {
		quantity = 1
	}

	configured := false
	var firstReason payment.Reason

	if option.AllowClassPasses {
		configured = true
		elig, reason, err := r.resolveClassPass(ctx, reads, tenantID, userID, quantity, now)
		if err != nil {
			return payment.Eligibility{}, err
		}
		if elig != nil {
			return *elig, nil
		}
		if firstReason == "" {
			firstReason = reason
		}
	}

	if len(option.Plans) > 0 {
		configured = true
		elig, reason, err := r.resolveSubscription(ctx, reads, userID, option.Plans, quantity, now)
		if err != nil {
			return payment.Eligibility{}, err
		}
		if elig != nil {
			return *elig, nil
		}
		if firstReason == "" {
			firstReason = reason
		}
	}

	if option.DropInPriceID != nil && *option.DropInPriceID != "" {
		return payment.Eligible(payment.DropInMethod(*option.DropInPriceID)), nil
	}

	if !configured {
		// No payment gating configured for this class option.
		return payment.Eligible(payment.NoneMethod()), nil
	}

	if firstReason == "" {
		firstReason = payment.ReasonNoEligibleMethod
	}
	return payment.Ineligible(firstReason), nil
}

func (r *paymentMethodResolver) resolveClassPass(
	ctx context.Context,
	reads shared.CommandReads,
	tenantID, userID uuid.UUID,
	quantity int,
	now time.Time,
) (*payment.Eligibility, payment.Reason, error) {
	snap, err := reads.PassCandidateForUser(ctx, tenantID, userID, now)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}

	pass, err := classpass.ReconstructClassPass(
		snap.ID, snap.TenantID, snap.UserID,
		snap.Quantity, snap.OriginalQuantity,
		snap.ExpiresAt, classpass.Status(snap.Status),
		snap.PriceCents, snap.PurchasedAt,
	)
	if err != nil {
		return nil, "", err
	}

	if pass.UsableAt(now) && pass.Quantity() >= quantity {
		elig := payment.Eligible(payment.ClassPassMethod(pass.ID()))
		return &elig, "", nil
	}

	switch {
	case !now.Before(pass.ExpiresAt()):
		return nil, payment.ReasonPassExpired, nil
	case pass.Quantity() < quantity:
		return nil, payment.ReasonPassExhausted, nil
	default:
		return nil, payment.ReasonPassNotUsable, nil
	}
}

func (r *paymentMethodResolver) resolveSubscription(
	ctx context.Context,
	reads shared.CommandReads,
	userID uuid.UUID,
	plans []shared.PlanSpec,
	quantity int,
	now time.Time,
) (*payment.Eligibility, payment.Reason, error) {
	planIDs := make([]uuid.UUID, len(plans))
	for i, p := range plans {
		planIDs[i] = p.PlanID
	}

	snap, err := reads.SubscriptionForPlans(ctx, userID, planIDs)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}

	if !subscription.Status(snap.Status).Bookable() {
		return nil, payment.ReasonSubscriptionNotActive, nil
	}

	limit := 0
	for _, p := range plans {
		if p.PlanID == snap.PlanID {
			limit = p.SessionLimit
			break
		}
	}
	if limit > 0 {
		used, err := reads.CountConfirmedForPlanInPeriod(ctx, userID, snap.PlanID, snap.CurrentPeriodStart, snap.CurrentPeriodEnd)
		if err != nil {
			return nil, "", err
		}
		if used+quantity > limit {
			return nil, payment.ReasonSessionLimitReached, nil
		}
	}

	elig := payment.Eligible(payment.SubscriptionMethod(snap.ID, snap.PlanID))
	return &elig, "", nil
}
