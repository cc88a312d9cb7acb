package commands

import (
	"context"
	"log/slog"

	"classbook/internal/domain/booking"
	"classbook/internal/domain/lesson"
	"classbook/internal/domain/payment"
	"classbook/internal/infra"
	"classbook/internal/pkg/clock"
	"classbook/internal/pkg/errs"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound  = errs.New("booking not found")
	ErrBookingCancelled = errs.New("booking is cancelled")
	ErrCapacityExceeded = errs.New("capacity exceeded")
	ErrSettlementFailed = errs.New("settlement failed")
)

type ConfirmResult struct {
	BookingID        uuid.UUID
	AlreadyConfirmed bool
	PassDecremented  bool
	PassRemaining    int
}

// SettlementCommands is the reconciliation entry point shared by the payment
// webhook and staff manual confirmation.
type SettlementCommands interface {
	// ConfirmBooking settles one booking on behalf of a tenant operator.
	// Bookings outside the operator's tenant are reported as not found.
	ConfirmBooking(ctx context.Context, tenantID, bookingID uuid.UUID) (*ConfirmResult, error)
	// ConfirmPaymentIntent confirms every booking referenced by a succeeded
	// payment intent, recording missing stripe ledger entries on the way.
	ConfirmPaymentIntent(ctx context.Context, paymentIntentID string, bookingIDs []uuid.UUID) ([]*ConfirmResult, error)
}

type settlementUseCaseImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewSettlementUseCase(uow shared.UnitOfWork, clock clock.Clock) SettlementCommands {
	return &settlementUseCaseImpl{uow: uow, clock: clock}
}

func (s *settlementUseCaseImpl) ConfirmBooking(ctx context.Context, tenantID, bookingID uuid.UUID) (*ConfirmResult, error) {
	var result *ConfirmResult
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		snap, err := tx.Reads().BookingByID(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrBookingNotFound
			}
			return errs.Mark(err, ErrSettlementFailed)
		}
		if snap.TenantID != tenantID {
			return ErrBookingNotFound
		}
		var txErr error
		result, txErr = confirmBookingInTx(ctx, tx, bookingID, s.clock)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *settlementUseCaseImpl) ConfirmPaymentIntent(ctx context.Context, paymentIntentID string, bookingIDs []uuid.UUID) ([]*ConfirmResult, error) {
	results := make([]*ConfirmResult, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		var result *ConfirmResult
		err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			if err := ensureStripeLedger(ctx, tx, id, paymentIntentID); err != nil {
				return err
			}
			var txErr error
			result, txErr = confirmBookingInTx(ctx, tx, id, s.clock)
			return txErr
		})
		switch {
		case err == nil:
			results = append(results, result)
		case errs.Is(err, ErrBookingNotFound), errs.Is(err, ErrBookingCancelled):
			// A missing or withdrawn booking must not strand the rest of
			// the intent; retrying the delivery will not bring it back.
			slog.Warn("skipping unsettleable booking on paid intent",
				"payment_intent_id", paymentIntentID,
				"booking_id", id.String(),
				"error", err.Error())
		case errs.Is(err, ErrCapacityExceeded):
			// Paid but the class filled first. Surface loudly; refund flow
			// is operational, not automatic.
			slog.Error("payment succeeded but lesson is at capacity",
				"payment_intent_id", paymentIntentID,
				"booking_id", id.String())
		default:
			return results, err
		}
	}
	return results, nil
}

// ensureStripeLedger backfills the booking transaction for a stripe-settled
// booking when the post-intent recording step did not survive a crash. The
// unique constraint makes the insert a safe no-op on replay.
func ensureStripeLedger(ctx context.Context, tx shared.Tx, bookingID uuid.UUID, paymentIntentID string) error {
	existing, err := tx.Reads().LedgerByBookingID(ctx, bookingID)
	if err != nil && !infra.IsKind(err, infra.KindNotFound) {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = tx.Ledger().Record(ctx, tx.DB(), bookingID, payment.LedgerMethodStripe, &paymentIntentID, nil)
	if err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) {
			return nil
		}
		return err
	}
	return nil
}

// confirmBookingInTx is the settlement reconciler core. It must run inside a
// unit-of-work transaction: the lesson row lock it takes is what serializes
// capacity check-and-confirm per lesson, and the status flip plus the ledger
// gated pass decrement commit or roll back as one unit.
func confirmBookingInTx(ctx context.Context, tx shared.Tx, bookingID uuid.UUID, clk clock.Clock) (*ConfirmResult, error) {
	snap, err := tx.Reads().BookingByID(ctx, bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, errs.Mark(err, ErrSettlementFailed)
	}

	// Webhook delivery is at-least-once; a replayed confirmation is a
	// success with no further side effects. The pass decrement committed
	// atomically with the original status flip, so skipping it here cannot
	// lose or double-apply a credit.
	if snap.Status == booking.StatusConfirmed {
		return &ConfirmResult{BookingID: bookingID, AlreadyConfirmed: true}, nil
	}
	if snap.Status == booking.StatusCancelled {
		return nil, ErrBookingCancelled
	}

	lessonSnap, err := tx.Lessons().LockForUpdate(ctx, tx.DB(), snap.LessonID)
	if err != nil {
		return nil, errs.Mark(err, ErrSettlementFailed)
	}

	l, err := lesson.NewLesson(
		lessonSnap.ID, lessonSnap.TenantID, lessonSnap.ClassOptionID, lessonSnap.Name,
		lessonSnap.StartsAt, lessonSnap.EndsAt, lessonSnap.LockOutMinutes,
		lessonSnap.Active, lessonSnap.Capacity, lessonSnap.WaitlistEnabled,
	)
	if err != nil {
		return nil, errs.Mark(err, ErrSettlementFailed)
	}

	// Capacity is re-checked under the lock, not trusted from creation time.
	if l.RemainingCapacity(lessonSnap.ConfirmedCount) <= 0 {
		return nil, ErrCapacityExceeded
	}

	now := clk.Now()
	b := booking.ReconstructBooking(snap.ID, snap.TenantID, snap.UserID, snap.LessonID, snap.Status, snap.CreatedAt, now)
	if snap.Status == booking.StatusWaiting {
		err = b.PromoteFromWaitlist(now)
	} else {
		err = b.Confirm(now)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Bookings().SetStatus(ctx, tx.DB(), b.ID(), b.Status()); err != nil {
		return nil, errs.Mark(err, ErrSettlementFailed)
	}

	result := &ConfirmResult{BookingID: bookingID}

	ledger, err := tx.Reads().LedgerByBookingID(ctx, bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			// No ledger entry: free or subscription-settled booking.
			// Nothing may be decremented without one.
			return result, nil
		}
		return nil, errs.Mark(err, ErrSettlementFailed)
	}

	// Only a transaction bound to class_pass authorizes a decrement, so a
	// stripe-settled booking can never touch an unrelated pass.
	if ledger.Method != payment.LedgerMethodClassPass || ledger.ClassPassID == nil {
		return result, nil
	}

	remaining, applied, err := tx.ClassPasses().Decrement(ctx, tx.DB(), *ledger.ClassPassID)
	if err != nil {
		return nil, errs.Mark(err, ErrSettlementFailed)
	}
	if !applied {
		// The booking is legitimately settled through its authorized path;
		// a pass missing or exhausted at decrement time is an accounting
		// discrepancy to reconcile out-of-band, not a reason to un-confirm.
		slog.Error("class pass missing or exhausted at settlement",
			"booking_id", bookingID.String(),
			"class_pass_id", ledger.ClassPassID.String())
		return result, nil
	}

	result.PassDecremented = true
	result.PassRemaining = remaining
	return result, nil
}
