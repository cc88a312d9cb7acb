package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"classbook/internal/domain/booking"
	"classbook/internal/domain/lesson"
	"classbook/internal/domain/payment"
	"classbook/internal/infra"
	"classbook/internal/infra/db"
	"classbook/internal/pkg/clock"
	"classbook/internal/pkg/errs"
	"classbook/internal/usecase/queries"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrLessonNotFound          = errs.New("lesson not found")
	ErrLessonClosed            = errs.New("lesson is closed for booking")
	ErrInvalidQuantity         = errs.New("quantity must be positive")
	ErrDuplicateRequest        = errs.New("duplicate booking request")
	ErrIdempotencyInProgress   = errs.New("idempotency in progress")
	ErrIdempotencyCheckFailed  = errs.New("idempotency check failed")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

// PaymentIneligibleError carries the resolver's structured reason so the
// handler can explain exactly why no settlement path applied.
type PaymentIneligibleError struct {
	Reason payment.Reason
}

func (e *PaymentIneligibleError) Error() string {
	return fmt.Sprintf("no eligible payment method: %s", e.Reason)
}

const maxBookingQuantity = 10

type RequestBookingParams struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	LessonID uuid.UUID
	Quantity int
}

type RequestBookingResult struct {
	Bookings []*queries.BookingView
	Method   payment.Kind
	// Confirmed is true when settlement completed inside the request
	// (class pass, subscription, or free booking).
	Confirmed bool
	// Waitlisted is true when the bookings were parked on the waitlist.
	Waitlisted bool
	// ClientSecret and PaymentIntentID are set only for the drop-in path.
	ClientSecret    string
	PaymentIntentID string
	IsReplayed      bool
}

type CancelBookingResult struct {
	BookingID         uuid.UUID
	PromotedBookingID *uuid.UUID
	// PromotionAwaitsPayment is true when the promoted waiter settles by
	// drop-in: the slot is reserved pending, not confirmed, until the
	// payment webhook arrives.
	PromotionAwaitsPayment bool
}

// Actor identifies who is asking for a booking mutation. Staff actors may
// act on bookings owned by other users within their tenant.
type Actor struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Staff    bool
}

type BookingCommands interface {
	RequestBooking(ctx context.Context, params RequestBookingParams, idempotencyKey uuid.UUID) (*RequestBookingResult, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, actor Actor) (*CancelBookingResult, error)
}

type BookingViewReader interface {
	FindViewsByIDs(ctx context.Context, ids []uuid.UUID) ([]*queries.BookingView, error)
}

type bookingUseCaseImpl struct {
	uow      shared.UnitOfWork
	resolver PaymentMethodResolver
	gateway  PaymentGateway
	views    BookingViewReader
	idem     shared.IdempotencyRepository
	clock    clock.Clock
}

func NewBookingUseCase(
	uow shared.UnitOfWork,
	resolver PaymentMethodResolver,
	gateway PaymentGateway,
	views BookingViewReader,
	idem shared.IdempotencyRepository,
	clock clock.Clock,
) BookingCommands {
	return &bookingUseCaseImpl{
		uow:      uow,
		resolver: resolver,
		gateway:  gateway,
		views:    views,
		idem:     idem,
		clock:    clock,
	}
}

func (u *bookingUseCaseImpl) RequestBooking(
	ctx context.Context,
	params RequestBookingParams,
	idempotencyKey uuid.UUID,
) (*RequestBookingResult, error) {
	if params.Quantity < 1 || params.Quantity > maxBookingQuantity {
		return nil, ErrInvalidQuantity
	}

	requestHash := u.calculateRequestHash(params)
	expiresAt := u.clock.Now().Add(24 * time.Hour)

	replayed, err := u.handleIdempotency(ctx, idempotencyKey, params.UserID, requestHash, expiresAt)
	if err != nil {
		return nil, err
	}
	if replayed != nil {
		return replayed, nil
	}

	return u.createBookings(ctx, params, idempotencyKey)
}

func (u *bookingUseCaseImpl) handleIdempotency(
	ctx context.Context,
	idempotencyKey, userID uuid.UUID,
	requestHash string,
	expiresAt time.Time,
) (*RequestBookingResult, error) {
	var claimed bool
	err := u.uow.WithDB(ctx, func(ctx context.Context, dbtx db.DBTX) error {
		var insertErr error
		claimed, insertErr = u.idem.TryInsert(ctx, dbtx, idempotencyKey, userID, "bookings", requestHash, expiresAt)
		return insertErr
	})
	if err != nil {
		return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
	}
	if claimed {
		return nil, nil
	}

	existing, err := u.uow.CommandReads().IdempotencyByKey(ctx, idempotencyKey, userID)
	if err != nil {
		return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
	}
	if existing.RequestHash != requestHash {
		return nil, ErrDuplicateRequest
	}

	switch existing.Status {
	case "completed":
		views, err := u.views.FindViewsByIDs(ctx, existing.ResultBookingIDs)
		if err != nil {
			return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
		}
		return &RequestBookingResult{
			Bookings:   views,
			IsReplayed: true,
		}, nil

	case "processing":
		return nil, ErrIdempotencyInProgress

	default:
		return nil, errs.New("invalid idempotency key status")
	}
}

func (u *bookingUseCaseImpl) createBookings(
	ctx context.Context,
	params RequestBookingParams,
	idempotencyKey uuid.UUID,
) (*RequestBookingResult, error) {
	now := u.clock.Now()
	result := &RequestBookingResult{}
	var bookingIDs []uuid.UUID
	var method payment.Method

	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		lessonSnap, err := tx.Lessons().LockForUpdate(ctx, tx.DB(), params.LessonID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrLessonNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		l, err := lesson.NewLesson(
			lessonSnap.ID, lessonSnap.TenantID, lessonSnap.ClassOptionID, lessonSnap.Name,
			lessonSnap.StartsAt, lessonSnap.EndsAt, lessonSnap.LockOutMinutes,
			lessonSnap.Active, lessonSnap.Capacity, lessonSnap.WaitlistEnabled,
		)
		if err != nil {
			return errs.Mark(err, ErrLessonClosed)
		}
		if err := l.ValidateBookable(now); err != nil {
			return errs.Mark(err, ErrLessonClosed)
		}

		remaining := l.RemainingCapacity(lessonSnap.ConfirmedCount)
		initial := booking.StatusPending
		switch {
		case remaining >= params.Quantity:
			// Enough room for the whole request.
		case remaining == 0 && l.WaitlistEnabled():
			initial = booking.StatusWaiting
		default:
			// Partial room is all-or-nothing; the caller can rebook with a
			// smaller quantity.
			return ErrCapacityExceeded
		}

		option, err := tx.Reads().ClassOptionByID(ctx, l.ClassOptionID())
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		eligibility, err := u.resolver.Resolve(ctx, tx.Reads(), params.TenantID, params.UserID, option, params.Quantity, now)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if !eligibility.Valid {
			return &PaymentIneligibleError{Reason: eligibility.Reason}
		}
		method = eligibility.Method
		result.Method = method.Kind()

		for i := 0; i < params.Quantity; i++ {
			b, err := booking.NewBooking(params.TenantID, params.UserID, params.LessonID, initial, now)
			if err != nil {
				return err
			}
			id, err := tx.Bookings().Create(ctx, tx.DB(), b)
			if err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			bookingIDs = append(bookingIDs, id)

			// The ledger entry is written in the same transaction as the
			// booking row, so the two become visible together and the
			// settlement reconciler always sees a consistent pair.
			if method.Kind() == payment.KindClassPass {
				passID := method.ClassPassID()
				if _, err := tx.Ledger().Record(ctx, tx.DB(), id, payment.LedgerMethodClassPass, nil, &passID); err != nil {
					return errs.Mark(err, ErrDatabaseOperationFailed)
				}
			}
		}

		result.Waitlisted = initial == booking.StatusWaiting

		// Pass, subscription, and free bookings settle immediately;
		// waitlisted ones settle at promotion time.
		if !method.RequiresExternalPayment() && initial == booking.StatusPending {
			for _, id := range bookingIDs {
				if _, err := confirmBookingInTx(ctx, tx, id, u.clock); err != nil {
					return err
				}
			}
			result.Confirmed = true
		}

		if err := tx.Idempotency().UpdateStatusCompleted(ctx, tx.DB(), idempotencyKey, params.UserID, bookingIDs); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if method.RequiresExternalPayment() && !result.Waitlisted {
		if err := u.startDropInSettlement(ctx, params, method, bookingIDs, result); err != nil {
			return nil, err
		}
	}

	views, err := u.views.FindViewsByIDs(ctx, bookingIDs)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	result.Bookings = views
	return result, nil
}

// startDropInSettlement runs after the bookings are durably committed: the
// payment intent needs their ids in its metadata, and an external API call
// has no place inside the database transaction. A crash between intent
// creation and ledger recording is healed by the webhook path, which
// backfills missing stripe ledger entries.
func (u *bookingUseCaseImpl) startDropInSettlement(
	ctx context.Context,
	params RequestBookingParams,
	method payment.Method,
	bookingIDs []uuid.UUID,
	result *RequestBookingResult,
) error {
	intent, err := u.gateway.CreateDropInIntent(ctx, DropInIntentRequest{
		PriceID:    method.DropInPriceID(),
		Quantity:   len(bookingIDs),
		TenantID:   params.TenantID,
		UserID:     params.UserID,
		BookingIDs: bookingIDs,
	})
	if err != nil {
		return err
	}
	result.ClientSecret = intent.ClientSecret
	result.PaymentIntentID = intent.ID

	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		for _, id := range bookingIDs {
			if _, err := tx.Ledger().Record(ctx, tx.DB(), id, payment.LedgerMethodStripe, &intent.ID, nil); err != nil {
				if infra.IsKind(err, infra.KindDuplicateKey) {
					continue
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The intent exists and the webhook backfills the ledger; log and
		// hand the client secret back anyway.
		slog.Warn("failed to record stripe ledger entries after intent creation",
			"payment_intent_id", intent.ID, "error", err.Error())
	}
	return nil
}

func (u *bookingUseCaseImpl) CancelBooking(ctx context.Context, bookingID uuid.UUID, actor Actor) (*CancelBookingResult, error) {
	result := &CancelBookingResult{BookingID: bookingID}
	var dropIn *pendingPromotion

	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		snap, err := tx.Reads().BookingByID(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrBookingNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		// Out-of-scope bookings look identical to missing ones so existence
		// does not leak across tenants or users.
		if snap.TenantID != actor.TenantID {
			return ErrBookingNotFound
		}
		if snap.UserID != actor.UserID && !actor.Staff {
			return ErrBookingNotFound
		}

		// The lesson lock serializes the cancel with concurrent
		// confirmations, so the freed slot is handed to at most one waiter.
		lessonSnap, err := tx.Lessons().LockForUpdate(ctx, tx.DB(), snap.LessonID)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		wasConfirmed := snap.Status == booking.StatusConfirmed

		now := u.clock.Now()
		b := booking.ReconstructBooking(snap.ID, snap.TenantID, snap.UserID, snap.LessonID, snap.Status, snap.CreatedAt, now)
		if err := b.Cancel(now); err != nil {
			return err
		}
		if err := tx.Bookings().SetStatus(ctx, tx.DB(), b.ID(), b.Status()); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if !wasConfirmed {
			return nil
		}

		// FIFO promotion: the oldest waiter takes the freed slot through the
		// same settlement core, so ledger gating and pass decrement apply.
		candidate, err := tx.Bookings().OldestWaiting(ctx, tx.DB(), snap.LessonID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		var promoted bool
		promoted, dropIn, err = u.promoteWaiter(ctx, tx, lessonSnap, candidate, now)
		if err != nil {
			return err
		}
		if !promoted {
			return nil
		}
		result.PromotionAwaitsPayment = dropIn != nil
		promotedID := candidate.ID
		result.PromotedBookingID = &promotedID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if dropIn != nil {
		u.startPromotionSettlement(ctx, dropIn)
	}
	return result, nil
}

// pendingPromotion carries what the post-commit payment intent call needs
// for a promoted drop-in waiter.
type pendingPromotion struct {
	bookingID uuid.UUID
	tenantID  uuid.UUID
	userID    uuid.UUID
	priceID   string
}

// promoteWaiter settles the waitlist candidate into the freed slot. Waiters
// with a recorded transaction confirm through the settlement core directly.
// A waiter without one had its settlement deferred to promotion time, so the
// payment method is resolved now: internal methods settle in this
// transaction, while a drop-in waiter only advances to pending and is
// confirmed by the payment webhook once the intent raised after commit
// succeeds.
func (u *bookingUseCaseImpl) promoteWaiter(
	ctx context.Context,
	tx shared.Tx,
	lessonSnap *shared.LessonSnapshot,
	candidate *shared.BookingSnapshot,
	now time.Time,
) (promoted bool, dropIn *pendingPromotion, err error) {
	ledger, err := tx.Reads().LedgerByBookingID(ctx, candidate.ID)
	if err != nil && !infra.IsKind(err, infra.KindNotFound) {
		return false, nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if ledger == nil {
		option, err := tx.Reads().ClassOptionByID(ctx, lessonSnap.ClassOptionID)
		if err != nil {
			return false, nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		eligibility, err := u.resolver.Resolve(ctx, tx.Reads(), candidate.TenantID, candidate.UserID, option, 1, now)
		if err != nil {
			return false, nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if !eligibility.Valid {
			// The slot stays open rather than handing it to a waiter who
			// can no longer settle.
			slog.Warn("skipping waitlist promotion with no eligible payment method",
				"booking_id", candidate.ID.String(),
				"reason", string(eligibility.Reason))
			return false, nil, nil
		}
		if eligibility.Method.RequiresExternalPayment() {
			if err := tx.Bookings().SetStatus(ctx, tx.DB(), candidate.ID, booking.StatusPending); err != nil {
				return false, nil, errs.Mark(err, ErrDatabaseOperationFailed)
			}
			return true, &pendingPromotion{
				bookingID: candidate.ID,
				tenantID:  candidate.TenantID,
				userID:    candidate.UserID,
				priceID:   eligibility.Method.DropInPriceID(),
			}, nil
		}
		if eligibility.Method.Kind() == payment.KindClassPass {
			passID := eligibility.Method.ClassPassID()
			if _, err := tx.Ledger().Record(ctx, tx.DB(), candidate.ID, payment.LedgerMethodClassPass, nil, &passID); err != nil {
				return false, nil, errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}
	}

	if _, err := confirmBookingInTx(ctx, tx, candidate.ID, u.clock); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

// startPromotionSettlement raises the payment intent for a promoted drop-in
// waiter after the promotion committed, mirroring the request-time flow. The
// webhook both backfills a ledger entry lost to a crash here and confirms
// the booking once the payment succeeds.
func (u *bookingUseCaseImpl) startPromotionSettlement(ctx context.Context, p *pendingPromotion) {
	intent, err := u.gateway.CreateDropInIntent(ctx, DropInIntentRequest{
		PriceID:    p.priceID,
		Quantity:   1,
		TenantID:   p.tenantID,
		UserID:     p.userID,
		BookingIDs: []uuid.UUID{p.bookingID},
	})
	if err != nil {
		// The booking stays pending; recovery is out-of-band.
		slog.Error("failed to create payment intent for promoted booking",
			"booking_id", p.bookingID.String(), "error", err.Error())
		return
	}

	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if _, err := tx.Ledger().Record(ctx, tx.DB(), p.bookingID, payment.LedgerMethodStripe, &intent.ID, nil); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		slog.Warn("failed to record stripe ledger entry for promoted booking",
			"payment_intent_id", intent.ID, "error", err.Error())
	}
}

func (u *bookingUseCaseImpl) calculateRequestHash(params RequestBookingParams) string {
	data, _ := json.Marshal(params)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
