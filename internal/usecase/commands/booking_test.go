//go:build unit

package commands_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"classbook/internal/domain/booking"
	"classbook/internal/domain/payment"
	"classbook/internal/pkg/clock"
	"classbook/internal/pkg/errs"
	"classbook/internal/usecase/commands"
	"classbook/internal/usecase/shared"
	"classbook/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	store   *memStore
	gateway *fakeGateway
	clk     *clock.MockClock
	uc      commands.BookingCommands
}

func newBookingFixture() *bookingFixture {
	s := newMemStore()
	g := &fakeGateway{}
	clk := clock.NewMockClock(time.Now().Truncate(time.Second))
	uc := commands.NewBookingUseCase(
		&memUoW{s: s},
		commands.NewPaymentMethodResolver(),
		g,
		&memViewReader{s: s},
		&memIdempotencyRepo{s: s},
		clk,
	)
	return &bookingFixture{store: s, gateway: g, clk: clk, uc: uc}
}

// seedLesson stores a lesson together with its class option. The option is
// unconfigured (free admission) unless the mutate hook changes it.
func (f *bookingFixture) seedLesson(mutate func(*builder.LessonBuilder, *shared.ClassOptionSnapshot)) *builder.LessonBuilder {
	lb := builder.NewLessonBuilder()
	option := &shared.ClassOptionSnapshot{
		ID:       lb.ClassOptionID,
		TenantID: lb.TenantID,
		Name:     lb.Name,
		Capacity: lb.Capacity,
	}
	if mutate != nil {
		mutate(lb, option)
	}
	option.ID = lb.ClassOptionID
	f.store.lessons[lb.ID] = lb.BuildSnapshot()
	f.store.options[option.ID] = option
	return lb
}

func (f *bookingFixture) request(lb *builder.LessonBuilder, userID uuid.UUID, quantity int, key uuid.UUID) (*commands.RequestBookingResult, error) {
	return f.uc.RequestBooking(context.Background(), commands.RequestBookingParams{
		TenantID: lb.TenantID,
		UserID:   userID,
		LessonID: lb.ID,
		Quantity: quantity,
	}, key)
}

func TestRequestBooking_QuantityBounds(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(nil)

	for _, quantity := range []int{0, -1, 11} {
		_, err := f.request(lb, uuid.New(), quantity, uuid.New())
		assert.ErrorIs(t, err, commands.ErrInvalidQuantity, "quantity %d", quantity)
	}
}

func TestRequestBooking_FreeLessonConfirmsImmediately(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(nil)

	result, err := f.request(lb, uuid.New(), 2, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, payment.KindNone, result.Method)
	assert.True(t, result.Confirmed)
	assert.False(t, result.Waitlisted)
	assert.False(t, result.IsReplayed)
	require.Len(t, result.Bookings, 2)
	for _, view := range result.Bookings {
		assert.Equal(t, string(booking.StatusConfirmed), view.Status)
	}
	assert.Equal(t, 2, f.store.lessons[lb.ID].ConfirmedCount)
	assert.Empty(t, f.gateway.requests)
}

func TestRequestBooking_ClassPassSettlesInTransaction(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(func(_ *builder.LessonBuilder, o *shared.ClassOptionSnapshot) {
		o.AllowClassPasses = true
	})

	userID := uuid.New()
	passID := uuid.New()
	f.store.passes[passID] = builder.NewClassPassBuilder().With(func(b *builder.ClassPassBuilder) {
		b.ID = passID
		b.TenantID = lb.TenantID
		b.UserID = userID
		b.Quantity = 3
	}).BuildSnapshot()

	result, err := f.request(lb, userID, 2, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, payment.KindClassPass, result.Method)
	assert.True(t, result.Confirmed)
	assert.Equal(t, 1, f.store.passes[passID].Quantity, "one credit per confirmed booking")

	require.Len(t, result.Bookings, 2)
	for _, view := range result.Bookings {
		ledger := f.store.ledgers[view.ID]
		require.NotNil(t, ledger)
		assert.Equal(t, payment.LedgerMethodClassPass, ledger.Method)
		require.NotNil(t, ledger.ClassPassID)
		assert.Equal(t, passID, *ledger.ClassPassID)
	}
}

func TestRequestBooking_DropInStaysPendingUntilWebhook(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(func(_ *builder.LessonBuilder, o *shared.ClassOptionSnapshot) {
		o.DropInPriceID = strPtr("price_dropin")
	})

	userID := uuid.New()
	result, err := f.request(lb, userID, 2, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, payment.KindDropIn, result.Method)
	assert.False(t, result.Confirmed)
	assert.Equal(t, "pi_test_intent", result.PaymentIntentID)
	assert.Equal(t, "pi_test_intent_secret", result.ClientSecret)

	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	assert.Equal(t, "price_dropin", req.PriceID)
	assert.Equal(t, 2, req.Quantity)
	assert.Equal(t, userID, req.UserID)
	assert.Len(t, req.BookingIDs, 2)

	for _, id := range req.BookingIDs {
		assert.Equal(t, booking.StatusPending, f.store.bookings[id].Status)
		ledger := f.store.ledgers[id]
		require.NotNil(t, ledger, "the stripe ledger entry is recorded right after intent creation")
		assert.Equal(t, payment.LedgerMethodStripe, ledger.Method)
	}
	assert.Equal(t, 0, f.store.lessons[lb.ID].ConfirmedCount)
}

func TestRequestBooking_FullLessonGoesToWaitlist(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(func(l *builder.LessonBuilder, _ *shared.ClassOptionSnapshot) {
		l.Capacity = 5
		l.ConfirmedCount = 5
	})

	result, err := f.request(lb, uuid.New(), 1, uuid.New())
	require.NoError(t, err)
	assert.True(t, result.Waitlisted)
	assert.False(t, result.Confirmed)
	require.Len(t, result.Bookings, 1)
	assert.Equal(t, string(booking.StatusWaiting), result.Bookings[0].Status)
}

func TestRequestBooking_WaitlistedDropInCreatesNoIntent(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(func(l *builder.LessonBuilder, o *shared.ClassOptionSnapshot) {
		l.Capacity = 1
		l.ConfirmedCount = 1
		o.DropInPriceID = strPtr("price_dropin")
	})

	result, err := f.request(lb, uuid.New(), 1, uuid.New())
	require.NoError(t, err)
	assert.True(t, result.Waitlisted)
	assert.Empty(t, result.ClientSecret, "payment waits until the waitlisted booking is promoted")
	assert.Empty(t, f.gateway.requests)
}

func TestRequestBooking_PartialCapacityIsAllOrNothing(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(func(l *builder.LessonBuilder, _ *shared.ClassOptionSnapshot) {
		l.Capacity = 5
		l.ConfirmedCount = 4
	})

	_, err := f.request(lb, uuid.New(), 2, uuid.New())
	assert.ErrorIs(t, err, commands.ErrCapacityExceeded)
	assert.Empty(t, f.store.bookings, "no partial bookings survive a rejected request")
}

func TestRequestBooking_IneligiblePayment(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(func(_ *builder.LessonBuilder, o *shared.ClassOptionSnapshot) {
		o.AllowClassPasses = true
	})

	_, err := f.request(lb, uuid.New(), 1, uuid.New())
	var ineligible *commands.PaymentIneligibleError
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, payment.ReasonNoEligibleMethod, ineligible.Reason)
	assert.Empty(t, f.store.bookings)
}

func TestRequestBooking_LessonNotFound(t *testing.T) {
	f := newBookingFixture()
	lb := builder.NewLessonBuilder()

	_, err := f.request(lb, uuid.New(), 1, uuid.New())
	assert.ErrorIs(t, err, commands.ErrLessonNotFound)
}

func TestRequestBooking_LockOutWindowClosed(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(func(l *builder.LessonBuilder, _ *shared.ClassOptionSnapshot) {
		l.StartsAt = time.Now().Add(30 * time.Minute)
		l.EndsAt = l.StartsAt.Add(time.Hour)
		l.LockOutMinutes = 60
	})

	_, err := f.request(lb, uuid.New(), 1, uuid.New())
	require.Error(t, err)
	assert.True(t, errs.Is(err, commands.ErrLessonClosed), "the closed-lesson sentinel rides as a mark, invisible to stdlib matching")
}

func TestRequestBooking_ReplaySameKey(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(nil)
	userID := uuid.New()
	key := uuid.New()

	first, err := f.request(lb, userID, 1, key)
	require.NoError(t, err)
	require.Len(t, first.Bookings, 1)

	replay, err := f.request(lb, userID, 1, key)
	require.NoError(t, err)
	assert.True(t, replay.IsReplayed)
	require.Len(t, replay.Bookings, 1)
	assert.Equal(t, first.Bookings[0].ID, replay.Bookings[0].ID)
	assert.Len(t, f.store.bookings, 1, "replay must not create a second booking")
}

func TestRequestBooking_SameKeyDifferentPayload(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(nil)
	userID := uuid.New()
	key := uuid.New()

	_, err := f.request(lb, userID, 1, key)
	require.NoError(t, err)

	_, err = f.request(lb, userID, 2, key)
	assert.ErrorIs(t, err, commands.ErrDuplicateRequest)
}

func TestRequestBooking_KeyStillProcessing(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(nil)
	userID := uuid.New()
	key := uuid.New()

	params := commands.RequestBookingParams{
		TenantID: lb.TenantID,
		UserID:   userID,
		LessonID: lb.ID,
		Quantity: 1,
	}
	data, _ := json.Marshal(params)
	hash := sha256.Sum256(data)
	f.store.idemRecords[key] = &shared.IdempotencyRecord{
		Key:         key,
		UserID:      userID,
		Status:      "processing",
		RequestHash: hex.EncodeToString(hash[:]),
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	_, err := f.uc.RequestBooking(context.Background(), params, key)
	assert.ErrorIs(t, err, commands.ErrIdempotencyInProgress)
}

func ownerActor(b *builder.BookingBuilder) commands.Actor {
	return commands.Actor{TenantID: b.TenantID, UserID: b.UserID}
}

func TestCancelBooking_PromotesOldestWaiter(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(func(l *builder.LessonBuilder, _ *shared.ClassOptionSnapshot) {
		l.Capacity = 1
		l.ConfirmedCount = 1
	})

	confirmed := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.TenantID = lb.TenantID
		b.LessonID = lb.ID
		b.Status = booking.StatusConfirmed
	})
	f.store.bookings[confirmed.ID] = confirmed.BuildSnapshot()

	base := time.Now().Add(-time.Hour)
	waiterIDs := make([]uuid.UUID, 2)
	for i := range waiterIDs {
		wb := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
			b.TenantID = lb.TenantID
			b.LessonID = lb.ID
			b.Status = booking.StatusWaiting
			b.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		})
		f.store.bookings[wb.ID] = wb.BuildSnapshot()
		waiterIDs[i] = wb.ID
	}

	result, err := f.uc.CancelBooking(context.Background(), confirmed.ID, ownerActor(confirmed))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, f.store.bookings[confirmed.ID].Status)
	require.NotNil(t, result.PromotedBookingID)
	assert.Equal(t, waiterIDs[0], *result.PromotedBookingID, "promotion is first-come-first-served")
	assert.Equal(t, booking.StatusConfirmed, f.store.bookings[waiterIDs[0]].Status)
	assert.Equal(t, booking.StatusWaiting, f.store.bookings[waiterIDs[1]].Status)
	assert.Equal(t, 1, f.store.lessons[lb.ID].ConfirmedCount)
}

func TestCancelBooking_PendingFreesNoSlot(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(nil)

	pending := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.TenantID = lb.TenantID
		b.LessonID = lb.ID
	})
	f.store.bookings[pending.ID] = pending.BuildSnapshot()

	waiter := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.TenantID = lb.TenantID
		b.LessonID = lb.ID
		b.Status = booking.StatusWaiting
	})
	f.store.bookings[waiter.ID] = waiter.BuildSnapshot()

	result, err := f.uc.CancelBooking(context.Background(), pending.ID, ownerActor(pending))
	require.NoError(t, err)
	assert.Nil(t, result.PromotedBookingID, "a pending booking held no capacity, so nobody is promoted")
	assert.Equal(t, booking.StatusWaiting, f.store.bookings[waiter.ID].Status)
}

func TestCancelBooking_AlreadyCancelled(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(nil)

	cancelled := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.TenantID = lb.TenantID
		b.LessonID = lb.ID
		b.Status = booking.StatusCancelled
	})
	f.store.bookings[cancelled.ID] = cancelled.BuildSnapshot()

	_, err := f.uc.CancelBooking(context.Background(), cancelled.ID, ownerActor(cancelled))
	assert.ErrorIs(t, err, booking.ErrAlreadyCancelled)
}

func TestCancelBooking_NotFound(t *testing.T) {
	f := newBookingFixture()
	_, err := f.uc.CancelBooking(context.Background(), uuid.New(), commands.Actor{TenantID: uuid.New(), UserID: uuid.New()})
	assert.ErrorIs(t, err, commands.ErrBookingNotFound)
}

func TestCancelBooking_OtherUsersBookingIsHidden(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(nil)

	confirmed := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.TenantID = lb.TenantID
		b.LessonID = lb.ID
		b.Status = booking.StatusConfirmed
	})
	f.store.bookings[confirmed.ID] = confirmed.BuildSnapshot()

	stranger := commands.Actor{TenantID: lb.TenantID, UserID: uuid.New()}
	_, err := f.uc.CancelBooking(context.Background(), confirmed.ID, stranger)
	assert.ErrorIs(t, err, commands.ErrBookingNotFound)
	assert.Equal(t, booking.StatusConfirmed, f.store.bookings[confirmed.ID].Status)

	foreignStaff := commands.Actor{TenantID: uuid.New(), UserID: confirmed.UserID, Staff: true}
	_, err = f.uc.CancelBooking(context.Background(), confirmed.ID, foreignStaff)
	assert.ErrorIs(t, err, commands.ErrBookingNotFound, "staff scope ends at the tenant boundary")
}

func TestCancelBooking_StaffCancelsForMember(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(nil)

	confirmed := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.TenantID = lb.TenantID
		b.LessonID = lb.ID
		b.Status = booking.StatusConfirmed
	})
	f.store.bookings[confirmed.ID] = confirmed.BuildSnapshot()

	staff := commands.Actor{TenantID: lb.TenantID, UserID: uuid.New(), Staff: true}
	result, err := f.uc.CancelBooking(context.Background(), confirmed.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, confirmed.ID, result.BookingID)
	assert.Equal(t, booking.StatusCancelled, f.store.bookings[confirmed.ID].Status)
}

func TestCancelBooking_DropInWaiterAwaitsPayment(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(func(l *builder.LessonBuilder, o *shared.ClassOptionSnapshot) {
		l.Capacity = 1
		l.ConfirmedCount = 1
		o.DropInPriceID = strPtr("price_dropin")
	})

	confirmed := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.TenantID = lb.TenantID
		b.LessonID = lb.ID
		b.Status = booking.StatusConfirmed
	})
	f.store.bookings[confirmed.ID] = confirmed.BuildSnapshot()

	waiter := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.TenantID = lb.TenantID
		b.LessonID = lb.ID
		b.Status = booking.StatusWaiting
	})
	f.store.bookings[waiter.ID] = waiter.BuildSnapshot()

	result, err := f.uc.CancelBooking(context.Background(), confirmed.ID, ownerActor(confirmed))
	require.NoError(t, err)
	require.NotNil(t, result.PromotedBookingID)
	assert.Equal(t, waiter.ID, *result.PromotedBookingID)
	assert.True(t, result.PromotionAwaitsPayment)

	// The promoted waiter must not confirm for free: it holds the slot as
	// pending until the payment webhook settles the intent raised here.
	assert.Equal(t, booking.StatusPending, f.store.bookings[waiter.ID].Status)
	assert.Equal(t, 0, f.store.lessons[lb.ID].ConfirmedCount)

	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	assert.Equal(t, "price_dropin", req.PriceID)
	assert.Equal(t, 1, req.Quantity)
	assert.Equal(t, waiter.UserID, req.UserID)
	assert.Equal(t, []uuid.UUID{waiter.ID}, req.BookingIDs)

	ledger := f.store.ledgers[waiter.ID]
	require.NotNil(t, ledger)
	assert.Equal(t, payment.LedgerMethodStripe, ledger.Method)
	require.NotNil(t, ledger.PaymentIntentID)
	assert.Equal(t, "pi_test_intent", *ledger.PaymentIntentID)
}

func TestCancelBooking_ClassPassWaiterSettlesOnPromotion(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(func(l *builder.LessonBuilder, o *shared.ClassOptionSnapshot) {
		l.Capacity = 1
		l.ConfirmedCount = 1
		o.AllowClassPasses = true
	})

	confirmed := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.TenantID = lb.TenantID
		b.LessonID = lb.ID
		b.Status = booking.StatusConfirmed
	})
	f.store.bookings[confirmed.ID] = confirmed.BuildSnapshot()

	waiter := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.TenantID = lb.TenantID
		b.LessonID = lb.ID
		b.Status = booking.StatusWaiting
	})
	f.store.bookings[waiter.ID] = waiter.BuildSnapshot()

	// The waiter's credit was reserved at request time, so promotion goes
	// straight through the ledger-gated settlement path.
	passID := uuid.New()
	f.store.passes[passID] = builder.NewClassPassBuilder().With(func(b *builder.ClassPassBuilder) {
		b.ID = passID
		b.TenantID = lb.TenantID
		b.UserID = waiter.UserID
		b.Quantity = 2
	}).BuildSnapshot()
	f.store.ledgers[waiter.ID] = &shared.LedgerSnapshot{
		ID: uuid.New(), BookingID: waiter.ID,
		Method: payment.LedgerMethodClassPass, ClassPassID: &passID,
	}

	result, err := f.uc.CancelBooking(context.Background(), confirmed.ID, ownerActor(confirmed))
	require.NoError(t, err)
	require.NotNil(t, result.PromotedBookingID)
	assert.False(t, result.PromotionAwaitsPayment)
	assert.Equal(t, booking.StatusConfirmed, f.store.bookings[waiter.ID].Status)
	assert.Equal(t, 1, f.store.passes[passID].Quantity)
	assert.Empty(t, f.gateway.requests)
}

func TestCancelBooking_IneligibleWaiterIsSkipped(t *testing.T) {
	f := newBookingFixture()
	lb := f.seedLesson(func(l *builder.LessonBuilder, o *shared.ClassOptionSnapshot) {
		l.Capacity = 1
		l.ConfirmedCount = 1
		o.AllowClassPasses = true
	})

	confirmed := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.TenantID = lb.TenantID
		b.LessonID = lb.ID
		b.Status = booking.StatusConfirmed
	})
	f.store.bookings[confirmed.ID] = confirmed.BuildSnapshot()

	// No ledger and no usable pass: the waiter can no longer settle.
	waiter := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.TenantID = lb.TenantID
		b.LessonID = lb.ID
		b.Status = booking.StatusWaiting
	})
	f.store.bookings[waiter.ID] = waiter.BuildSnapshot()

	result, err := f.uc.CancelBooking(context.Background(), confirmed.ID, ownerActor(confirmed))
	require.NoError(t, err)
	assert.Nil(t, result.PromotedBookingID, "the slot stays open instead of promoting an unsettleable waiter")
	assert.Equal(t, booking.StatusWaiting, f.store.bookings[waiter.ID].Status)
	assert.Equal(t, 0, f.store.lessons[lb.ID].ConfirmedCount)
}
