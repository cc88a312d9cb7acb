//go:build unit

package booking_test

import (
	"testing"
	"time"

	"classbook/internal/domain/booking"
	"classbook/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBooking(t *testing.T) {
	now := time.Now()

	t.Run("pending initial status", func(t *testing.T) {
		b, err := booking.NewBooking(uuid.New(), uuid.New(), uuid.New(), booking.StatusPending, now)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusPending, b.Status())
		assert.False(t, b.HoldsSlot())
	})

	t.Run("waiting initial status", func(t *testing.T) {
		b, err := booking.NewBooking(uuid.New(), uuid.New(), uuid.New(), booking.StatusWaiting, now)
		require.NoError(t, err)
		assert.True(t, b.IsWaiting())
	})

	t.Run("confirmed is not a valid initial status", func(t *testing.T) {
		_, err := booking.NewBooking(uuid.New(), uuid.New(), uuid.New(), booking.StatusConfirmed, now)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})
}

func TestConfirm(t *testing.T) {
	now := time.Now()

	t.Run("pending to confirmed", func(t *testing.T) {
		b := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, b.Confirm(now))
		assert.True(t, b.IsConfirmed())
		assert.True(t, b.HoldsSlot())
	})

	t.Run("confirming twice is a no-op", func(t *testing.T) {
		b := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, b.Confirm(now))
		require.NoError(t, b.Confirm(now.Add(time.Minute)))
		assert.True(t, b.IsConfirmed())
	})

	t.Run("cancelled cannot be confirmed", func(t *testing.T) {
		b := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
			b.Status = booking.StatusCancelled
		}).BuildDomain()
		assert.ErrorIs(t, b.Confirm(now), booking.ErrAlreadyCancelled)
	})
}

func TestPromoteFromWaitlist(t *testing.T) {
	now := time.Now()

	t.Run("waiting to confirmed", func(t *testing.T) {
		b := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
			b.Status = booking.StatusWaiting
		}).BuildDomain()
		require.NoError(t, b.PromoteFromWaitlist(now))
		assert.True(t, b.IsConfirmed())
	})

	t.Run("pending cannot be promoted", func(t *testing.T) {
		b := builder.NewBookingBuilder().BuildDomain()
		assert.ErrorIs(t, b.PromoteFromWaitlist(now), booking.ErrNotWaiting)
	})
}

func TestCancel(t *testing.T) {
	now := time.Now()

	for _, from := range []booking.Status{booking.StatusPending, booking.StatusConfirmed, booking.StatusWaiting} {
		t.Run("cancel from "+from.String(), func(t *testing.T) {
			b := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
				b.Status = from
			}).BuildDomain()
			require.NoError(t, b.Cancel(now))
			assert.True(t, b.IsCancelled())
		})
	}

	t.Run("cancelled is terminal", func(t *testing.T) {
		b := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
			b.Status = booking.StatusCancelled
		}).BuildDomain()
		assert.ErrorIs(t, b.Cancel(now), booking.ErrAlreadyCancelled)
	})
}

func TestStatusProperties(t *testing.T) {
	assert.True(t, booking.StatusConfirmed.ConsumesCapacity())
	assert.False(t, booking.StatusPending.ConsumesCapacity())
	assert.False(t, booking.StatusWaiting.ConsumesCapacity())
	assert.False(t, booking.StatusCancelled.ConsumesCapacity())

	assert.True(t, booking.StatusCancelled.IsTerminal())
	assert.False(t, booking.StatusConfirmed.IsTerminal())
}
