//go:build unit

package lesson_test

import (
	"testing"
	"time"

	"classbook/internal/domain/lesson"
	"classbook/tests/common/builder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLesson(t *testing.T) {
	t.Run("basic success case", func(t *testing.T) {
		actual, err := builder.NewLessonBuilder().BuildDomain()
		require.NoError(t, err)
		require.NotNil(t, actual)

		assert.True(t, actual.Active())
		assert.Equal(t, 10, actual.Capacity())
		assert.True(t, actual.WaitlistEnabled())
	})

	t.Run("end before start is rejected", func(t *testing.T) {
		b := builder.NewLessonBuilder().With(func(b *builder.LessonBuilder) {
			b.EndsAt = b.StartsAt.Add(-time.Minute)
		})
		_, err := b.BuildDomain()
		assert.ErrorIs(t, err, lesson.ErrInvalidSchedule)
	})

	t.Run("negative capacity folds to zero", func(t *testing.T) {
		l, err := builder.NewLessonBuilder().With(func(b *builder.LessonBuilder) {
			b.Capacity = -3
		}).BuildDomain()
		require.NoError(t, err)
		assert.Equal(t, 0, l.Capacity())
		assert.Equal(t, 0, l.RemainingCapacity(0))
	})

	t.Run("negative lock-out folds to zero", func(t *testing.T) {
		l, err := builder.NewLessonBuilder().With(func(b *builder.LessonBuilder) {
			b.LockOutMinutes = -15
		}).BuildDomain()
		require.NoError(t, err)
		assert.Equal(t, l.StartsAt(), l.BookingCutoff())
	})
}

func TestRemainingCapacity(t *testing.T) {
	l, err := builder.NewLessonBuilder().BuildDomain()
	require.NoError(t, err)

	cases := []struct {
		name      string
		confirmed int
		want      int
	}{
		{name: "empty lesson", confirmed: 0, want: 10},
		{name: "partially booked", confirmed: 4, want: 6},
		{name: "exactly full", confirmed: 10, want: 0},
		{name: "overbooked clamps to zero", confirmed: 12, want: 0},
		{name: "negative count treated as zero", confirmed: -1, want: 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, l.RemainingCapacity(tc.confirmed))
		})
	}
}

func TestBookingCutoff(t *testing.T) {
	l, err := builder.NewLessonBuilder().BuildDomain()
	require.NoError(t, err)

	cutoff := l.StartsAt().Add(-60 * time.Minute)
	assert.Equal(t, cutoff, l.BookingCutoff())

	assert.True(t, l.BookableAt(cutoff.Add(-time.Second)))
	// The cutoff instant itself is closed.
	assert.False(t, l.BookableAt(cutoff))
	assert.False(t, l.BookableAt(l.StartsAt()))
}

func TestValidateBookable(t *testing.T) {
	t.Run("inactive lesson", func(t *testing.T) {
		l, err := builder.NewLessonBuilder().With(func(b *builder.LessonBuilder) {
			b.Active = false
		}).BuildDomain()
		require.NoError(t, err)
		assert.ErrorIs(t, l.ValidateBookable(time.Now()), lesson.ErrInactive)
	})

	t.Run("past lock-out", func(t *testing.T) {
		l, err := builder.NewLessonBuilder().BuildDomain()
		require.NoError(t, err)
		assert.ErrorIs(t, l.ValidateBookable(l.BookingCutoff()), lesson.ErrPastLockOut)
	})

	t.Run("bookable", func(t *testing.T) {
		l, err := builder.NewLessonBuilder().BuildDomain()
		require.NoError(t, err)
		assert.NoError(t, l.ValidateBookable(l.BookingCutoff().Add(-time.Hour)))
	})
}

func TestActionFor(t *testing.T) {
	l, err := builder.NewLessonBuilder().BuildDomain()
	require.NoError(t, err)
	open := l.BookingCutoff().Add(-time.Hour)

	cases := []struct {
		name      string
		now       time.Time
		confirmed int
		holds     bool
		want      lesson.Action
	}{
		{name: "open with capacity", now: open, confirmed: 0, want: lesson.ActionBook},
		{name: "one slot left", now: open, confirmed: 9, want: lesson.ActionBook},
		{name: "full with waitlist", now: open, confirmed: 10, want: lesson.ActionJoinWaitlist},
		{name: "past cutoff", now: l.BookingCutoff(), confirmed: 0, want: lesson.ActionClosed},
		{name: "viewer already booked", now: open, confirmed: 0, holds: true, want: lesson.ActionModify},
		{name: "viewer booked past cutoff", now: l.StartsAt(), confirmed: 10, holds: true, want: lesson.ActionModify},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, l.ActionFor(tc.now, tc.confirmed, tc.holds))
		})
	}

	t.Run("full without waitlist closes", func(t *testing.T) {
		noWaitlist, err := builder.NewLessonBuilder().With(func(b *builder.LessonBuilder) {
			b.WaitlistEnabled = false
		}).BuildDomain()
		require.NoError(t, err)
		assert.Equal(t, lesson.ActionClosed, noWaitlist.ActionFor(open, 10, false))
	})
}
