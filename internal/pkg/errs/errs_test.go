//go:build unit

package errs_test

import (
	"errors"
	"testing"

	"classbook/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
)

func TestIs_SeesMarkedSentinel(t *testing.T) {
	sentinel := errs.New("lesson is closed for booking")
	marked := errs.Mark(errs.New("starts within the lock-out window"), sentinel)

	// A mark is not a wrap: stdlib matching cannot see it. Handlers must go
	// through errs.Is or the sentinel silently stops matching.
	assert.False(t, errors.Is(marked, sentinel))
	assert.True(t, errs.Is(marked, sentinel))
}

func TestIs_SeesWrappedSentinel(t *testing.T) {
	sentinel := errs.New("settlement failed")
	wrapped := errs.Wrap(sentinel, "recording ledger entry")

	assert.True(t, errs.Is(wrapped, sentinel))
	assert.False(t, errs.Is(errs.New("unrelated"), sentinel))
}

func TestMark_NilPassThrough(t *testing.T) {
	sentinel := errs.New("sentinel")
	assert.Equal(t, sentinel, errs.Mark(nil, sentinel))
	assert.NoError(t, errs.Wrap(nil, "ignored"))
}
