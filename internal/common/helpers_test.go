package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYearMonth(t *testing.T) {
	year, month, err := ParseYearMonth("2026-09")
	require.NoError(t, err)
	assert.Equal(t, 2026, year)
	assert.Equal(t, time.September, month)

	for _, bad := range []string{"2026-9", "26-09", "2026/09", "1969-12", "2026-13", "2026-00", "abcd-ef", ""} {
		_, _, err := ParseYearMonth(bad)
		assert.True(t, IsValidation(err), "input %q: want ValidationError, got %v", bad, err)
	}
}

func TestMonthRangeDecemberRollsOver(t *testing.T) {
	start, end := MonthRange(2025, time.December, time.UTC)
	assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestPreviousMonth(t *testing.T) {
	year, month := PreviousMonth(time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.December, month)

	year, month = PreviousMonth(time.Date(2026, time.March, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, 2026, year)
	assert.Equal(t, time.February, month)
}

func TestLockedErrorRoundsUpAndMatchesSentinel(t *testing.T) {
	err := error(&LockedError{Remaining: 59*time.Second + 200*time.Millisecond})
	assert.True(t, errors.Is(err, ErrAccountLocked))

	var le *LockedError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, int64(60), le.RemainingSeconds())
}

func TestStoreErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := StoreError("update balance", cause)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.NoError(t, StoreError("noop", nil))
}
