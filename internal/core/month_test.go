package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketKey(t *testing.T) {
	assert.Equal(t, "2024-03", BucketKey("2024-03-15"))
	assert.Equal(t, "2024-12", BucketKey("2024-12-01"))
	// Too-short input passes through untouched.
	assert.Equal(t, "2024", BucketKey("2024"))
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2024-01", MonthKey(2024, 1))
	assert.Equal(t, "0999-12", MonthKey(999, 12))
}

func TestSplitBucket(t *testing.T) {
	year, month, err := SplitBucket("2024-07")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 7, month)

	for _, bad := range []string{"2024-7", "202407", "abcd-ef", "2024-13", "2024-00", ""} {
		_, _, err := SplitBucket(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestMonthWalk(t *testing.T) {
	year, month := NextMonth(2023, 12)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 1, month)

	year, month = NextMonth(2024, 6)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 7, month)

	year, month = PrevMonth(2024, 1)
	assert.Equal(t, 2023, year)
	assert.Equal(t, 12, month)

	// Next and Prev are inverses across every month of a year.
	for m := 1; m <= 12; m++ {
		ny, nm := NextMonth(2024, m)
		py, pm := PrevMonth(ny, nm)
		assert.Equal(t, 2024, py)
		assert.Equal(t, m, pm)
	}
}
