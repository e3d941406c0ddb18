package core

import (
	"fmt"
	"strconv"
)

// BucketKey returns the YYYY-MM grouping key for an ISO date string.
// Date fields are fixed-offset, so a substring is enough.
func BucketKey(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// MonthKey formats a year/month pair as a YYYY-MM bucket key.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// SplitBucket parses a YYYY-MM bucket key into numeric year and month.
func SplitBucket(key string) (year, month int, err error) {
	if len(key) != 7 || key[4] != '-' {
		return 0, 0, fmt.Errorf("malformed month bucket %q", key)
	}
	year, err = strconv.Atoi(key[:4])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed month bucket %q: %w", key, err)
	}
	month, err = strconv.Atoi(key[5:7])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed month bucket %q: %w", key, err)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("malformed month bucket %q: month out of range", key)
	}
	return year, month, nil
}

// NextMonth walks one calendar month forward.
func NextMonth(year, month int) (int, int) {
	month++
	if month > 12 {
		month = 1
		year++
	}
	return year, month
}

// PrevMonth walks one calendar month backward.
func PrevMonth(year, month int) (int, int) {
	month--
	if month < 1 {
		month = 12
		year--
	}
	return year, month
}
