package srs

import "time"

// startOfDay returns local midnight of t's calendar day in t's location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// addDays moves a midnight forward by n calendar days. Going through
// time.Date keeps the result on midnight across DST changes, where adding
// 24h multiples would not.
func addDays(midnight time.Time, n int) time.Time {
	y, m, d := midnight.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, midnight.Location())
}
