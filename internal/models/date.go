package models

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Date is a calendar day without time of day or location.
type Date = civil.Date

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return civil.DateOf(t)
}

// DateIn returns the calendar day of t as observed in loc.
func DateIn(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(t.In(loc))
}

// ParseDate reads a "2006-01-02" day.
func ParseDate(s string) (Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}
