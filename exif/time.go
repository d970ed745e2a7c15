// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package exif

import (
	"fmt"
	"time"
)

// exifDateLayout is the "YYYY:MM:DD HH:MM:SS" layout EXIF time tags use
// (colons in the date portion instead of the RFC 3339 hyphens).
const exifDateLayout = "2006:01:02 15:04:05"

// ErrMalformedTime is returned when a time-tag's ASCII value does not
// match the expected EXIF date layout.
var ErrMalformedTime = fmt.Errorf("exif: malformed time value")

// ParseTime decodes a time-tag's ASCII value. When tzOffset is non-empty
// (as discovered by ExifIter's OffsetTime* pre-scan) the result carries
// that fixed-offset zone; otherwise it is a naive, zone-less time
// expressed in time.UTC as a placeholder location, matching the
// original's NaiveDateTime fallback.
func ParseTime(raw string, tzOffset string) (time.Time, error) {
	if tzOffset == "" {
		t, err := time.ParseInLocation(exifDateLayout, raw, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedTime, err)
		}
		return t, nil
	}
	loc, offsetSeconds, err := parseFixedOffset(tzOffset)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(exifDateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedTime, err)
	}
	return t.In(time.FixedZone(tzOffset, offsetSeconds)), nil
}

// parseFixedOffset parses a "+HH:MM", "-HH:MM", or "Z" timezone string
// into a *time.Location and its offset in seconds east of UTC.
func parseFixedOffset(s string) (*time.Location, int, error) {
	if s == "Z" || s == "+00:00" {
		return time.UTC, 0, nil
	}
	if len(s) != 6 || (s[0] != '+' && s[0] != '-') || s[3] != ':' {
		return nil, 0, fmt.Errorf("%w: bad offset %q", ErrMalformedTime, s)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(s[1:3], "%02d", &hh); err != nil {
		return nil, 0, fmt.Errorf("%w: bad offset %q", ErrMalformedTime, s)
	}
	if _, err := fmt.Sscanf(s[4:6], "%02d", &mm); err != nil {
		return nil, 0, fmt.Errorf("%w: bad offset %q", ErrMalformedTime, s)
	}
	total := hh*3600 + mm*60
	if s[0] == '-' {
		total = -total
	}
	return time.FixedZone(s, total), total, nil
}
