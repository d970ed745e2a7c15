// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package exif

import (
	"fmt"
	"strconv"
	"strings"
)

// GPS tag numbers, relative to the GPSInfo sub-IFD.
const (
	TagGPSLatitudeRef  uint16 = 0x0001
	TagGPSLatitude     uint16 = 0x0002
	TagGPSLongitudeRef uint16 = 0x0003
	TagGPSLongitude    uint16 = 0x0004
	TagGPSAltitudeRef  uint16 = 0x0005
	TagGPSAltitude     uint16 = 0x0006
)

// GPSInfo is the assembled, sign-corrected location the GPSInfo sub-IFD
// describes.
type GPSInfo struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64 // meters; nil when GPSAltitude is absent
}

// ErrIncompleteGPSInfo is returned when the scanned entries hold neither a
// complete latitude, a complete longitude, nor an altitude.
var ErrIncompleteGPSInfo = fmt.Errorf("exif: incomplete GPS info")

// gpsRaw accumulates the handful of GPSInfo entries needed to assemble a
// GPSInfo, via a defensive shallow scan that tolerates entries arriving in
// any order and ignores anything else in the sub-IFD.
type gpsRaw struct {
	latRef, lonRef, altRef string
	lat, lon               []float64 // degrees, minutes, seconds
	alt                    *float64
}

func (g *gpsRaw) apply(tag uint16, v EntryValue) {
	switch tag {
	case TagGPSLatitudeRef:
		g.latRef = v.Ascii
	case TagGPSLongitudeRef:
		g.lonRef = v.Ascii
	case TagGPSAltitudeRef:
		if b, ok := byteAt(v, 0); ok {
			g.altRef = strconv.Itoa(int(b))
		}
	case TagGPSLatitude:
		g.lat = dmsFloats(v)
	case TagGPSLongitude:
		g.lon = dmsFloats(v)
	case TagGPSAltitude:
		if f, ok := v.AsFloat(); ok {
			g.alt = &f
		}
	}
}

func byteAt(v EntryValue, i int) (byte, bool) {
	if i < len(v.Bytes) {
		return v.Bytes[i], true
	}
	return 0, false
}

func dmsFloats(v EntryValue) []float64 {
	out := make([]float64, 0, 3)
	for _, r := range v.UnsignedRationals {
		out = append(out, r.Float64())
	}
	return out
}

// assemble converts the accumulated degree/minute/second components into
// signed decimal degrees. A coordinate with fewer than three components
// is left at 0.
func (g gpsRaw) assemble() (GPSInfo, error) {
	if len(g.lat) < 3 && len(g.lon) < 3 && g.alt == nil {
		return GPSInfo{}, ErrIncompleteGPSInfo
	}
	var lat, lon float64
	if len(g.lat) >= 3 {
		lat = g.lat[0] + g.lat[1]/60 + g.lat[2]/3600
	}
	if len(g.lon) >= 3 {
		lon = g.lon[0] + g.lon[1]/60 + g.lon[2]/3600
	}
	if strings.EqualFold(g.latRef, "S") {
		lat = -lat
	}
	if strings.EqualFold(g.lonRef, "W") {
		lon = -lon
	}
	info := GPSInfo{Latitude: lat, Longitude: lon}
	if g.alt != nil {
		alt := *g.alt
		if g.altRef == "1" {
			alt = -alt
		}
		info.Altitude = &alt
	}
	return info, nil
}

// FormatISO6709 renders a GPSInfo as an ISO 6709 geographic point string,
// e.g. "+39.91667+116.39083/" for the Forbidden City. Latitude carries a
// 2-digit integer part, longitude a 3-digit integer part, both with 5
// fractional digits, matching the convention the original decoder's test
// vectors use.
func FormatISO6709(g GPSInfo) string {
	var sb strings.Builder
	sb.WriteString(formatCoord(g.Latitude, 2))
	sb.WriteString(formatCoord(g.Longitude, 3))
	if g.Altitude != nil {
		fmt.Fprintf(&sb, "%+.1f", *g.Altitude)
		sb.WriteString("CRSWGS_84")
	}
	sb.WriteString("/")
	return sb.String()
}

func formatCoord(v float64, intDigits int) string {
	sign := "+"
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := int(v)
	frac := v - float64(whole)
	fracStr := strconv.FormatFloat(frac, 'f', 5, 64)
	// fracStr looks like "0.91667"; keep only the part after the point.
	fracStr = fracStr[strings.Index(fracStr, ".")+1:]
	return fmt.Sprintf("%s%0*d.%s", sign, intDigits, whole, fracStr)
}

// ParseISO6709 parses a string previously produced by FormatISO6709 back
// into a GPSInfo. It does not attempt to parse the optional altitude/CRS
// suffix.
func ParseISO6709(s string) (GPSInfo, error) {
	s = strings.TrimSuffix(s, "/")
	// Find the split between latitude and longitude: the second sign
	// character after position 0.
	idx := -1
	for i := 1; i < len(s); i++ {
		if s[i] == '+' || s[i] == '-' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return GPSInfo{}, fmt.Errorf("exif: malformed ISO-6709 string %q", s)
	}
	latPart, lonPart := s[:idx], s[idx:]
	if ci := strings.Index(lonPart, "CRS"); ci >= 0 {
		lonPart = lonPart[:ci]
	}
	lat, err := strconv.ParseFloat(latPart, 64)
	if err != nil {
		return GPSInfo{}, fmt.Errorf("exif: malformed ISO-6709 latitude %q: %w", latPart, err)
	}
	lon, err := strconv.ParseFloat(lonPart, 64)
	if err != nil {
		return GPSInfo{}, fmt.Errorf("exif: malformed ISO-6709 longitude %q: %w", lonPart, err)
	}
	return GPSInfo{Latitude: lat, Longitude: lon}, nil
}
